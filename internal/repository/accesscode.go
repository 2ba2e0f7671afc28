package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/storage"
)

type AccessCodeRepository struct {
	db *storage.Postgres
}

func NewAccessCodeRepository(db *storage.Postgres) *AccessCodeRepository {
	return &AccessCodeRepository{db: db}
}

func (r *AccessCodeRepository) Create(ctx context.Context, code *models.AccessCode) error {
	return r.db.DB.WithContext(ctx).Create(code).Error
}

func (r *AccessCodeRepository) FindByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	var ac models.AccessCode
	err := r.db.DB.WithContext(ctx).
		Where("code = ?", code).
		First(&ac).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &ac, err
}

func (r *AccessCodeRepository) List(ctx context.Context) ([]models.AccessCode, error) {
	var codes []models.AccessCode
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&codes).Error

	return codes, err
}

// Redeem consumes one use of the code and records the redemption in a
// single transaction. The guard keeps concurrent redemptions from
// exceeding max_uses; an exhausted code reports ErrRecordNotFound.
func (r *AccessCodeRepository) Redeem(ctx context.Context, codeID uuid.UUID, redemption *models.Redemption) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).
			Model(&models.AccessCode{}).
			Where("id = ? AND used_count < max_uses", codeID).
			Update("used_count", gorm.Expr("used_count + 1"))

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.WithContext(ctx).Create(redemption).Error
	})
}
