package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/umuco/heritage-gateway/internal/entitlement"
	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/storage"
)

// EntitlementRepository implements entitlement.Store against Postgres.
type EntitlementRepository struct {
	db *storage.Postgres
}

func NewEntitlementRepository(db *storage.Postgres) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) FindUserTier(ctx context.Context, userID string) (entitlement.Tier, error) {
	var user models.User
	err := r.db.DB.WithContext(ctx).
		Select("tier").
		Where("id = ?", userID).
		First(&user).Error

	if err == gorm.ErrRecordNotFound {
		return entitlement.TierFree, nil
	}
	if err != nil {
		return entitlement.TierFree, err
	}

	tier := entitlement.Tier(user.Tier)
	if tier.FullAccess() {
		return tier, nil
	}

	// The billing webhook syncs User.Tier, but a live subscription
	// outranks a stale denormalized tier.
	var active int64
	err = r.db.DB.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND status IN ? AND current_period_end > ?",
			userID, []string{models.SubscriptionActive, models.SubscriptionTrial}, time.Now()).
		Count(&active).Error
	if err != nil {
		return tier, err
	}
	if active > 0 {
		return entitlement.TierSubscriber, nil
	}

	return tier, nil
}

func (r *EntitlementRepository) FindCompletedPurchase(ctx context.Context, userID, contentType, contentID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ? AND content_type = ? AND content_id = ? AND status = ?",
			userID, contentType, contentID, models.PurchaseCompleted).
		First(&purchase).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

func (r *EntitlementRepository) FindActiveRedemption(ctx context.Context, userID, contentType, contentID string, now time.Time) (*models.Redemption, error) {
	var redemption models.Redemption
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Where(
			r.db.DB.Where("content_type = ? AND content_id = ?", contentType, contentID).
				Or("agency_wide = ?", true),
		).
		First(&redemption).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &redemption, nil
}
