package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/repository"
)

var (
	ErrCodeNotFound  = errors.New("access code not found")
	ErrCodeExpired   = errors.New("access code expired")
	ErrCodeExhausted = errors.New("access code has no uses left")
)

type AccessCodeService struct {
	codes *repository.AccessCodeRepository
}

func NewAccessCodeService(codes *repository.AccessCodeRepository) *AccessCodeService {
	return &AccessCodeService{codes: codes}
}

// Redeem validates a code and records a redemption for the user. The
// grant scope is copied from the code so the redemption stands on its
// own during access checks.
func (s *AccessCodeService) Redeem(ctx context.Context, userID uuid.UUID, code string) (*models.Redemption, error) {
	ac, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return nil, ErrCodeNotFound
	}

	now := time.Now()
	if !ac.ExpiresAt.IsZero() && ac.ExpiresAt.Before(now) {
		return nil, ErrCodeExpired
	}

	redemption := &models.Redemption{
		UserID:      userID,
		CodeID:      ac.ID,
		ContentType: ac.ContentType,
		ContentID:   ac.ContentID,
		AgencyWide:  ac.AgencyWide,
		ExpiresAt:   ac.ExpiresAt,
	}

	if err := s.codes.Redeem(ctx, ac.ID, redemption); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeExhausted
		}
		return nil, err
	}

	return redemption, nil
}

// Issue creates a new access code. Admin-only; the handler enforces the
// role.
func (s *AccessCodeService) Issue(ctx context.Context, code *models.AccessCode) error {
	if code.Code == "" {
		code.Code = uuid.NewString()[:8]
	}
	if code.MaxUses <= 0 {
		code.MaxUses = 1
	}
	if code.ExpiresAt.IsZero() {
		code.ExpiresAt = time.Now().Add(30 * 24 * time.Hour)
	}

	return s.codes.Create(ctx, code)
}

func (s *AccessCodeService) List(ctx context.Context) ([]models.AccessCode, error) {
	return s.codes.List(ctx)
}
