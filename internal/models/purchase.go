package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PurchasePending   = "pending"
	PurchaseCompleted = "completed"
)

// Purchase is a one-time buy of a single content item. Only completed
// purchases grant access; pending rows exist from checkout until the
// payment provider confirms.
type Purchase struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index:idx_purchases_user_content;not null" json:"user_id"`
	ContentType string    `gorm:"index:idx_purchases_user_content;not null" json:"content_type"`
	ContentID   string    `gorm:"index:idx_purchases_user_content;not null" json:"content_id"`
	Status      string    `gorm:"not null" json:"status"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Purchase) TableName() string {
	return "purchases"
}
