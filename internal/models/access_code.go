package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessCode is a redeemable voucher issued by an admin or an agency.
// A code either names a single content item or grants agency-wide
// access to all gated content.
type AccessCode struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null" json:"code"`
	ContentType string    `json:"content_type,omitempty"`
	ContentID   string    `json:"content_id,omitempty"`
	AgencyWide  bool      `gorm:"default:false" json:"agency_wide"`
	MaxUses     int       `gorm:"default:1" json:"max_uses"`
	UsedCount   int       `gorm:"default:0" json:"used_count"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *AccessCode) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (AccessCode) TableName() string {
	return "access_codes"
}

// Redemption records a user redeeming an access code. The grant scope
// is denormalized from the code at redemption time so access checks
// never have to join back to the code row.
type Redemption struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index:idx_redemptions_user_content;not null" json:"user_id"`
	CodeID      uuid.UUID `gorm:"type:uuid;index;not null" json:"code_id"`
	ContentType string    `gorm:"index:idx_redemptions_user_content" json:"content_type,omitempty"`
	ContentID   string    `gorm:"index:idx_redemptions_user_content" json:"content_id,omitempty"`
	AgencyWide  bool      `gorm:"default:false" json:"agency_wide"`
	ExpiresAt   time.Time `gorm:"index" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *Redemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (Redemption) TableName() string {
	return "redemptions"
}
