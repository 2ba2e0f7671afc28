package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuco/heritage-gateway/internal/gate"
)

// Story is a heritage content item. The body lives in a jsonb column as
// a tree of blocks; the gate decides how much of it a caller sees.
type Story struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Slug         string    `gorm:"uniqueIndex;not null" json:"slug"`
	Excerpt      string    `json:"excerpt"`
	CoverImage   string    `json:"cover_image"`
	Category     string    `gorm:"index" json:"category"`
	Sensitive    bool      `gorm:"default:false" json:"sensitive"`
	PriceCents   int64     `json:"price_cents"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	AccessLevel  string    `gorm:"default:'free';index" json:"access_level"`
	Body         gate.Body `gorm:"type:jsonb" json:"body"`
	AudioURL     string    `json:"audio_url"`
	NarrationURL string    `json:"narration_url"`
	Published    bool      `gorm:"default:true;index" json:"published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (Story) TableName() string {
	return "stories"
}

// Document converts the stored row into the shape the content gate
// operates on.
func (s *Story) Document() *gate.Document {
	doc := &gate.Document{
		ID:           s.ID.String(),
		Title:        s.Title,
		Slug:         s.Slug,
		Excerpt:      s.Excerpt,
		CoverImage:   s.CoverImage,
		Category:     s.Category,
		Sensitive:    s.Sensitive,
		PriceCents:   s.PriceCents,
		AccessLevel:  gate.AccessLevel(s.AccessLevel),
		Body:         s.Body,
		AudioURL:     s.AudioURL,
		NarrationURL: s.NarrationURL,
	}

	if s.Latitude != 0 || s.Longitude != 0 {
		doc.Location = &gate.Location{Latitude: s.Latitude, Longitude: s.Longitude}
	}

	return doc
}
