package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/storage"
)

type StoryRepository struct {
	db *storage.Postgres
}

func NewStoryRepository(db *storage.Postgres) *StoryRepository {
	return &StoryRepository{db: db}
}

// FindByIDOrSlug looks a story up by uuid or, failing that, by slug.
func (r *StoryRepository) FindByIDOrSlug(ctx context.Context, idOrSlug string) (*models.Story, error) {
	var story models.Story
	err := r.db.DB.WithContext(ctx).
		Where("id::text = ? OR slug = ?", idOrSlug, idOrSlug).
		Where("published = ?", true).
		First(&story).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &story, err
}

func (r *StoryRepository) List(ctx context.Context, category string, limit, offset int) ([]models.Story, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := r.db.DB.WithContext(ctx).
		Where("published = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)

	if category != "" {
		q = q.Where("category = ?", category)
	}

	var stories []models.Story
	err := q.Find(&stories).Error

	return stories, err
}

func (r *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	return r.db.DB.WithContext(ctx).Create(story).Error
}
