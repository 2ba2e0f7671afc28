package repository

import (
	"context"
	"time"

	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/storage"
)

// EndpointCount is one row of a most-requested-paths breakdown.
type EndpointCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// PolicyCount is one row of a traffic-by-rate-limit-policy breakdown.
type PolicyCount struct {
	Policy string `json:"policy"`
	Count  int64  `json:"count"`
}

type RequestLogRepository struct {
	db *storage.Postgres
}

func NewRequestLogRepository(db *storage.Postgres) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// CreateBatch inserts request logs in one statement.
func (r *RequestLogRepository) CreateBatch(ctx context.Context, logs []models.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&logs).Error
}

// FindLogs retrieves logs in a time range, newest first. A non-nil
// statusCode narrows to that exact status.
func (r *RequestLogRepository) FindLogs(ctx context.Context, from, to time.Time, statusCode *int, limit, offset int) ([]models.RequestLog, error) {
	q := r.db.DB.WithContext(ctx).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset)

	if statusCode != nil {
		q = q.Where("status_code = ?", *statusCode)
	}

	var logs []models.RequestLog
	err := q.Find(&logs).Error

	return logs, err
}

func (r *RequestLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

func (r *RequestLogRepository) AverageResponseTime(ctx context.Context, from, to time.Time) (float64, error) {
	var avg float64

	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Select("COALESCE(AVG(response_time_ms), 0)").
		Scan(&avg).Error

	return avg, err
}

// CountByStatusRange counts logs whose status falls in [min, max],
// e.g. 400..499 for client errors.
func (r *RequestLogRepository) CountByStatusRange(ctx context.Context, minStatus, maxStatus int, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("status_code BETWEEN ? AND ? AND timestamp BETWEEN ? AND ?", minStatus, maxStatus, from, to).
		Count(&count).Error

	return count, err
}

func (r *RequestLogRepository) TopEndpoints(ctx context.Context, from, to time.Time, limit int) ([]EndpointCount, error) {
	var rows []EndpointCount

	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Select("path, COUNT(*) as count").
		Where("timestamp BETWEEN ? AND ?", from, to).
		Group("path").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error

	return rows, err
}

func (r *RequestLogRepository) TopPolicies(ctx context.Context, from, to time.Time, limit int) ([]PolicyCount, error) {
	var rows []PolicyCount

	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Select("policy, COUNT(*) as count").
		Where("policy <> '' AND timestamp BETWEEN ? AND ?", from, to).
		Group("policy").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error

	return rows, err
}
