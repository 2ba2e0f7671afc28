package service

import (
	"context"
	"time"

	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/repository"
)

// RequestLogStats is the read side of the request log store.
type RequestLogStats interface {
	CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error)
	AverageResponseTime(ctx context.Context, from, to time.Time) (float64, error)
	CountByStatusRange(ctx context.Context, minStatus, maxStatus int, from, to time.Time) (int64, error)
	TopEndpoints(ctx context.Context, from, to time.Time, limit int) ([]repository.EndpointCount, error)
	TopPolicies(ctx context.Context, from, to time.Time, limit int) ([]repository.PolicyCount, error)
	FindLogs(ctx context.Context, from, to time.Time, statusCode *int, limit, offset int) ([]models.RequestLog, error)
}

// TrafficSummary aggregates the request log for a time range.
type TrafficSummary struct {
	TotalRequests   int64                      `json:"total_requests"`
	AvgResponseTime float64                    `json:"avg_response_time_ms"`
	ErrorRate       float64                    `json:"error_rate"`
	SuccessRate     float64                    `json:"success_rate"`
	ClientErrorRate float64                    `json:"client_error_rate"`
	ServerErrorRate float64                    `json:"server_error_rate"`
	TopEndpoints    []repository.EndpointCount `json:"top_endpoints"`
	TopPolicies     []repository.PolicyCount   `json:"top_policies"`
}

type AnalyticsService struct {
	stats RequestLogStats
}

func NewAnalyticsService(stats RequestLogStats) *AnalyticsService {
	return &AnalyticsService{stats: stats}
}

// Summary computes traffic totals, error rates and top breakdowns for
// the time range.
func (s *AnalyticsService) Summary(ctx context.Context, from, to time.Time) (*TrafficSummary, error) {
	summary := &TrafficSummary{}

	total, err := s.stats.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalRequests = total

	if total == 0 {
		return summary, nil
	}

	avg, err := s.stats.AverageResponseTime(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.AvgResponseTime = avg

	clientErrors, err := s.stats.CountByStatusRange(ctx, 400, 499, from, to)
	if err != nil {
		return nil, err
	}

	serverErrors, err := s.stats.CountByStatusRange(ctx, 500, 599, from, to)
	if err != nil {
		return nil, err
	}

	totalErrors := clientErrors + serverErrors
	summary.ErrorRate = float64(totalErrors) / float64(total) * 100
	summary.SuccessRate = 100 - summary.ErrorRate
	summary.ClientErrorRate = float64(clientErrors) / float64(total) * 100
	summary.ServerErrorRate = float64(serverErrors) / float64(total) * 100

	summary.TopEndpoints, err = s.stats.TopEndpoints(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}

	summary.TopPolicies, err = s.stats.TopPolicies(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// Logs retrieves raw request log rows for the time range.
func (s *AnalyticsService) Logs(ctx context.Context, from, to time.Time, statusCode *int, limit, offset int) ([]models.RequestLog, error) {
	return s.stats.FindLogs(ctx, from, to, statusCode, limit, offset)
}
