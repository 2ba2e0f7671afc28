package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/repository"
)

// fakeStats is an in-memory request log store for analytics tests.
type fakeStats struct {
	total        int64
	avg          float64
	clientErrors int64
	serverErrors int64
	endpoints    []repository.EndpointCount
	policies     []repository.PolicyCount

	countErr error
	calls    int
}

func (f *fakeStats) CountByTimeRange(context.Context, time.Time, time.Time) (int64, error) {
	f.calls++
	return f.total, f.countErr
}

func (f *fakeStats) AverageResponseTime(context.Context, time.Time, time.Time) (float64, error) {
	f.calls++
	return f.avg, nil
}

func (f *fakeStats) CountByStatusRange(_ context.Context, minStatus, _ int, _, _ time.Time) (int64, error) {
	f.calls++
	if minStatus == 400 {
		return f.clientErrors, nil
	}
	return f.serverErrors, nil
}

func (f *fakeStats) TopEndpoints(context.Context, time.Time, time.Time, int) ([]repository.EndpointCount, error) {
	f.calls++
	return f.endpoints, nil
}

func (f *fakeStats) TopPolicies(context.Context, time.Time, time.Time, int) ([]repository.PolicyCount, error) {
	f.calls++
	return f.policies, nil
}

func (f *fakeStats) FindLogs(context.Context, time.Time, time.Time, *int, int, int) ([]models.RequestLog, error) {
	f.calls++
	return nil, nil
}

func TestSummary_ErrorRates(t *testing.T) {
	stats := &fakeStats{
		total:        200,
		avg:          42.5,
		clientErrors: 10,
		serverErrors: 4,
		endpoints:    []repository.EndpointCount{{Path: "/api/stories", Count: 150}},
		policies:     []repository.PolicyCount{{Policy: "read:anon", Count: 120}},
	}

	svc := NewAnalyticsService(stats)

	now := time.Now()
	summary, err := svc.Summary(context.Background(), now.Add(-time.Hour), now)
	require.NoError(t, err)

	assert.Equal(t, int64(200), summary.TotalRequests)
	assert.Equal(t, 42.5, summary.AvgResponseTime)
	assert.InDelta(t, 7.0, summary.ErrorRate, 0.001)
	assert.InDelta(t, 93.0, summary.SuccessRate, 0.001)
	assert.InDelta(t, 5.0, summary.ClientErrorRate, 0.001)
	assert.InDelta(t, 2.0, summary.ServerErrorRate, 0.001)
	assert.Equal(t, stats.endpoints, summary.TopEndpoints)
	assert.Equal(t, stats.policies, summary.TopPolicies)
}

func TestSummary_EmptyRangeShortCircuits(t *testing.T) {
	stats := &fakeStats{total: 0}
	svc := NewAnalyticsService(stats)

	now := time.Now()
	summary, err := svc.Summary(context.Background(), now.Add(-time.Hour), now)
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.TotalRequests)
	assert.Zero(t, summary.ErrorRate)
	assert.Equal(t, 1, stats.calls, "no further queries when the range is empty")
}

func TestSummary_StoreErrorPropagates(t *testing.T) {
	stats := &fakeStats{countErr: errors.New("connection refused")}
	svc := NewAnalyticsService(stats)

	now := time.Now()
	_, err := svc.Summary(context.Background(), now.Add(-time.Hour), now)
	assert.Error(t, err)
}
