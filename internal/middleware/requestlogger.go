package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/repository"
)

// RequestLogger persists request records to Postgres in batches, off
// the request path. When the channel is full entries are dropped rather
// than blocking a handler.
type RequestLogger struct {
	repo   *repository.RequestLogRepository
	ch     chan models.RequestLog
	done   chan struct{}
	logger zerolog.Logger
}

func NewRequestLogger(repo *repository.RequestLogRepository, bufferSize int, logger zerolog.Logger) *RequestLogger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	rl := &RequestLogger{
		repo:   repo,
		ch:     make(chan models.RequestLog, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}

	go rl.worker()

	return rl
}

func (rl *RequestLogger) worker() {
	batch := make([]models.RequestLog, 0, 100)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := rl.repo.CreateBatch(context.Background(), batch); err != nil {
			rl.logger.Warn().Err(err).Int("count", len(batch)).Msg("failed to insert request logs")
		}
		batch = make([]models.RequestLog, 0, 100)
	}

	for {
		select {
		case entry := <-rl.ch:
			batch = append(batch, entry)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-rl.done:
			flush()
			return
		}
	}
}

// Close flushes remaining entries and stops the worker.
func (rl *RequestLogger) Close() {
	close(rl.done)
}

func (rl *RequestLogger) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		var userID *uuid.UUID
		if ident := IdentityFrom(c); ident.Known() {
			if id, err := uuid.Parse(ident.UserID); err == nil {
				userID = &id
			}
		}

		entry := models.RequestLog{
			Timestamp:      start,
			UserID:         userID,
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			Policy:         c.GetString("rate_limit_policy"),
		}

		select {
		case rl.ch <- entry:
		default:
			// Channel full, drop rather than block the request.
		}
	}
}
