package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

const (
	defaultMaxRetries = 8
	retryBaseDelay    = time.Minute
)

// RetryStats counts failed refreshes by status
type RetryStats struct {
	Pending           int64 `json:"pending"`
	Resolved          int64 `json:"resolved"`
	PermanentlyFailed int64 `json:"permanently_failed"`
}

// RetryStore keeps stats refreshes that failed so the worker can retry them
// with exponential backoff (1m, 2m, 4m, ...) until MaxRetries.
type RetryStore struct {
	db         *gorm.DB
	MaxRetries int
}

// NewRetryStore creates a retry store on db
func NewRetryStore(db *gorm.DB) *RetryStore {
	return &RetryStore{db: db, MaxRetries: defaultMaxRetries}
}

// AutoMigrate creates or updates the failed refreshes table
func (s *RetryStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&models.FailedRefresh{}); err != nil {
		return fmt.Errorf("failed to migrate failed refreshes table: %w", err)
	}
	return nil
}

// Enqueue records a failed refresh for hostelID, due immediately. A hostel
// with a pending row keeps that row; only the error is updated.
func (s *RetryStore) Enqueue(ctx context.Context, hostelID, eventID, eventType string, cause error, now time.Time) (*models.FailedRefresh, error) {
	var row models.FailedRefresh
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("hostel_id = ? AND status = ?", hostelID, models.RetryStatusPending).First(&row).Error
		switch {
		case err == nil:
			row.ErrorMessage = cause.Error()
			row.UpdatedAt = now
			return tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.FailedRefresh{
				ID:           uuid.New(),
				HostelID:     hostelID,
				EventID:      eventID,
				EventType:    eventType,
				ErrorMessage: cause.Error(),
				Status:       models.RetryStatusPending,
				NextRetryAt:  &now,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			return tx.Create(&row).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, apperr.Transient("enqueue refresh retry", err)
	}
	return &row, nil
}

// Due returns up to limit pending rows whose retry time has come, oldest
// first
func (s *RetryStore) Due(ctx context.Context, now time.Time, limit int) ([]models.FailedRefresh, error) {
	var rows []models.FailedRefresh
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", models.RetryStatusPending, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Transient("list due retries", err)
	}
	return rows, nil
}

// MarkResolved closes a row after a successful refresh
func (s *RetryStore) MarkResolved(ctx context.Context, row *models.FailedRefresh, now time.Time) error {
	row.Status = models.RetryStatusResolved
	row.UpdatedAt = now
	row.ResolvedAt = &now
	return s.save(ctx, row)
}

// MarkAbandoned closes a row that can never succeed, such as one for a
// hostel that no longer exists
func (s *RetryStore) MarkAbandoned(ctx context.Context, row *models.FailedRefresh, reason string, now time.Time) error {
	row.Status = models.RetryStatusPermanentlyFailed
	row.ErrorMessage = reason
	row.UpdatedAt = now
	row.ResolvedAt = &now
	return s.save(ctx, row)
}

// MarkRetried counts a failed attempt and schedules the next one, or gives
// up once MaxRetries is reached
func (s *RetryStore) MarkRetried(ctx context.Context, row *models.FailedRefresh, cause error, now time.Time) error {
	row.RetryCount++
	row.UpdatedAt = now

	if row.RetryCount >= s.MaxRetries {
		row.Status = models.RetryStatusPermanentlyFailed
		row.ResolvedAt = &now
		row.ErrorMessage = fmt.Sprintf("Max retries reached: %s", cause.Error())
	} else {
		next := now.Add(retryBaseDelay * time.Duration(1<<(row.RetryCount-1)))
		row.NextRetryAt = &next
		row.ErrorMessage = cause.Error()
	}
	return s.save(ctx, row)
}

func (s *RetryStore) save(ctx context.Context, row *models.FailedRefresh) error {
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return apperr.Transient("save refresh retry", err)
	}
	return nil
}

// Stats counts rows by status
func (s *RetryStore) Stats(ctx context.Context) (RetryStats, error) {
	var rows []struct {
		Status models.RetryStatus
		N      int64
	}
	err := s.db.WithContext(ctx).Model(&models.FailedRefresh{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return RetryStats{}, apperr.Transient("count retries", err)
	}

	var stats RetryStats
	for _, r := range rows {
		switch r.Status {
		case models.RetryStatusPending:
			stats.Pending = r.N
		case models.RetryStatusResolved:
			stats.Resolved = r.N
		case models.RetryStatusPermanentlyFailed:
			stats.PermanentlyFailed = r.N
		}
	}
	return stats, nil
}
