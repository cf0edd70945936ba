package models

import (
	"time"

	"github.com/google/uuid"
)

// RetryStatus represents the lifecycle of a failed stats refresh
type RetryStatus string

const (
	RetryStatusPending           RetryStatus = "pending"
	RetryStatusResolved          RetryStatus = "resolved"
	RetryStatusPermanentlyFailed RetryStatus = "permanently_failed"
)

// FailedRefresh is a stats refresh the worker could not complete when its
// event arrived. One pending row per hostel; later failures for the same
// hostel fold into it.
type FailedRefresh struct {
	ID           uuid.UUID   `json:"id" gorm:"type:varchar(36);primary_key"`
	HostelID     string      `json:"hostel_id" gorm:"type:varchar(36);not null;index"`
	EventID      string      `json:"event_id" gorm:"type:varchar(36)"`
	EventType    string      `json:"event_type" gorm:"type:varchar(40)"`
	ErrorMessage string      `json:"error_message" gorm:"not null"`
	RetryCount   int         `json:"retry_count" gorm:"default:0"`
	Status       RetryStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	NextRetryAt  *time.Time  `json:"next_retry_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
}

// TableName returns the table name for the FailedRefresh model
func (FailedRefresh) TableName() string {
	return "failed_refreshes"
}
