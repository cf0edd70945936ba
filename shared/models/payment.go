package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the stored state of a payment. Overdue is not a
// stored state; see Payment.IsOverdue.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment represents a rent payment owed or made by a tenant
type Payment struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	HostelID    string          `json:"hostelId"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"dueDate"`
	PaymentDate *time.Time      `json:"paymentDate"`
	Status      PaymentStatus   `json:"status"`
	Method      string          `json:"method,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	CancelledAt *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsOverdue reports whether a pending payment is past its due date at now
func (p *Payment) IsOverdue(now time.Time) bool {
	return p.Status == PaymentStatusPending && p.DueDate.Before(now)
}

// PaymentStats aggregates a set of payments. TotalPending includes the
// overdue amounts; TotalOverdue is a subset of it.
type PaymentStats struct {
	TotalCollected decimal.Decimal `json:"totalCollected"`
	TotalPending   decimal.Decimal `json:"totalPending"`
	TotalOverdue   decimal.Decimal `json:"totalOverdue"`
	Count          int             `json:"count"`
	CollectionRate float64         `json:"collectionRate"`
}
