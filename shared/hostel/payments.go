package hostel

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)


// PaymentLedger records payments and aggregates them. Overdue is derived at
// read time from pending payments whose due date has passed.
type PaymentLedger struct {
	d *deps
}

// RecordPaymentInput describes a payment. Status defaults to completed; a
// completed payment without a PaymentDate is dated now.
type RecordPaymentInput struct {
	TenantID    string               `json:"tenantId"`
	HostelID    string               `json:"hostelId"`
	Amount      decimal.Decimal      `json:"amount"`
	DueDate     time.Time            `json:"dueDate"`
	PaymentDate *time.Time           `json:"paymentDate"`
	Status      models.PaymentStatus `json:"status"`
	Method      string               `json:"method"`
	Notes       string               `json:"notes"`
}

// PaymentFilter narrows ListPayments. The date range applies to paymentDate,
// so unpaid payments never match a range.
type PaymentFilter struct {
	HostelID string
	TenantID string
	Status   models.PaymentStatus
	From     *time.Time
	To       *time.Time
}

// DateRange bounds a stats computation on paymentDate, both ends inclusive
type DateRange struct {
	From time.Time
	To   time.Time
}

func (f PaymentFilter) filters() []store.Filter {
	var out []store.Filter
	if f.HostelID != "" {
		out = append(out, store.Where("hostelId", store.OpEq, f.HostelID))
	}
	if f.TenantID != "" {
		out = append(out, store.Where("tenantId", store.OpEq, f.TenantID))
	}
	if f.Status != "" {
		out = append(out, store.Where("status", store.OpEq, string(f.Status)))
	}
	if f.From != nil {
		out = append(out, store.Where("paymentDate", store.OpGte, *f.From))
	}
	if f.To != nil {
		out = append(out, store.Where("paymentDate", store.OpLte, *f.To))
	}
	return out
}

// RecordPayment stores a payment for a tenant of the hostel
func (l *PaymentLedger) RecordPayment(ctx context.Context, in RecordPaymentInput) (*models.Payment, error) {
	const op = "record payment"

	if in.HostelID == "" {
		return nil, apperr.Validation(op, "hostel id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation(op, "amount must be positive, got %s", in.Amount)
	}
	if in.Status == "" {
		in.Status = models.PaymentStatusCompleted
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation(op, "unknown payment status %q", in.Status)
	}

	tenant, err := load[models.Tenant](ctx, l.d, op, models.CollectionTenants, "tenant", in.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.HostelID != in.HostelID {
		return nil, apperr.Validation(op, "tenant %q does not belong to hostel %q", in.TenantID, in.HostelID)
	}

	now := l.d.clock()
	p := models.Payment{
		TenantID:    in.TenantID,
		HostelID:    in.HostelID,
		Amount:      in.Amount,
		DueDate:     in.DueDate,
		PaymentDate: in.PaymentDate,
		Status:      in.Status,
		Method:      strings.TrimSpace(in.Method),
		Notes:       strings.TrimSpace(in.Notes),
	}
	if p.DueDate.IsZero() {
		p.DueDate = now
	}
	switch p.Status {
	case models.PaymentStatusCompleted:
		if p.PaymentDate == nil {
			p.PaymentDate = &now
		}
		p.CompletedAt = &now
	case models.PaymentStatusCancelled:
		p.CancelledAt = &now
	}

	id, err := insert(ctx, l.d, op, models.CollectionPayments, p)
	if err != nil {
		return nil, err
	}
	created, err := l.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	l.d.publish(ctx, events.PaymentRecorded, in.HostelID, id, map[string]interface{}{
		"tenantId": in.TenantID,
		"amount":   in.Amount.String(),
		"status":   string(in.Status),
	})
	return created, nil
}

// GetPayment loads a payment
func (l *PaymentLedger) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return load[models.Payment](ctx, l.d, "get payment", models.CollectionPayments, "payment", id)
}

// ListPayments returns matching payments, most recently paid first
func (l *PaymentLedger) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("list payments", "unknown payment status %q", f.Status)
	}
	return list[models.Payment](ctx, l.d, "list payments", models.CollectionPayments, f.filters(), store.Desc("paymentDate"))
}

// TenantPayments returns a tenant's payments, most recently paid first
func (l *PaymentLedger) TenantPayments(ctx context.Context, tenantID string) ([]models.Payment, error) {
	if tenantID == "" {
		return nil, apperr.Validation("list tenant payments", "tenant id is required")
	}
	return l.ListPayments(ctx, PaymentFilter{TenantID: tenantID})
}

// MarkCompleted completes a payment at paymentDate, or now when zero.
// Completing a completed payment re-dates it; a cancelled one cannot be
// completed.
func (l *PaymentLedger) MarkCompleted(ctx context.Context, id string, paymentDate time.Time) (*models.Payment, error) {
	const op = "complete payment"

	p, err := l.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusCancelled {
		return nil, apperr.InvalidTransition(op, "payment %q is cancelled", id)
	}

	now := l.d.clock()
	if paymentDate.IsZero() {
		paymentDate = now
	}
	if err := patch(ctx, l.d, op, models.CollectionPayments, "payment", id, store.Fields{
		"status":      string(models.PaymentStatusCompleted),
		"paymentDate": paymentDate.UTC(),
		"completedAt": now,
	}); err != nil {
		return nil, err
	}
	l.d.publish(ctx, events.PaymentCompleted, p.HostelID, id, map[string]interface{}{
		"tenantId": p.TenantID,
		"amount":   p.Amount.String(),
	})
	return l.GetPayment(ctx, id)
}

// CancelPayment cancels a pending payment. Cancelling twice is a no-op.
func (l *PaymentLedger) CancelPayment(ctx context.Context, id string) (*models.Payment, error) {
	const op = "cancel payment"

	p, err := l.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case models.PaymentStatusCancelled:
		return p, nil
	case models.PaymentStatusCompleted:
		return nil, apperr.InvalidTransition(op, "payment %q is already completed", id)
	}

	if err := patch(ctx, l.d, op, models.CollectionPayments, "payment", id, store.Fields{
		"status":      string(models.PaymentStatusCancelled),
		"cancelledAt": l.d.clock(),
	}); err != nil {
		return nil, err
	}
	l.d.publish(ctx, events.PaymentCancelled, p.HostelID, id, map[string]interface{}{"tenantId": p.TenantID})
	return l.GetPayment(ctx, id)
}

// ListPending returns pending payments, soonest due first. An empty hostelID
// lists across all hostels.
func (l *PaymentLedger) ListPending(ctx context.Context, hostelID string) ([]models.Payment, error) {
	filters := []store.Filter{store.Where("status", store.OpEq, string(models.PaymentStatusPending))}
	if hostelID != "" {
		filters = append(filters, store.Where("hostelId", store.OpEq, hostelID))
	}
	return list[models.Payment](ctx, l.d, "list pending payments", models.CollectionPayments, filters, store.Asc("dueDate"))
}

// ComputeStats aggregates a hostel's payments, optionally only those paid
// within period
func (l *PaymentLedger) ComputeStats(ctx context.Context, hostelID string, period *DateRange) (models.PaymentStats, error) {
	f := PaymentFilter{HostelID: hostelID}
	if period != nil {
		if period.To.Before(period.From) {
			return models.PaymentStats{}, apperr.Validation("payment stats", "date range ends before it starts")
		}
		f.From, f.To = &period.From, &period.To
	}
	payments, err := list[models.Payment](ctx, l.d, "payment stats", models.CollectionPayments, f.filters(), nil)
	if err != nil {
		return models.PaymentStats{}, err
	}
	return summarize(payments, l.d.clock()), nil
}

// summarize buckets payments: completed amounts are collected, pending
// amounts are pending, and pending amounts past due are also overdue.
// Cancelled payments count but carry no amount.
func summarize(payments []models.Payment, now time.Time) models.PaymentStats {
	stats := models.PaymentStats{
		TotalCollected: decimal.Zero,
		TotalPending:   decimal.Zero,
		TotalOverdue:   decimal.Zero,
		Count:          len(payments),
	}
	for i := range payments {
		p := &payments[i]
		switch p.Status {
		case models.PaymentStatusCompleted:
			stats.TotalCollected = stats.TotalCollected.Add(p.Amount)
		case models.PaymentStatusPending:
			stats.TotalPending = stats.TotalPending.Add(p.Amount)
			if p.IsOverdue(now) {
				stats.TotalOverdue = stats.TotalOverdue.Add(p.Amount)
			}
		}
	}
	denominator := stats.TotalCollected.Add(stats.TotalPending)
	if denominator.IsPositive() {
		stats.CollectionRate = stats.TotalCollected.InexactFloat64() / denominator.InexactFloat64() * 100
	}
	return stats
}
