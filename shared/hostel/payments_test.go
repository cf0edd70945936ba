package hostel

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

func (f *fixture) payment(t *testing.T, tn *models.Tenant, amount int64, due time.Time, status models.PaymentStatus) *models.Payment {
	t.Helper()
	p, err := f.svc.Payments.RecordPayment(context.Background(), RecordPaymentInput{
		TenantID: tn.ID,
		HostelID: tn.HostelID,
		Amount:   decimal.NewFromInt(amount),
		DueDate:  due,
		Status:   status,
	})
	require.NoError(t, err)
	return p
}

func TestComputeStats_NoPayments(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)

	stats, err := f.svc.Payments.ComputeStats(context.Background(), h.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "0", stats.TotalCollected.String())
	assert.Equal(t, "0", stats.TotalPending.String())
	assert.Equal(t, "0", stats.TotalOverdue.String())
	assert.Equal(t, 0, stats.Count)
	assert.Equal(t, float64(0), stats.CollectionRate)
}

// Scenario C
func TestComputeStats_OverdueCountsAsPending(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")

	f.payment(t, tn, 1000, testNow.Add(-24*time.Hour), models.PaymentStatusPending)

	stats, err := f.svc.Payments.ComputeStats(context.Background(), h.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "1000", stats.TotalPending.String())
	assert.Equal(t, "1000", stats.TotalOverdue.String())
	assert.Equal(t, "0", stats.TotalCollected.String())
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, float64(0), stats.CollectionRate)
}

func TestComputeStats_Buckets(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")

	f.payment(t, tn, 750, testNow.Add(-72*time.Hour), models.PaymentStatusCompleted)
	f.payment(t, tn, 150, testNow.Add(-time.Hour), models.PaymentStatusPending)
	f.payment(t, tn, 100, testNow.Add(48*time.Hour), models.PaymentStatusPending)
	f.payment(t, tn, 999, testNow, models.PaymentStatusCancelled)

	stats, err := f.svc.Payments.ComputeStats(context.Background(), h.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "750", stats.TotalCollected.String())
	assert.Equal(t, "250", stats.TotalPending.String())
	assert.Equal(t, "150", stats.TotalOverdue.String())
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 75.0, stats.CollectionRate)
}

func TestComputeStats_CollectionRateIsNotRounded(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")

	f.payment(t, tn, 1, testNow.Add(-time.Hour), models.PaymentStatusCompleted)
	f.payment(t, tn, 2, testNow.Add(48*time.Hour), models.PaymentStatusPending)

	stats, err := f.svc.Payments.ComputeStats(context.Background(), h.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "0", stats.TotalOverdue.String())
	assert.InDelta(t, 100.0/3, stats.CollectionRate, 1e-9)
	assert.NotEqual(t, 33.33, stats.CollectionRate)
}

func TestComputeStats_DateRangeUsesPaymentDate(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	march := testNow.Add(-10 * 24 * time.Hour)
	f.clock.Set(march)
	f.payment(t, tn, 300, march, models.PaymentStatusCompleted)
	f.clock.Set(testNow)
	f.payment(t, tn, 200, testNow, models.PaymentStatusCompleted)
	f.payment(t, tn, 50, testNow.Add(-time.Hour), models.PaymentStatusPending)

	stats, err := f.svc.Payments.ComputeStats(ctx, h.ID, &DateRange{From: testNow.Add(-24 * time.Hour), To: testNow})
	require.NoError(t, err)
	assert.Equal(t, "200", stats.TotalCollected.String())
	assert.Equal(t, "0", stats.TotalPending.String(), "unpaid payments have no payment date")
	assert.Equal(t, 1, stats.Count)

	_, err = f.svc.Payments.ComputeStats(ctx, h.ID, &DateRange{From: testNow, To: march})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRecordPayment_Defaults(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	p, err := f.svc.Payments.RecordPayment(ctx, RecordPaymentInput{
		TenantID: tn.ID,
		HostelID: h.ID,
		Amount:   decimal.RequireFromString("4500.50"),
		Method:   "upi",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
	require.NotNil(t, p.PaymentDate)
	assert.True(t, p.PaymentDate.Equal(testNow))
	assert.True(t, p.DueDate.Equal(testNow))
	assert.Equal(t, "4500.5", p.Amount.String())
	assert.Equal(t, "upi", p.Method)

	pending := f.payment(t, tn, 100, testNow.Add(time.Hour), models.PaymentStatusPending)
	assert.Nil(t, pending.PaymentDate)
}

func TestRecordPayment_Validation(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	other := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	tests := []struct {
		name string
		in   RecordPaymentInput
		kind error
	}{
		{"zero amount", RecordPaymentInput{TenantID: tn.ID, HostelID: h.ID}, apperr.ErrValidation},
		{"negative amount", RecordPaymentInput{TenantID: tn.ID, HostelID: h.ID, Amount: decimal.NewFromInt(-5)}, apperr.ErrValidation},
		{"bad status", RecordPaymentInput{TenantID: tn.ID, HostelID: h.ID, Amount: decimal.NewFromInt(5), Status: "overdue"}, apperr.ErrValidation},
		{"missing tenant", RecordPaymentInput{TenantID: "nope", HostelID: h.ID, Amount: decimal.NewFromInt(5)}, apperr.ErrNotFound},
		{"wrong hostel", RecordPaymentInput{TenantID: tn.ID, HostelID: other.ID, Amount: decimal.NewFromInt(5)}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Payments.RecordPayment(ctx, tt.in)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestMarkCompleted(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	p := f.payment(t, tn, 500, testNow.Add(-time.Hour), models.PaymentStatusPending)
	done, err := f.svc.Payments.MarkCompleted(ctx, p.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, done.Status)
	require.NotNil(t, done.PaymentDate)
	assert.True(t, done.PaymentDate.Equal(testNow))

	later := testNow.Add(time.Hour)
	again, err := f.svc.Payments.MarkCompleted(ctx, p.ID, later)
	require.NoError(t, err)
	assert.True(t, again.PaymentDate.Equal(later), "completing again re-dates the payment")

	_, err = f.svc.Payments.MarkCompleted(ctx, "missing", time.Time{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cancelled := f.payment(t, tn, 500, testNow, models.PaymentStatusPending)
	_, err = f.svc.Payments.CancelPayment(ctx, cancelled.ID)
	require.NoError(t, err)
	_, err = f.svc.Payments.MarkCompleted(ctx, cancelled.ID, time.Time{})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestCancelPayment(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	p := f.payment(t, tn, 500, testNow, models.PaymentStatusPending)
	c, err := f.svc.Payments.CancelPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, c.Status)
	require.NotNil(t, c.CancelledAt)

	_, err = f.svc.Payments.CancelPayment(ctx, p.ID)
	assert.NoError(t, err)

	paid := f.payment(t, tn, 500, testNow, models.PaymentStatusCompleted)
	_, err = f.svc.Payments.CancelPayment(ctx, paid.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestListPending_SoonestDueFirst(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	other := f.hostel(t)
	a := f.tenant(t, h.ID, "Asha")
	b := f.tenant(t, other.ID, "Bilal")
	ctx := context.Background()

	late := f.payment(t, a, 100, testNow.Add(72*time.Hour), models.PaymentStatusPending)
	soon := f.payment(t, a, 100, testNow.Add(-24*time.Hour), models.PaymentStatusPending)
	f.payment(t, a, 100, testNow.Add(-48*time.Hour), models.PaymentStatusCompleted)
	elsewhere := f.payment(t, b, 100, testNow, models.PaymentStatusPending)

	pending, err := f.svc.Payments.ListPending(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, soon.ID, pending[0].ID)
	assert.Equal(t, late.ID, pending[1].ID)

	all, err := f.svc.Payments.ListPending(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{soon.ID, elsewhere.ID, late.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestListPayments_Filters(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	a := f.tenant(t, h.ID, "Asha")
	b := f.tenant(t, h.ID, "Bilal")
	ctx := context.Background()

	f.clock.Set(testNow.Add(-48 * time.Hour))
	older := f.payment(t, a, 100, testNow, models.PaymentStatusCompleted)
	f.clock.Set(testNow)
	newer := f.payment(t, a, 200, testNow, models.PaymentStatusCompleted)
	unpaid := f.payment(t, a, 300, testNow, models.PaymentStatusPending)
	f.payment(t, b, 400, testNow, models.PaymentStatusCompleted)

	mine, err := f.svc.Payments.TenantPayments(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)
	assert.Equal(t, unpaid.ID, mine[2].ID, "unpaid payments sort last")

	completed, err := f.svc.Payments.ListPayments(ctx, PaymentFilter{HostelID: h.ID, Status: models.PaymentStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 3)

	_, err = f.svc.Payments.ListPayments(ctx, PaymentFilter{Status: "bogus"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
