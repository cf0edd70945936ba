package hostel

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

const (
	recentWindow = 30 * 24 * time.Hour
	recentLimit  = 5
)

// ActivityKind names an entry of the recent activity feed
type ActivityKind string

const (
	ActivityCheckIn ActivityKind = "check_in"
	ActivityPayment ActivityKind = "payment"
)

// Activity is one entry of the dashboard's recent activity feed
type Activity struct {
	Kind     ActivityKind     `json:"kind"`
	EntityID string           `json:"entityId"`
	TenantID string           `json:"tenantId"`
	Name     string           `json:"name,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Status   string           `json:"status,omitempty"`
	At       time.Time        `json:"at"`
}

// Overview is the dashboard view of one hostel
type Overview struct {
	Hostel         models.Hostel       `json:"hostel"`
	Payments       models.PaymentStats `json:"payments"`
	RecentActivity []Activity          `json:"recentActivity"`
	MonthlyRevenue decimal.Decimal     `json:"monthlyRevenue"`
}

// Overview refreshes the hostel's stats and assembles the dashboard: the
// last check-ins and payments of the past 30 days merged newest first, and
// the revenue completed in that window.
func (s *Service) Overview(ctx context.Context, hostelID string) (*Overview, error) {
	const op = "hostel overview"

	h, err := s.Hostels.Get(ctx, hostelID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats.Refresh(ctx, hostelID)
	if err != nil {
		return nil, err
	}
	h.HostelStats = stats

	paymentStats, err := s.Payments.ComputeStats(ctx, hostelID, nil)
	if err != nil {
		return nil, err
	}

	since := s.d.clock().Add(-recentWindow)
	checkIns, err := list[models.Tenant](ctx, s.d, op, models.CollectionTenants, []store.Filter{
		store.Where("hostelId", store.OpEq, hostelID),
		store.Where("checkInDate", store.OpGte, since),
	}, store.Desc("checkInDate"))
	if err != nil {
		return nil, err
	}
	payments, err := list[models.Payment](ctx, s.d, op, models.CollectionPayments, []store.Filter{
		store.Where("hostelId", store.OpEq, hostelID),
		store.Where("paymentDate", store.OpGte, since),
	}, store.Desc("paymentDate"))
	if err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	for i := range payments {
		if payments[i].Status == models.PaymentStatusCompleted {
			revenue = revenue.Add(payments[i].Amount)
		}
	}

	return &Overview{
		Hostel:         *h,
		Payments:       paymentStats,
		RecentActivity: mergeActivity(checkIns, payments),
		MonthlyRevenue: revenue,
	}, nil
}

// mergeActivity takes the latest few of each kind and orders the merged
// feed by instant, newest first.
func mergeActivity(checkIns []models.Tenant, payments []models.Payment) []Activity {
	feed := make([]Activity, 0, 2*recentLimit)
	for i := range checkIns {
		if i == recentLimit {
			break
		}
		t := &checkIns[i]
		if t.CheckInDate == nil {
			continue
		}
		feed = append(feed, Activity{
			Kind:     ActivityCheckIn,
			EntityID: t.ID,
			TenantID: t.ID,
			Name:     t.Name,
			Status:   string(t.Status),
			At:       *t.CheckInDate,
		})
	}
	for i := range payments {
		if i == recentLimit {
			break
		}
		p := &payments[i]
		if p.PaymentDate == nil {
			continue
		}
		amount := p.Amount
		feed = append(feed, Activity{
			Kind:     ActivityPayment,
			EntityID: p.ID,
			TenantID: p.TenantID,
			Amount:   &amount,
			Status:   string(p.Status),
			At:       *p.PaymentDate,
		})
	}
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].At.After(feed[j].At)
	})
	return feed
}
