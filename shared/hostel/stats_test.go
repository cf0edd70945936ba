package hostel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

func TestRefresh_ComputesAndStoresSnapshot(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r1 := f.room(t, h.ID, "101", 2)
	f.room(t, h.ID, "102", 2)
	a := f.tenant(t, h.ID, "Asha")
	f.tenant(t, h.ID, "Bilal")
	ctx := context.Background()

	_, err := f.svc.Tenants.CheckIn(ctx, a.ID, r1.ID, 1)
	require.NoError(t, err)

	stats, err := f.svc.Stats.Refresh(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HostelStats{
		TotalRooms:    2,
		TotalBeds:     4,
		OccupiedBeds:  1,
		AvailableBeds: 3,
		TotalTenants:  2,
		ActiveTenants: 1,
		OccupancyRate: 25,
	}, stats)

	stored, err := f.svc.Hostels.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, stats, stored.Snapshot())
	assert.Equal(t, "Sunrise Hostel", stored.Name, "refresh only touches the stats fields")
}

func TestRefresh_Idempotent(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 3)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()
	_, err := f.svc.Tenants.CheckIn(ctx, tn.ID, r.ID, 2)
	require.NoError(t, err)

	first, err := f.svc.Stats.Refresh(ctx, h.ID)
	require.NoError(t, err)
	second, err := f.svc.Stats.Refresh(ctx, h.ID)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRefresh_EmptyHostel(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)

	stats, err := f.svc.Stats.Refresh(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HostelStats{}, stats)

	_, err = f.svc.Stats.Refresh(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRefresh_CountsBedsNotStoredCounters(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 2)
	ctx := context.Background()

	// corrupt the stored counter; the snapshot must follow the bed list
	require.NoError(t, f.mem.Update(ctx, models.CollectionRooms, r.ID, map[string]interface{}{"occupiedBeds": 2}))

	stats, err := f.svc.Stats.Refresh(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.OccupiedBeds)
	assert.Equal(t, 2, stats.AvailableBeds)
}

func TestCached_UsesCacheAndRefreshesOnMiss(t *testing.T) {
	cache := &mapCache{}
	f := newFixture(t, WithSnapshotCache(cache))
	h := f.hostel(t)
	f.room(t, h.ID, "101", 2)
	ctx := context.Background()

	stats, err := f.svc.Stats.Cached(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBeds)
	assert.Equal(t, 1, cache.sets)

	f.room(t, h.ID, "102", 2)
	stats, err = f.svc.Stats.Cached(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBeds, "served from cache")
	assert.Equal(t, 1, cache.sets)

	stats, err = f.svc.Stats.Refresh(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalBeds)
	assert.Equal(t, 2, cache.sets, "refresh writes through")
}

func TestOverview(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 2)
	a := f.tenant(t, h.ID, "Asha")
	b := f.tenant(t, h.ID, "Bilal")
	ctx := context.Background()

	f.clock.Set(testNow.Add(-3 * time.Hour))
	_, err := f.svc.Tenants.CheckIn(ctx, a.ID, r.ID, 1)
	require.NoError(t, err)
	f.clock.Set(testNow.Add(-2 * time.Hour))
	paid := f.payment(t, a, 4500, testNow, models.PaymentStatusCompleted)
	f.clock.Set(testNow.Add(-1 * time.Hour))
	_, err = f.svc.Tenants.CheckIn(ctx, b.ID, r.ID, 2)
	require.NoError(t, err)
	f.clock.Set(testNow.Add(-40 * 24 * time.Hour))
	f.payment(t, b, 9999, testNow, models.PaymentStatusCompleted)
	f.clock.Set(testNow)
	f.payment(t, b, 4500, testNow.Add(-time.Hour), models.PaymentStatusPending)

	o, err := f.svc.Overview(ctx, h.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, o.Hostel.OccupiedBeds)
	assert.Equal(t, float64(100), o.Hostel.OccupancyRate)
	assert.Equal(t, "4500", o.MonthlyRevenue.String(), "payments older than 30 days are excluded")
	assert.Equal(t, "4500", o.Payments.TotalOverdue.String())

	require.Len(t, o.RecentActivity, 3)
	assert.Equal(t, ActivityCheckIn, o.RecentActivity[0].Kind)
	assert.Equal(t, b.ID, o.RecentActivity[0].TenantID)
	assert.Equal(t, ActivityPayment, o.RecentActivity[1].Kind)
	assert.Equal(t, paid.ID, o.RecentActivity[1].EntityID)
	assert.Equal(t, a.ID, o.RecentActivity[2].TenantID)
}

func TestMergeActivity_SortsByInstant(t *testing.T) {
	at := func(h int) *time.Time {
		v := testNow.Add(time.Duration(h) * time.Hour)
		return &v
	}
	feed := mergeActivity(
		[]models.Tenant{{ID: "t1", CheckInDate: at(-1)}, {ID: "t2", CheckInDate: at(-30)}},
		[]models.Payment{{ID: "p1", PaymentDate: at(-2)}, {ID: "p2", PaymentDate: at(-26)}},
	)
	var ids []string
	for _, a := range feed {
		ids = append(ids, a.EntityID)
	}
	assert.Equal(t, []string{"t1", "p1", "p2", "t2"}, ids)
}

func TestHostelManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Hostels.Create(ctx, CreateHostelInput{OwnerID: "owner-1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Hostels.Create(ctx, CreateHostelInput{Name: "No Owner"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	first := f.hostel(t)
	second := f.hostel(t)
	assert.Equal(t, models.HostelStatusActive, first.Status)
	assert.Equal(t, models.HostelStats{}, first.Snapshot())

	owned, err := f.svc.Hostels.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, second.ID, owned[0].ID, "newest first")

	name := "Sunset Hostel"
	updated, err := f.svc.Hostels.Update(ctx, first.ID, HostelUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Sunset Hostel", updated.Name)

	bad := "nope"
	_, err = f.svc.Hostels.Update(ctx, first.ID, HostelUpdate{Email: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	off, err := f.svc.Hostels.Deactivate(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive())
	_, err = f.svc.Hostels.Deactivate(ctx, first.ID)
	require.NoError(t, err)

	active, err := f.svc.Hostels.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
}
