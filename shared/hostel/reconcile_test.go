package hostel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

func kinds(report *models.ReconciliationReport) []models.MismatchKind {
	var out []models.MismatchKind
	for _, m := range report.Mismatches {
		out = append(out, m.Kind)
	}
	return out
}

func TestReconcile_ConsistentHostel(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 2)
	a := f.tenant(t, h.ID, "Asha")
	b := f.tenant(t, h.ID, "Bilal")
	ctx := context.Background()

	_, err := f.svc.Tenants.CheckIn(ctx, a.ID, r.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.Tenants.CheckIn(ctx, b.ID, r.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.Tenants.CheckOut(ctx, b.ID)
	require.NoError(t, err)

	report, err := f.svc.Reconciler.Reconcile(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.NotNil(t, report.Mismatches)
	assert.Equal(t, 1, report.RoomsScanned)
	assert.Equal(t, 2, report.TenantsSeen)
	assert.True(t, report.CheckedAt.Equal(testNow))
}

func TestReconcile_DetectsMismatches(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 3)
	gone := f.tenant(t, h.ID, "Gone")
	moved := f.tenant(t, h.ID, "Moved")
	ctx := context.Background()

	_, err := f.svc.Tenants.CheckIn(ctx, gone.ID, r.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.Tenants.CheckIn(ctx, moved.ID, r.ID, 2)
	require.NoError(t, err)

	// tenant 1 vanishes without checking out
	require.NoError(t, f.mem.Delete(ctx, models.CollectionTenants, gone.ID))
	// tenant 2's record drifts to bed 3 while the room still holds bed 2
	require.NoError(t, f.mem.Update(ctx, models.CollectionTenants, moved.ID, store.Fields{"bedId": 3}))
	// stored counter drifts
	require.NoError(t, f.mem.Update(ctx, models.CollectionRooms, r.ID, store.Fields{"availableBeds": 3}))

	ghost := f.tenant(t, h.ID, "Ghost")
	require.NoError(t, f.mem.Update(ctx, models.CollectionTenants, ghost.ID, store.Fields{
		"status": string(models.TenantStatusCheckedIn),
		"roomId": "no-such-room",
		"bedId":  1,
	}))
	linkless := f.tenant(t, h.ID, "Linkless")
	require.NoError(t, f.mem.Update(ctx, models.CollectionTenants, linkless.ID, store.Fields{
		"status": string(models.TenantStatusCheckedIn),
	}))
	wrongBed := f.tenant(t, h.ID, "WrongBed")
	require.NoError(t, f.mem.Update(ctx, models.CollectionTenants, wrongBed.ID, store.Fields{
		"status": string(models.TenantStatusCheckedIn),
		"roomId": r.ID,
		"bedId":  7,
	}))

	before := f.storedRoom(t, r.ID)
	report, err := f.svc.Reconciler.Reconcile(ctx, h.ID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []models.MismatchKind{
		models.MismatchRoomCountsStale,
		models.MismatchBedTenantMissing,
		models.MismatchBedTenantElsewhere,
		models.MismatchTenantBedNotLinked,
		models.MismatchTenantRoomMissing,
		models.MismatchTenantStatusLinkage,
		models.MismatchTenantBedMissing,
	}, kinds(report))

	assert.Equal(t, before, f.storedRoom(t, r.ID), "reconciliation never writes")
}

func TestReconcile_BedHeldByTenantNotCheckedIn(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 1)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	require.NoError(t, f.svc.Rooms.AssignBed(ctx, r.ID, 1, tn.ID))

	report, err := f.svc.Reconciler.Reconcile(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.MismatchKind{models.MismatchBedTenantNotCheckedIn}, kinds(report))
}

func TestReconcile_UnknownHostel(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reconciler.Reconcile(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
