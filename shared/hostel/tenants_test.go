package hostel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

func TestRegisterTenant(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)

	tn := f.tenant(t, h.ID, "Asha")
	assert.Equal(t, models.TenantStatusActive, tn.Status)
	assert.Nil(t, tn.RoomID)
	assert.Nil(t, tn.BedID)
	assertTenantLinkage(t, tn)

	_, err := f.svc.Tenants.Register(context.Background(), RegisterTenantInput{HostelID: h.ID, Name: " "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Tenants.Register(context.Background(), RegisterTenantInput{HostelID: h.ID, Name: "X", Email: "not-an-email"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Tenants.Register(context.Background(), RegisterTenantInput{HostelID: "missing", Name: "X"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// Round trip: check-in then check-out frees the bed and leaves the tenant
// checked out with no room.
func TestCheckInCheckOut_RoundTrip(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 2)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	in, err := f.svc.Tenants.CheckIn(ctx, tn.ID, r.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusCheckedIn, in.Status)
	require.NotNil(t, in.RoomID)
	require.NotNil(t, in.BedID)
	assert.Equal(t, r.ID, *in.RoomID)
	assert.Equal(t, 2, *in.BedID)
	require.NotNil(t, in.CheckInDate)
	assert.True(t, in.CheckInDate.Equal(testNow))
	assertTenantLinkage(t, in)

	room := f.storedRoom(t, r.ID)
	require.NotNil(t, room.Bed(2).TenantID)
	assert.Equal(t, tn.ID, *room.Bed(2).TenantID)
	assert.Equal(t, 1, room.OccupiedBeds)
	assertRoomCounts(t, room)

	out, err := f.svc.Tenants.CheckOut(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusCheckedOut, out.Status)
	assert.Nil(t, out.RoomID)
	assert.Nil(t, out.BedID)
	require.NotNil(t, out.CheckOutDate)
	assertTenantLinkage(t, out)

	room = f.storedRoom(t, r.ID)
	assert.False(t, room.Bed(2).IsOccupied)
	assert.Nil(t, room.Bed(2).TenantID)
	assert.Equal(t, 0, room.OccupiedBeds)
	assertRoomCounts(t, room)

	assert.Equal(t, []events.Type{
		events.HostelCreated, events.RoomCreated, events.TenantRegistered,
		events.BedAssigned, events.TenantCheckedIn,
		events.BedReleased, events.TenantCheckedOut,
	}, f.events.Types())
}

func TestCheckIn_StateMachine(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 2)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	_, err := f.svc.Tenants.CheckIn(ctx, tn.ID, r.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.Tenants.CheckIn(ctx, tn.ID, r.ID, 2)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "already checked in")

	_, err = f.svc.Tenants.CheckOut(ctx, tn.ID)
	require.NoError(t, err)

	_, err = f.svc.Tenants.CheckIn(ctx, tn.ID, r.ID, 2)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "checked-out tenants cannot check in again")

	_, err = f.svc.Tenants.CheckOut(ctx, tn.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	fresh := f.tenant(t, h.ID, "Bilal")
	_, err = f.svc.Tenants.CheckOut(ctx, fresh.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "active tenants have nothing to check out of")
}

func TestCheckIn_Failures(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	other := f.hostel(t)
	r := f.room(t, h.ID, "101", 1)
	foreign := f.room(t, other.ID, "201", 1)
	a := f.tenant(t, h.ID, "Asha")
	b := f.tenant(t, h.ID, "Bilal")
	ctx := context.Background()

	_, err := f.svc.Tenants.CheckIn(ctx, a.ID, foreign.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Tenants.CheckIn(ctx, a.ID, "missing", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Tenants.CheckIn(ctx, "missing", r.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Tenants.CheckIn(ctx, a.ID, r.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.Tenants.CheckIn(ctx, b.ID, r.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	bilal := f.storedTenant(t, b.ID)
	assert.Equal(t, models.TenantStatusActive, bilal.Status, "a failed bed assignment leaves the tenant untouched")
	assertTenantLinkage(t, bilal)
}

// Scenario B
func TestDeleteTenant_RequiresCheckOut(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 1)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	_, err := f.svc.Tenants.CheckIn(ctx, tn.ID, r.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Tenants.Delete(ctx, tn.ID), apperr.ErrConflict)
	assert.True(t, f.storedRoom(t, r.ID).Bed(1).IsOccupied)

	_, err = f.svc.Tenants.CheckOut(ctx, tn.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Tenants.Delete(ctx, tn.ID))

	_, err = f.svc.Tenants.Get(ctx, tn.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.Tenants.Delete(ctx, tn.ID), apperr.ErrNotFound)
}

// The tenant write after a successful bed assignment can fail; the bed is
// then held by a tenant that is still active. The error is returned and
// the mismatch is left for reconciliation.
func TestCheckIn_TenantWriteFailureLeavesWindow(t *testing.T) {
	mem := store.NewMemoryStore(nil)
	fs := &faultStore{Store: mem}
	f := newFixtureOn(t, mem, fs)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 1)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	fs.failUpdate = map[string]error{models.CollectionTenants: errors.New("write timeout")}
	_, err := f.svc.Tenants.CheckIn(ctx, tn.ID, r.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrTransient)

	assert.True(t, f.storedRoom(t, r.ID).Bed(1).IsOccupied)
	assert.Equal(t, models.TenantStatusActive, f.storedTenant(t, tn.ID).Status)

	report, err := f.svc.Reconciler.Reconcile(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, models.MismatchBedTenantNotCheckedIn, report.Mismatches[0].Kind)
	assert.Equal(t, tn.ID, report.Mismatches[0].TenantID)
}

func TestCheckOut_TenantWriteFailureLeavesWindow(t *testing.T) {
	mem := store.NewMemoryStore(nil)
	fs := &faultStore{Store: mem}
	f := newFixtureOn(t, mem, fs)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 1)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	_, err := f.svc.Tenants.CheckIn(ctx, tn.ID, r.ID, 1)
	require.NoError(t, err)

	fs.failUpdate = map[string]error{models.CollectionTenants: errors.New("write timeout")}
	_, err = f.svc.Tenants.CheckOut(ctx, tn.ID)
	assert.ErrorIs(t, err, apperr.ErrTransient)

	assert.False(t, f.storedRoom(t, r.ID).Bed(1).IsOccupied, "the bed was released first")
	assert.True(t, f.storedTenant(t, tn.ID).IsCheckedIn())

	report, err := f.svc.Reconciler.Reconcile(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, models.MismatchTenantBedNotLinked, report.Mismatches[0].Kind)
}

func TestUpdateTenant_PersonalFieldsOnly(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	tn := f.tenant(t, h.ID, "Asha")
	ctx := context.Background()

	name := "Asha Rao"
	phone := " 555-0199 "
	updated, err := f.svc.Tenants.Update(ctx, tn.ID, TenantUpdate{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", updated.Name)
	assert.Equal(t, "555-0199", updated.Phone)
	assert.Equal(t, models.TenantStatusActive, updated.Status)

	blank := ""
	_, err = f.svc.Tenants.Update(ctx, tn.ID, TenantUpdate{Name: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListTenants_NewestFirstWithStatus(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t)
	r := f.room(t, h.ID, "101", 1)
	a := f.tenant(t, h.ID, "Asha")
	b := f.tenant(t, h.ID, "Bilal")
	ctx := context.Background()

	_, err := f.svc.Tenants.CheckIn(ctx, a.ID, r.ID, 1)
	require.NoError(t, err)

	all, err := f.svc.Tenants.List(ctx, h.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)

	in, err := f.svc.Tenants.List(ctx, h.ID, models.TenantStatusCheckedIn)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, a.ID, in[0].ID)
}
