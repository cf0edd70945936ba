package hostel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// stepClock advances by a millisecond per reading so documents get
// distinct creation times.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	svc    *Service
	mem    *store.MemoryStore
	events *events.Recorder
	clock  *manualClock
}

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	mem := store.NewMemoryStore((&stepClock{t: testNow.Add(-time.Hour)}).Now)
	return newFixtureOn(t, mem, mem, opts...)
}

// newFixtureOn builds the service over st, which may wrap mem.
func newFixtureOn(t *testing.T, mem *store.MemoryStore, st store.Store, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		mem:    mem,
		events: &events.Recorder{},
		clock:  &manualClock{t: testNow},
	}
	opts = append([]Option{WithPublisher(f.events), WithClock(f.clock.Now)}, opts...)
	f.svc = New(st, opts...)
	return f
}

func (f *fixture) hostel(t *testing.T) *models.Hostel {
	t.Helper()
	h, err := f.svc.Hostels.Create(context.Background(), CreateHostelInput{
		OwnerID: "owner-1",
		Name:    "Sunrise Hostel",
		Address: "12 Lake Road",
		Email:   "desk@sunrise.example",
	})
	require.NoError(t, err)
	return h
}

func (f *fixture) room(t *testing.T, hostelID, number string, beds int) *models.Room {
	t.Helper()
	r, err := f.svc.Rooms.CreateRoom(context.Background(), CreateRoomInput{
		HostelID:   hostelID,
		RoomNumber: number,
		TotalBeds:  beds,
		RentPerBed: decimal.NewFromInt(4500),
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) tenant(t *testing.T, hostelID, name string) *models.Tenant {
	t.Helper()
	tn, err := f.svc.Tenants.Register(context.Background(), RegisterTenantInput{
		HostelID: hostelID,
		Name:     name,
		Phone:    "555-0100",
	})
	require.NoError(t, err)
	return tn
}

// storedRoom reads a room straight from the backing store.
func (f *fixture) storedRoom(t *testing.T, id string) *models.Room {
	t.Helper()
	doc, err := f.mem.Get(context.Background(), models.CollectionRooms, id)
	require.NoError(t, err)
	var r models.Room
	require.NoError(t, store.Decode(doc, &r))
	return &r
}

func (f *fixture) storedTenant(t *testing.T, id string) *models.Tenant {
	t.Helper()
	doc, err := f.mem.Get(context.Background(), models.CollectionTenants, id)
	require.NoError(t, err)
	var tn models.Tenant
	require.NoError(t, store.Decode(doc, &tn))
	return &tn
}

func assertRoomCounts(t *testing.T, r *models.Room) {
	t.Helper()
	assert.Equal(t, r.CountOccupied(), r.OccupiedBeds, "occupiedBeds matches the bed list")
	assert.Equal(t, r.TotalBeds-r.OccupiedBeds, r.AvailableBeds, "availableBeds = totalBeds - occupiedBeds")
	for _, b := range r.Beds {
		assert.Equal(t, b.IsOccupied, b.TenantID != nil, "bed %d occupied iff it has a tenant", b.BedNumber)
	}
}

func assertTenantLinkage(t *testing.T, tn *models.Tenant) {
	t.Helper()
	assert.Equal(t, tn.IsCheckedIn(), tn.RoomID != nil && tn.BedID != nil, "checked-in iff room and bed are set")
	if tn.Status == models.TenantStatusCheckedOut {
		assert.Nil(t, tn.RoomID)
		assert.Nil(t, tn.BedID)
	}
}

// faultStore fails chosen calls on chosen collections.
type faultStore struct {
	store.Store
	mu         sync.Mutex
	failUpdate map[string]error
	failList   map[string]error
}

func (s *faultStore) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	s.mu.Lock()
	err := s.failUpdate[collection]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Update(ctx, collection, id, fields)
}

func (s *faultStore) List(ctx context.Context, collection string, filters []store.Filter, order *store.OrderBy) ([]store.Document, error) {
	s.mu.Lock()
	err := s.failList[collection]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.List(ctx, collection, filters, order)
}

type mapCache struct {
	mu    sync.Mutex
	snaps map[string]models.HostelStats
	sets  int
}

func (c *mapCache) GetSnapshot(_ context.Context, hostelID string) (*models.HostelStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snaps[hostelID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *mapCache) SetSnapshot(_ context.Context, hostelID string, stats models.HostelStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snaps == nil {
		c.snaps = map[string]models.HostelStats{}
	}
	c.snaps[hostelID] = stats
	c.sets++
	return nil
}
