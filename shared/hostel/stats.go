package hostel

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// SnapshotCache keeps the latest stats snapshot per hostel
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, hostelID string) (*models.HostelStats, error)
	SetSnapshot(ctx context.Context, hostelID string, stats models.HostelStats) error
}

// Aggregator recomputes a hostel's rollup by scanning its rooms and tenants
// and writes the snapshot onto the hostel document.
type Aggregator struct {
	d *deps
}

// Refresh recomputes and stores the hostel's stats. With no mutation in
// between, two calls return identical snapshots.
func (a *Aggregator) Refresh(ctx context.Context, hostelID string) (models.HostelStats, error) {
	const op = "refresh stats"

	if _, err := load[models.Hostel](ctx, a.d, op, models.CollectionHostels, "hostel", hostelID); err != nil {
		return models.HostelStats{}, err
	}
	rooms, err := list[models.Room](ctx, a.d, op, models.CollectionRooms,
		[]store.Filter{store.Where("hostelId", store.OpEq, hostelID)}, nil)
	if err != nil {
		return models.HostelStats{}, err
	}
	tenants, err := list[models.Tenant](ctx, a.d, op, models.CollectionTenants,
		[]store.Filter{store.Where("hostelId", store.OpEq, hostelID)}, nil)
	if err != nil {
		return models.HostelStats{}, err
	}

	stats := computeSnapshot(rooms, tenants)
	fields, err := store.Encode(stats)
	if err != nil {
		return models.HostelStats{}, err
	}
	if err := patch(ctx, a.d, op, models.CollectionHostels, "hostel", hostelID, fields); err != nil {
		return models.HostelStats{}, err
	}

	if a.d.cache != nil {
		if err := a.d.cache.SetSnapshot(ctx, hostelID, stats); err != nil {
			a.d.log.WithField("hostel_id", hostelID).WithError(err).Warn("Failed to cache stats snapshot")
		}
	}
	return stats, nil
}

// Cached returns the cached snapshot, refreshing on a miss or cache failure
func (a *Aggregator) Cached(ctx context.Context, hostelID string) (models.HostelStats, error) {
	if a.d.cache != nil {
		stats, err := a.d.cache.GetSnapshot(ctx, hostelID)
		switch {
		case err != nil:
			a.d.log.WithField("hostel_id", hostelID).WithError(err).Warn("Failed to read stats snapshot from cache")
		case stats != nil:
			return *stats, nil
		}
	}
	return a.Refresh(ctx, hostelID)
}

// RefreshQuietly refreshes after a mutation that already succeeded; a
// failure is logged, not returned.
func (a *Aggregator) RefreshQuietly(ctx context.Context, hostelID string) {
	if hostelID == "" {
		return
	}
	if _, err := a.Refresh(ctx, hostelID); err != nil {
		a.d.log.WithFields(logrus.Fields{"hostel_id": hostelID}).WithError(err).Warn("Failed to refresh hostel stats")
	}
}

// computeSnapshot derives the rollup. Occupied beds are counted from the bed
// lists, not the rooms' stored counters.
func computeSnapshot(rooms []models.Room, tenants []models.Tenant) models.HostelStats {
	var s models.HostelStats
	s.TotalRooms = len(rooms)
	for i := range rooms {
		s.TotalBeds += rooms[i].TotalBeds
		s.OccupiedBeds += rooms[i].CountOccupied()
	}
	s.AvailableBeds = s.TotalBeds - s.OccupiedBeds
	if s.AvailableBeds < 0 {
		s.AvailableBeds = 0
	}
	s.TotalTenants = len(tenants)
	for i := range tenants {
		if tenants[i].IsCheckedIn() {
			s.ActiveTenants++
		}
	}
	if s.TotalBeds > 0 {
		s.OccupancyRate = float64(s.OccupiedBeds) / float64(s.TotalBeds) * 100
	}
	return s
}
