package hostel

import (
	"context"
	"errors"
	"fmt"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// Reconciler compares every bed's tenant reference with every tenant's
// room/bed reference and reports where they disagree. It never writes.
type Reconciler struct {
	d *deps
}

// Reconcile scans one hostel
func (r *Reconciler) Reconcile(ctx context.Context, hostelID string) (*models.ReconciliationReport, error) {
	const op = "reconcile hostel"

	if _, err := load[models.Hostel](ctx, r.d, op, models.CollectionHostels, "hostel", hostelID); err != nil {
		return nil, err
	}
	rooms, err := list[models.Room](ctx, r.d, op, models.CollectionRooms,
		[]store.Filter{store.Where("hostelId", store.OpEq, hostelID)}, store.Asc("roomNumber"))
	if err != nil {
		return nil, err
	}
	tenants, err := list[models.Tenant](ctx, r.d, op, models.CollectionTenants,
		[]store.Filter{store.Where("hostelId", store.OpEq, hostelID)}, store.Asc(store.FieldCreatedAt))
	if err != nil {
		return nil, err
	}

	s := &scan{
		ctx:     ctx,
		d:       r.d,
		rooms:   make(map[string]*models.Room, len(rooms)),
		tenants: make(map[string]*models.Tenant, len(tenants)),
	}
	for i := range rooms {
		s.rooms[rooms[i].ID] = &rooms[i]
	}
	for i := range tenants {
		s.tenants[tenants[i].ID] = &tenants[i]
	}

	for i := range rooms {
		if err := s.checkRoom(&rooms[i]); err != nil {
			return nil, err
		}
	}
	for i := range tenants {
		if err := s.checkTenant(&tenants[i]); err != nil {
			return nil, err
		}
	}

	report := &models.ReconciliationReport{
		HostelID:     hostelID,
		CheckedAt:    r.d.clock(),
		RoomsScanned: len(rooms),
		TenantsSeen:  len(tenants),
		Mismatches:   s.found,
	}
	if report.Mismatches == nil {
		report.Mismatches = []models.Mismatch{}
	}
	if !report.Consistent() {
		r.d.log.WithField("hostel_id", hostelID).Warnf("Reconciliation found %d mismatches", len(report.Mismatches))
	}
	return report, nil
}

type scan struct {
	ctx     context.Context
	d       *deps
	rooms   map[string]*models.Room
	tenants map[string]*models.Tenant
	found   []models.Mismatch
}

func (s *scan) add(m models.Mismatch) {
	s.found = append(s.found, m)
}

// tenant resolves a tenant id, looking outside the hostel when needed.
// A nil result with nil error means the tenant does not exist.
func (s *scan) tenant(id string) (*models.Tenant, error) {
	if t, ok := s.tenants[id]; ok {
		return t, nil
	}
	t, err := load[models.Tenant](s.ctx, s.d, "reconcile hostel", models.CollectionTenants, "tenant", id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.tenants[id] = t
	return t, nil
}

func (s *scan) room(id string) (*models.Room, error) {
	if r, ok := s.rooms[id]; ok {
		return r, nil
	}
	r, err := load[models.Room](s.ctx, s.d, "reconcile hostel", models.CollectionRooms, "room", id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.rooms[id] = r
	return r, nil
}

func (s *scan) checkRoom(room *models.Room) error {
	occupied := room.CountOccupied()
	if len(room.Beds) != room.TotalBeds || room.OccupiedBeds != occupied || room.AvailableBeds != room.TotalBeds-occupied {
		s.add(models.Mismatch{
			Kind:   models.MismatchRoomCountsStale,
			RoomID: room.ID,
			Detail: fmt.Sprintf("room %s stores %d/%d occupied of %d beds, bed list has %d occupied of %d",
				room.RoomNumber, room.OccupiedBeds, room.AvailableBeds, room.TotalBeds, occupied, len(room.Beds)),
		})
	}

	for _, bed := range room.Beds {
		if bed.TenantID == nil {
			if bed.IsOccupied {
				s.add(models.Mismatch{
					Kind:      models.MismatchBedTenantMissing,
					RoomID:    room.ID,
					BedNumber: bed.BedNumber,
					Detail:    fmt.Sprintf("bed %d of room %s is occupied without a tenant", bed.BedNumber, room.RoomNumber),
				})
			}
			continue
		}

		tenantID := *bed.TenantID
		if !bed.IsOccupied {
			s.add(models.Mismatch{
				Kind:      models.MismatchRoomCountsStale,
				RoomID:    room.ID,
				BedNumber: bed.BedNumber,
				TenantID:  tenantID,
				Detail:    fmt.Sprintf("bed %d of room %s references a tenant but is marked free", bed.BedNumber, room.RoomNumber),
			})
		}

		t, err := s.tenant(tenantID)
		if err != nil {
			return err
		}
		switch {
		case t == nil:
			s.add(models.Mismatch{
				Kind:      models.MismatchBedTenantMissing,
				RoomID:    room.ID,
				BedNumber: bed.BedNumber,
				TenantID:  tenantID,
				Detail:    fmt.Sprintf("bed %d of room %s references a tenant that does not exist", bed.BedNumber, room.RoomNumber),
			})
		case !t.IsCheckedIn():
			s.add(models.Mismatch{
				Kind:      models.MismatchBedTenantNotCheckedIn,
				RoomID:    room.ID,
				BedNumber: bed.BedNumber,
				TenantID:  tenantID,
				Detail:    fmt.Sprintf("bed %d of room %s is held by tenant %s who is %s", bed.BedNumber, room.RoomNumber, t.Name, t.Status),
			})
		case !t.HasBed() || *t.RoomID != room.ID || *t.BedID != bed.BedNumber:
			s.add(models.Mismatch{
				Kind:      models.MismatchBedTenantElsewhere,
				RoomID:    room.ID,
				BedNumber: bed.BedNumber,
				TenantID:  tenantID,
				Detail:    fmt.Sprintf("bed %d of room %s is held by tenant %s whose record points elsewhere", bed.BedNumber, room.RoomNumber, t.Name),
			})
		}
	}
	return nil
}

func (s *scan) checkTenant(t *models.Tenant) error {
	linked := t.RoomID != nil || t.BedID != nil
	if (t.IsCheckedIn() && !t.HasBed()) || (!t.IsCheckedIn() && linked) {
		s.add(models.Mismatch{
			Kind:     models.MismatchTenantStatusLinkage,
			TenantID: t.ID,
			Detail:   fmt.Sprintf("tenant %s is %s but room/bed reference is %s", t.Name, t.Status, linkage(t)),
		})
	}
	if !t.IsCheckedIn() || !t.HasBed() {
		return nil
	}

	room, err := s.room(*t.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		s.add(models.Mismatch{
			Kind:     models.MismatchTenantRoomMissing,
			RoomID:   *t.RoomID,
			TenantID: t.ID,
			Detail:   fmt.Sprintf("tenant %s is checked into a room that does not exist", t.Name),
		})
		return nil
	}
	bed := room.Bed(*t.BedID)
	if bed == nil {
		s.add(models.Mismatch{
			Kind:      models.MismatchTenantBedMissing,
			RoomID:    room.ID,
			BedNumber: *t.BedID,
			TenantID:  t.ID,
			Detail:    fmt.Sprintf("tenant %s is checked into bed %d which room %s does not have", t.Name, *t.BedID, room.RoomNumber),
		})
		return nil
	}
	if !bed.IsOccupied || bed.TenantID == nil || *bed.TenantID != t.ID {
		s.add(models.Mismatch{
			Kind:      models.MismatchTenantBedNotLinked,
			RoomID:    room.ID,
			BedNumber: bed.BedNumber,
			TenantID:  t.ID,
			Detail:    fmt.Sprintf("tenant %s is checked into bed %d of room %s but the bed does not hold them", t.Name, bed.BedNumber, room.RoomNumber),
		})
	}
	return nil
}

func linkage(t *models.Tenant) string {
	switch {
	case t.RoomID != nil && t.BedID != nil:
		return "set"
	case t.RoomID == nil && t.BedID == nil:
		return "empty"
	}
	return "partial"
}
