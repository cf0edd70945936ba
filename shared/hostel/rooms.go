package hostel

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// RoomManager owns bed-level occupancy. The store has no partial update of
// the beds array, so every bed change reads the room, edits it in memory and
// writes the whole document back. Concurrent writers to one room lose
// updates (last writer wins).
type RoomManager struct {
	d *deps
}

// CreateRoomInput describes a new room
type CreateRoomInput struct {
	HostelID   string          `json:"hostelId"`
	RoomNumber string          `json:"roomNumber"`
	RoomType   string          `json:"roomType"`
	Floor      int             `json:"floor"`
	TotalBeds  int             `json:"totalBeds"`
	RentPerBed decimal.Decimal `json:"rentPerBed"`
}

// RoomUpdate carries the editable room fields; nil means unchanged.
// A rent change applies to every bed.
type RoomUpdate struct {
	RoomType   *string          `json:"roomType"`
	Floor      *int             `json:"floor"`
	RentPerBed *decimal.Decimal `json:"rentPerBed"`
}

// CreateRoom stores a room with beds 1..TotalBeds, all free
func (m *RoomManager) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	const op = "create room"

	in.RoomNumber = strings.TrimSpace(in.RoomNumber)
	if in.RoomNumber == "" {
		return nil, apperr.Validation(op, "room number is required")
	}
	if in.TotalBeds < 1 {
		return nil, apperr.Validation(op, "total beds must be at least 1, got %d", in.TotalBeds)
	}
	if in.RentPerBed.IsNegative() {
		return nil, apperr.Validation(op, "rent per bed cannot be negative")
	}
	if _, err := requireActive(ctx, m.d, op, in.HostelID); err != nil {
		return nil, err
	}

	existing, err := list[models.Room](ctx, m.d, op, models.CollectionRooms, []store.Filter{
		store.Where("hostelId", store.OpEq, in.HostelID),
		store.Where("roomNumber", store.OpEq, in.RoomNumber),
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperr.Validation(op, "room number %q already exists in hostel", in.RoomNumber)
	}

	room := models.Room{
		HostelID:   in.HostelID,
		RoomNumber: in.RoomNumber,
		RoomType:   strings.TrimSpace(in.RoomType),
		Floor:      in.Floor,
		TotalBeds:  in.TotalBeds,
		RentPerBed: in.RentPerBed,
		Beds:       make([]models.Bed, in.TotalBeds),
	}
	for i := range room.Beds {
		room.Beds[i] = models.Bed{BedNumber: i + 1, Rent: in.RentPerBed}
	}
	room.RecountBeds()

	id, err := insert(ctx, m.d, op, models.CollectionRooms, room)
	if err != nil {
		return nil, err
	}
	created, err := m.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	m.d.publish(ctx, events.RoomCreated, in.HostelID, id, map[string]interface{}{"totalBeds": in.TotalBeds})
	return created, nil
}

// GetRoom loads a room
func (m *RoomManager) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return load[models.Room](ctx, m.d, "get room", models.CollectionRooms, "room", id)
}

// ListRooms returns a hostel's rooms ordered by room number
func (m *RoomManager) ListRooms(ctx context.Context, hostelID string) ([]models.Room, error) {
	return list[models.Room](ctx, m.d, "list rooms", models.CollectionRooms,
		[]store.Filter{store.Where("hostelId", store.OpEq, hostelID)},
		store.Asc("roomNumber"))
}

// ListAvailableRooms returns rooms with at least one free bed, ordered by
// room number
func (m *RoomManager) ListAvailableRooms(ctx context.Context, hostelID string) ([]models.Room, error) {
	return list[models.Room](ctx, m.d, "list available rooms", models.CollectionRooms,
		[]store.Filter{
			store.Where("hostelId", store.OpEq, hostelID),
			store.Where("availableBeds", store.OpGt, 0),
		},
		store.Asc("roomNumber"))
}

// UpdateRoom changes the room's type, floor or rent
func (m *RoomManager) UpdateRoom(ctx context.Context, id string, upd RoomUpdate) (*models.Room, error) {
	const op = "update room"

	room, err := m.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.RoomType != nil {
		room.RoomType = strings.TrimSpace(*upd.RoomType)
	}
	if upd.Floor != nil {
		room.Floor = *upd.Floor
	}
	if upd.RentPerBed != nil {
		if upd.RentPerBed.IsNegative() {
			return nil, apperr.Validation(op, "rent per bed cannot be negative")
		}
		room.RentPerBed = *upd.RentPerBed
		for i := range room.Beds {
			room.Beds[i].Rent = *upd.RentPerBed
		}
	}
	if err := save(ctx, m.d, op, models.CollectionRooms, "room", id, room); err != nil {
		return nil, err
	}
	m.d.publish(ctx, events.RoomUpdated, room.HostelID, id, nil)
	return m.GetRoom(ctx, id)
}

// DeleteRoom removes a room that has no occupied bed
func (m *RoomManager) DeleteRoom(ctx context.Context, id string) error {
	const op = "delete room"

	room, err := m.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room.HasOccupiedBeds() {
		return apperr.Conflict(op, "room %q has %d occupied beds", room.RoomNumber, room.CountOccupied())
	}
	if err := m.d.store.Delete(ctx, models.CollectionRooms, id); err != nil {
		return storeError(op, "room", id, err)
	}
	m.d.publish(ctx, events.RoomDeleted, room.HostelID, id, nil)
	return nil
}

// AssignBed marks a free bed as occupied by tenantID
func (m *RoomManager) AssignBed(ctx context.Context, roomID string, bedNumber int, tenantID string) error {
	room, err := m.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	return m.assign(ctx, room, bedNumber, tenantID)
}

func (m *RoomManager) assign(ctx context.Context, room *models.Room, bedNumber int, tenantID string) error {
	const op = "assign bed"

	if tenantID == "" {
		return apperr.Validation(op, "tenant id is required")
	}
	bed := room.Bed(bedNumber)
	if bed == nil {
		return apperr.NotFound(op, "bed", bedRef(room, bedNumber))
	}
	if bed.IsOccupied {
		return apperr.Conflict(op, "bed %s is already occupied", bedRef(room, bedNumber))
	}

	bed.IsOccupied = true
	bed.TenantID = &tenantID
	room.RecountBeds()

	if err := save(ctx, m.d, op, models.CollectionRooms, "room", room.ID, room); err != nil {
		return err
	}
	m.d.log.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"bed":       bedNumber,
		"tenant_id": tenantID,
	}).Debug("Bed assigned")
	m.d.publish(ctx, events.BedAssigned, room.HostelID, room.ID, map[string]interface{}{
		"bedNumber": bedNumber,
		"tenantId":  tenantID,
	})
	return nil
}

// ReleaseBed frees a bed. Releasing a free bed is a no-op.
func (m *RoomManager) ReleaseBed(ctx context.Context, roomID string, bedNumber int) error {
	const op = "release bed"

	room, err := m.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	bed := room.Bed(bedNumber)
	if bed == nil {
		return apperr.NotFound(op, "bed", bedRef(room, bedNumber))
	}
	if !bed.IsOccupied && bed.TenantID == nil {
		return nil
	}

	var previous string
	if bed.TenantID != nil {
		previous = *bed.TenantID
	}
	bed.IsOccupied = false
	bed.TenantID = nil
	room.RecountBeds()

	if err := save(ctx, m.d, op, models.CollectionRooms, "room", room.ID, room); err != nil {
		return err
	}
	m.d.publish(ctx, events.BedReleased, room.HostelID, room.ID, map[string]interface{}{
		"bedNumber": bedNumber,
		"tenantId":  previous,
	})
	return nil
}

func bedRef(room *models.Room, bedNumber int) string {
	return room.ID + "#" + strconv.Itoa(bedNumber)
}
