package hostel

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// TenantManager owns the tenant state machine
//
//	active --CheckIn--> checked-in --CheckOut--> checked-out
//
// and is the only writer of a tenant's room/bed reference. Check-in and
// check-out mutate the bed first and the tenant second; a failure between
// the two writes is returned to the caller and left for reconciliation.
type TenantManager struct {
	d     *deps
	rooms *RoomManager
}

// RegisterTenantInput describes a new tenant
type RegisterTenantInput struct {
	HostelID         string `json:"hostelId"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergencyContact"`
	IDProof          string `json:"idProof"`
}

// TenantUpdate carries personal fields only; room linkage and status change
// through CheckIn and CheckOut
type TenantUpdate struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergencyContact"`
	IDProof          *string `json:"idProof"`
}

// Register stores an active tenant with no room
func (m *TenantManager) Register(ctx context.Context, in RegisterTenantInput) (*models.Tenant, error) {
	const op = "register tenant"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" {
		return nil, apperr.Validation(op, "name is required")
	}
	if in.Email != "" && !validEmail(in.Email) {
		return nil, apperr.Validation(op, "invalid email %q", in.Email)
	}
	if _, err := requireActive(ctx, m.d, op, in.HostelID); err != nil {
		return nil, err
	}

	t := models.Tenant{
		HostelID:         in.HostelID,
		Name:             in.Name,
		Email:            in.Email,
		Phone:            strings.TrimSpace(in.Phone),
		Address:          strings.TrimSpace(in.Address),
		EmergencyContact: strings.TrimSpace(in.EmergencyContact),
		IDProof:          strings.TrimSpace(in.IDProof),
		Status:           models.TenantStatusActive,
	}
	id, err := insert(ctx, m.d, op, models.CollectionTenants, t)
	if err != nil {
		return nil, err
	}
	created, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.d.publish(ctx, events.TenantRegistered, in.HostelID, id, nil)
	return created, nil
}

// Get loads a tenant
func (m *TenantManager) Get(ctx context.Context, id string) (*models.Tenant, error) {
	return load[models.Tenant](ctx, m.d, "get tenant", models.CollectionTenants, "tenant", id)
}

// List returns a hostel's tenants, newest first, optionally by status
func (m *TenantManager) List(ctx context.Context, hostelID string, status models.TenantStatus) ([]models.Tenant, error) {
	filters := []store.Filter{store.Where("hostelId", store.OpEq, hostelID)}
	if status != "" {
		filters = append(filters, store.Where("status", store.OpEq, string(status)))
	}
	return list[models.Tenant](ctx, m.d, "list tenants", models.CollectionTenants, filters, store.Desc(store.FieldCreatedAt))
}

// Update edits a tenant's personal fields
func (m *TenantManager) Update(ctx context.Context, id string, upd TenantUpdate) (*models.Tenant, error) {
	const op = "update tenant"

	t, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := store.Fields{}
	if name := trimmed(upd.Name); name != nil {
		if *name == "" {
			return nil, apperr.Validation(op, "name cannot be empty")
		}
		fields["name"] = *name
	}
	if email := trimmed(upd.Email); email != nil {
		if *email != "" && !validEmail(*email) {
			return nil, apperr.Validation(op, "invalid email %q", *email)
		}
		fields["email"] = *email
	}
	for key, v := range map[string]*string{
		"phone":            upd.Phone,
		"address":          upd.Address,
		"emergencyContact": upd.EmergencyContact,
		"idProof":          upd.IDProof,
	} {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	if len(fields) == 0 {
		return t, nil
	}
	if err := patch(ctx, m.d, op, models.CollectionTenants, "tenant", id, fields); err != nil {
		return nil, err
	}
	m.d.publish(ctx, events.TenantUpdated, t.HostelID, id, nil)
	return m.Get(ctx, id)
}

// CheckIn assigns the bed, then marks the tenant checked in. If the tenant
// write fails the bed stays assigned to a tenant that is not checked in.
func (m *TenantManager) CheckIn(ctx context.Context, tenantID, roomID string, bedNumber int) (*models.Tenant, error) {
	const op = "check in tenant"

	t, err := m.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	switch t.Status {
	case models.TenantStatusActive:
	case models.TenantStatusCheckedIn:
		return nil, apperr.InvalidTransition(op, "tenant %q is already checked in", tenantID)
	case models.TenantStatusCheckedOut:
		return nil, apperr.InvalidTransition(op, "tenant %q has checked out; register a new tenant", tenantID)
	default:
		return nil, apperr.InvalidTransition(op, "tenant %q has unknown status %q", tenantID, t.Status)
	}

	room, err := m.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostelID != t.HostelID {
		return nil, apperr.Validation(op, "room %q does not belong to the tenant's hostel", roomID)
	}
	if err := m.rooms.assign(ctx, room, bedNumber, tenantID); err != nil {
		return nil, err
	}

	now := m.d.clock()
	t.RoomID = &room.ID
	t.BedID = &bedNumber
	t.CheckInDate = &now
	t.Status = models.TenantStatusCheckedIn
	if err := save(ctx, m.d, op, models.CollectionTenants, "tenant", tenantID, t); err != nil {
		m.d.log.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"room_id":   roomID,
			"bed":       bedNumber,
		}).WithError(err).Error("Bed assigned but tenant update failed")
		return nil, err
	}
	m.d.publish(ctx, events.TenantCheckedIn, t.HostelID, tenantID, map[string]interface{}{
		"roomId":    roomID,
		"bedNumber": bedNumber,
	})
	return m.Get(ctx, tenantID)
}

// CheckOut releases the tenant's bed, then clears the tenant's room/bed and
// marks it checked out. If the tenant write fails the bed is already free.
func (m *TenantManager) CheckOut(ctx context.Context, tenantID string) (*models.Tenant, error) {
	const op = "check out tenant"

	t, err := m.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !t.IsCheckedIn() {
		return nil, apperr.InvalidTransition(op, "tenant %q is %s, not checked in", tenantID, t.Status)
	}

	var roomID string
	var bedNumber int
	if t.HasBed() {
		roomID, bedNumber = *t.RoomID, *t.BedID
		if err := m.rooms.ReleaseBed(ctx, roomID, bedNumber); err != nil {
			return nil, err
		}
	} else {
		m.d.log.WithField("tenant_id", tenantID).Warn("Checked-in tenant has no bed reference")
	}

	now := m.d.clock()
	t.RoomID = nil
	t.BedID = nil
	t.CheckOutDate = &now
	t.Status = models.TenantStatusCheckedOut
	if err := save(ctx, m.d, op, models.CollectionTenants, "tenant", tenantID, t); err != nil {
		m.d.log.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"room_id":   roomID,
			"bed":       bedNumber,
		}).WithError(err).Error("Bed released but tenant update failed")
		return nil, err
	}
	m.d.publish(ctx, events.TenantCheckedOut, t.HostelID, tenantID, map[string]interface{}{
		"roomId":    roomID,
		"bedNumber": bedNumber,
	})
	return m.Get(ctx, tenantID)
}

// Delete removes a tenant that is not checked in
func (m *TenantManager) Delete(ctx context.Context, tenantID string) error {
	const op = "delete tenant"

	t, err := m.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if t.IsCheckedIn() {
		return apperr.Conflict(op, "tenant %q is checked in; check out first", tenantID)
	}
	if err := m.d.store.Delete(ctx, models.CollectionTenants, tenantID); err != nil {
		return storeError(op, "tenant", tenantID, err)
	}
	m.d.publish(ctx, events.TenantDeleted, t.HostelID, tenantID, nil)
	return nil
}
