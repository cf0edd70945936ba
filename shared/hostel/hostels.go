package hostel

import (
	"context"
	"net/mail"
	"strings"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// HostelManager owns hostel records. Hostels are never deleted, only
// deactivated, and their stats fields are written by the Aggregator alone.
type HostelManager struct {
	d *deps
}

// CreateHostelInput describes a new hostel
type CreateHostelInput struct {
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// HostelUpdate carries the editable hostel fields; nil means unchanged
type HostelUpdate struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
}

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

// Create stores an active hostel with a zeroed stats snapshot
func (m *HostelManager) Create(ctx context.Context, in CreateHostelInput) (*models.Hostel, error) {
	const op = "create hostel"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.OwnerID == "" {
		return nil, apperr.Validation(op, "owner id is required")
	}
	if in.Name == "" {
		return nil, apperr.Validation(op, "name is required")
	}
	if in.Email != "" && !validEmail(in.Email) {
		return nil, apperr.Validation(op, "invalid email %q", in.Email)
	}

	h := models.Hostel{
		OwnerID: in.OwnerID,
		Name:    in.Name,
		Address: strings.TrimSpace(in.Address),
		Phone:   strings.TrimSpace(in.Phone),
		Email:   in.Email,
		Status:  models.HostelStatusActive,
	}
	id, err := insert(ctx, m.d, op, models.CollectionHostels, h)
	if err != nil {
		return nil, err
	}

	created, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.d.publish(ctx, events.HostelCreated, id, id, map[string]interface{}{"ownerId": in.OwnerID})
	return created, nil
}

// Get loads a hostel
func (m *HostelManager) Get(ctx context.Context, id string) (*models.Hostel, error) {
	return load[models.Hostel](ctx, m.d, "get hostel", models.CollectionHostels, "hostel", id)
}

// List returns an owner's hostels, newest first
func (m *HostelManager) List(ctx context.Context, ownerID string) ([]models.Hostel, error) {
	if ownerID == "" {
		return nil, apperr.Validation("list hostels", "owner id is required")
	}
	return list[models.Hostel](ctx, m.d, "list hostels", models.CollectionHostels,
		[]store.Filter{store.Where("ownerId", store.OpEq, ownerID)},
		store.Desc(store.FieldCreatedAt))
}

// ListActive returns every active hostel
func (m *HostelManager) ListActive(ctx context.Context) ([]models.Hostel, error) {
	return list[models.Hostel](ctx, m.d, "list active hostels", models.CollectionHostels,
		[]store.Filter{store.Where("status", store.OpEq, string(models.HostelStatusActive))},
		store.Asc(store.FieldCreatedAt))
}

// Update changes the hostel's contact details
func (m *HostelManager) Update(ctx context.Context, id string, upd HostelUpdate) (*models.Hostel, error) {
	const op = "update hostel"

	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}

	fields := store.Fields{}
	if name := trimmed(upd.Name); name != nil {
		if *name == "" {
			return nil, apperr.Validation(op, "name cannot be empty")
		}
		fields["name"] = *name
	}
	if upd.Address != nil {
		fields["address"] = strings.TrimSpace(*upd.Address)
	}
	if upd.Phone != nil {
		fields["phone"] = strings.TrimSpace(*upd.Phone)
	}
	if email := trimmed(upd.Email); email != nil {
		if *email != "" && !validEmail(*email) {
			return nil, apperr.Validation(op, "invalid email %q", *email)
		}
		fields["email"] = *email
	}
	if len(fields) > 0 {
		if err := patch(ctx, m.d, op, models.CollectionHostels, "hostel", id, fields); err != nil {
			return nil, err
		}
		m.d.publish(ctx, events.HostelUpdated, id, id, nil)
	}
	return m.Get(ctx, id)
}

// Deactivate marks the hostel inactive. Deactivating twice is a no-op.
func (m *HostelManager) Deactivate(ctx context.Context, id string) (*models.Hostel, error) {
	const op = "deactivate hostel"

	h, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !h.IsActive() {
		return h, nil
	}
	if err := patch(ctx, m.d, op, models.CollectionHostels, "hostel", id,
		store.Fields{"status": string(models.HostelStatusInactive)}); err != nil {
		return nil, err
	}
	m.d.publish(ctx, events.HostelDeactivated, id, id, nil)
	return m.Get(ctx, id)
}

// requireActive loads a hostel that new rooms or tenants can be added to
func requireActive(ctx context.Context, d *deps, op, id string) (*models.Hostel, error) {
	h, err := load[models.Hostel](ctx, d, op, models.CollectionHostels, "hostel", id)
	if err != nil {
		return nil, err
	}
	if !h.IsActive() {
		return nil, apperr.Conflict(op, "hostel %q is inactive", id)
	}
	return h, nil
}
