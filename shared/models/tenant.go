package models

import "time"

// TenantStatus represents the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive     TenantStatus = "active"
	TenantStatusCheckedIn  TenantStatus = "checked-in"
	TenantStatusCheckedOut TenantStatus = "checked-out"
)

// Tenant represents a person staying (or registered to stay) at a hostel.
// RoomID and BedID are set iff Status is checked-in.
type Tenant struct {
	ID               string       `json:"id"`
	HostelID         string       `json:"hostelId"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	Phone            string       `json:"phone"`
	Address          string       `json:"address,omitempty"`
	EmergencyContact string       `json:"emergencyContact,omitempty"`
	IDProof          string       `json:"idProof,omitempty"`
	RoomID           *string      `json:"roomId"`
	BedID            *int         `json:"bedId"`
	Status           TenantStatus `json:"status"`
	CheckInDate      *time.Time   `json:"checkInDate"`
	CheckOutDate     *time.Time   `json:"checkOutDate"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// IsCheckedIn checks if the tenant currently occupies a bed
func (t *Tenant) IsCheckedIn() bool {
	return t.Status == TenantStatusCheckedIn
}

// HasBed reports whether the tenant carries a room/bed reference
func (t *Tenant) HasBed() bool {
	return t.RoomID != nil && t.BedID != nil
}
