package models

import "time"

// Collection names in the document store
const (
	CollectionHostels  = "hostels"
	CollectionRooms    = "rooms"
	CollectionTenants  = "tenants"
	CollectionPayments = "payments"
	CollectionUsers    = "users"
)

// HostelStatus represents whether a hostel is in service
type HostelStatus string

const (
	HostelStatusActive   HostelStatus = "active"
	HostelStatusInactive HostelStatus = "inactive"
)

// HostelStats is the denormalized rollup written onto a hostel by the stats
// aggregator. AvailableBeds is always TotalBeds - OccupiedBeds.
type HostelStats struct {
	TotalRooms    int     `json:"totalRooms"`
	TotalBeds     int     `json:"totalBeds"`
	OccupiedBeds  int     `json:"occupiedBeds"`
	AvailableBeds int     `json:"availableBeds"`
	TotalTenants  int     `json:"totalTenants"`
	ActiveTenants int     `json:"activeTenants"`
	OccupancyRate float64 `json:"occupancyRate"`
}

// Hostel represents a hostel owned by a registered owner
type Hostel struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Name      string       `json:"name"`
	Address   string       `json:"address"`
	Phone     string       `json:"phone"`
	Email     string       `json:"email"`
	Status    HostelStatus `json:"status"`
	HostelStats
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsActive checks if the hostel is in service
func (h *Hostel) IsActive() bool {
	return h.Status == HostelStatusActive
}

// Snapshot returns the stats rollup currently stored on the hostel
func (h *Hostel) Snapshot() HostelStats {
	return h.HostelStats
}
