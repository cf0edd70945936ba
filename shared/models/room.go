package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bed is the smallest occupancy unit of a room. IsOccupied is true iff
// TenantID is set.
type Bed struct {
	BedNumber  int             `json:"bedNumber"`
	IsOccupied bool            `json:"isOccupied"`
	TenantID   *string         `json:"tenantId"`
	Rent       decimal.Decimal `json:"rent"`
}

// Room represents a room and its beds. Beds are numbered 1..TotalBeds.
type Room struct {
	ID            string          `json:"id"`
	HostelID      string          `json:"hostelId"`
	RoomNumber    string          `json:"roomNumber"`
	RoomType      string          `json:"roomType,omitempty"`
	Floor         int             `json:"floor"`
	TotalBeds     int             `json:"totalBeds"`
	RentPerBed    decimal.Decimal `json:"rentPerBed"`
	Beds          []Bed           `json:"beds"`
	OccupiedBeds  int             `json:"occupiedBeds"`
	AvailableBeds int             `json:"availableBeds"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Bed returns the bed with the given number, or nil
func (r *Room) Bed(number int) *Bed {
	for i := range r.Beds {
		if r.Beds[i].BedNumber == number {
			return &r.Beds[i]
		}
	}
	return nil
}

// CountOccupied counts occupied beds from the bed list
func (r *Room) CountOccupied() int {
	n := 0
	for _, b := range r.Beds {
		if b.IsOccupied {
			n++
		}
	}
	return n
}

// RecountBeds recomputes the derived occupancy counters from the bed list
func (r *Room) RecountBeds() {
	r.OccupiedBeds = r.CountOccupied()
	r.AvailableBeds = r.TotalBeds - r.OccupiedBeds
}

// HasOccupiedBeds reports whether any bed is taken
func (r *Room) HasOccupiedBeds() bool {
	return r.CountOccupied() > 0
}
