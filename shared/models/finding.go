package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MismatchKind classifies a tenant/room inconsistency found by reconciliation
type MismatchKind string

const (
	// a bed points at a tenant that no longer exists
	MismatchBedTenantMissing MismatchKind = "bed_tenant_missing"
	// a bed points at a tenant that is not checked in
	MismatchBedTenantNotCheckedIn MismatchKind = "bed_tenant_not_checked_in"
	// a bed points at a checked-in tenant whose reference names another bed
	MismatchBedTenantElsewhere MismatchKind = "bed_tenant_elsewhere"
	// a checked-in tenant references a room that does not exist
	MismatchTenantRoomMissing MismatchKind = "tenant_room_missing"
	// a checked-in tenant references a bed number the room does not have
	MismatchTenantBedMissing MismatchKind = "tenant_bed_missing"
	// a checked-in tenant's bed is free or held by someone else
	MismatchTenantBedNotLinked MismatchKind = "tenant_bed_not_linked"
	// a tenant's status and room/bed reference disagree
	MismatchTenantStatusLinkage MismatchKind = "tenant_status_linkage"
	// a room's stored counters disagree with its bed list
	MismatchRoomCountsStale MismatchKind = "room_counts_stale"
)

// Mismatch is a single reconciliation finding
type Mismatch struct {
	Kind      MismatchKind `json:"kind"`
	RoomID    string       `json:"roomId,omitempty"`
	BedNumber int          `json:"bedNumber,omitempty"`
	TenantID  string       `json:"tenantId,omitempty"`
	Detail    string       `json:"detail"`
}

// ReconciliationReport is the result of one reconciliation pass over a hostel
type ReconciliationReport struct {
	HostelID     string     `json:"hostelId"`
	CheckedAt    time.Time  `json:"checkedAt"`
	RoomsScanned int        `json:"roomsScanned"`
	TenantsSeen  int        `json:"tenantsScanned"`
	Mismatches   []Mismatch `json:"mismatches"`
}

// Consistent reports whether the pass found nothing
func (r *ReconciliationReport) Consistent() bool {
	return len(r.Mismatches) == 0
}

// FindingStatus represents the lifecycle of a persisted finding
type FindingStatus string

const (
	FindingStatusOpen     FindingStatus = "open"
	FindingStatusResolved FindingStatus = "resolved"
)

// ReconciliationFinding is a mismatch persisted by the worker's sweep
type ReconciliationFinding struct {
	ID         uuid.UUID     `json:"id" gorm:"type:varchar(36);primary_key"`
	HostelID   string        `json:"hostel_id" gorm:"type:varchar(36);not null;index"`
	Kind       MismatchKind  `json:"kind" gorm:"type:varchar(40);not null"`
	RoomID     string        `json:"room_id" gorm:"type:varchar(36)"`
	BedNumber  int           `json:"bed_number"`
	TenantID   string        `json:"tenant_id" gorm:"type:varchar(36)"`
	Detail     string        `json:"detail" gorm:"not null"`
	Status     FindingStatus `json:"status" gorm:"type:varchar(20);not null;default:'open';index"`
	SeenCount  int           `json:"seen_count" gorm:"default:1"`
	FirstSeen  time.Time     `json:"first_seen"`
	LastSeen   time.Time     `json:"last_seen"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// TableName returns the table name for the ReconciliationFinding model
func (ReconciliationFinding) TableName() string {
	return "reconciliation_findings"
}

// Key identifies the same mismatch across sweeps
func (f *ReconciliationFinding) Key() string {
	return string(f.Kind) + "|" + f.RoomID + "|" + strconv.Itoa(f.BedNumber) + "|" + f.TenantID
}

// NewFinding builds an open finding for a mismatch seen at checkedAt
func NewFinding(hostelID string, m Mismatch, checkedAt time.Time) ReconciliationFinding {
	return ReconciliationFinding{
		ID:        uuid.New(),
		HostelID:  hostelID,
		Kind:      m.Kind,
		RoomID:    m.RoomID,
		BedNumber: m.BedNumber,
		TenantID:  m.TenantID,
		Detail:    m.Detail,
		Status:    FindingStatusOpen,
		SeenCount: 1,
		FirstSeen: checkedAt,
		LastSeen:  checkedAt,
	}
}
