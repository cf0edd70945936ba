package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

// FindingStore persists reconciliation findings across sweeps. A mismatch
// seen again bumps its existing row; an open row missing from a later
// report is marked resolved.
type FindingStore struct {
	db *gorm.DB
}

// NewFindingStore creates a finding store on db
func NewFindingStore(db *gorm.DB) *FindingStore {
	return &FindingStore{db: db}
}

// AutoMigrate creates or updates the findings table
func (s *FindingStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&models.ReconciliationFinding{}); err != nil {
		return fmt.Errorf("failed to migrate findings table: %w", err)
	}
	return nil
}

// RecordResult counts what a report changed
type RecordResult struct {
	Opened   int `json:"opened"`
	Seen     int `json:"seen"`
	Resolved int `json:"resolved"`
}

// Record merges a report into the hostel's findings
func (s *FindingStore) Record(ctx context.Context, report *models.ReconciliationReport) (RecordResult, error) {
	var result RecordResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open []models.ReconciliationFinding
		if err := tx.Where("hostel_id = ? AND status = ?", report.HostelID, models.FindingStatusOpen).
			Find(&open).Error; err != nil {
			return err
		}
		byKey := make(map[string]*models.ReconciliationFinding, len(open))
		for i := range open {
			byKey[open[i].Key()] = &open[i]
		}

		seen := make(map[string]bool, len(report.Mismatches))
		for _, m := range report.Mismatches {
			finding := models.NewFinding(report.HostelID, m, report.CheckedAt)
			key := finding.Key()
			if seen[key] {
				continue
			}
			seen[key] = true

			if existing, ok := byKey[key]; ok {
				if err := tx.Model(existing).Updates(map[string]interface{}{
					"seen_count": existing.SeenCount + 1,
					"last_seen":  report.CheckedAt,
					"detail":     m.Detail,
				}).Error; err != nil {
					return err
				}
				result.Seen++
				continue
			}
			if err := tx.Create(&finding).Error; err != nil {
				return err
			}
			result.Opened++
		}

		for key, existing := range byKey {
			if seen[key] {
				continue
			}
			resolvedAt := report.CheckedAt
			if err := tx.Model(existing).Updates(map[string]interface{}{
				"status":      models.FindingStatusResolved,
				"resolved_at": &resolvedAt,
			}).Error; err != nil {
				return err
			}
			result.Resolved++
		}
		return nil
	})
	if err != nil {
		return RecordResult{}, apperr.Transient("record findings", err)
	}
	return result, nil
}

// List returns findings, newest first. Empty hostelID or status match all.
func (s *FindingStore) List(ctx context.Context, hostelID string, status models.FindingStatus) ([]models.ReconciliationFinding, error) {
	query := s.db.WithContext(ctx).Model(&models.ReconciliationFinding{})
	if hostelID != "" {
		query = query.Where("hostel_id = ?", hostelID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var findings []models.ReconciliationFinding
	if err := query.Order("last_seen DESC").Find(&findings).Error; err != nil {
		return nil, apperr.Transient("list findings", err)
	}
	return findings, nil
}

// CountOpen returns the number of open findings across all hostels
func (s *FindingStore) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ReconciliationFinding{}).
		Where("status = ?", models.FindingStatusOpen).
		Count(&n).Error
	if err != nil {
		return 0, apperr.Transient("count findings", err)
	}
	return n, nil
}
