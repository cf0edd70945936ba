package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
)

// DocumentRecord is the relational row behind every document.
type DocumentRecord struct {
	ID         string         `gorm:"type:varchar(36);primaryKey"`
	Collection string         `gorm:"type:varchar(64);not null;index"`
	Body       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"index"`
	UpdatedAt  time.Time
}

// TableName returns the table name for the DocumentRecord model
func (DocumentRecord) TableName() string {
	return "documents"
}

// GormStore keeps documents as JSON bodies in a single relational table.
// Filtering and ordering run in process after a per-collection scan.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore wraps an open gorm connection. A nil clock defaults to time.Now.
func NewGormStore(db *gorm.DB, now func() time.Time) *GormStore {
	if now == nil {
		now = time.Now
	}
	return &GormStore{db: db, now: now}
}

// AutoMigrate creates or updates the documents table.
func (s *GormStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&DocumentRecord{}); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

func (s *GormStore) toDocument(rec *DocumentRecord) (*Document, error) {
	fields := Fields{}
	if len(rec.Body) > 0 {
		if err := json.Unmarshal(rec.Body, &fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s/%s: %w", rec.Collection, rec.ID, err)
		}
	}
	return &Document{
		ID:         rec.ID,
		Collection: rec.Collection,
		Fields:     fields,
		CreatedAt:  rec.CreatedAt.UTC(),
		UpdatedAt:  rec.UpdatedAt.UTC(),
	}, nil
}

// Create inserts a new document.
func (s *GormStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	body, err := normalize(fields)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}

	now := s.now().UTC()
	rec := DocumentRecord{
		ID:         uuid.New().String(),
		Collection: collection,
		Body:       datatypes.JSON(raw),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", apperr.Transient("create "+collection, err)
	}
	return rec.ID, nil
}

// Get loads one document.
func (s *GormStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var rec DocumentRecord
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, apperr.Transient("get "+collection, err)
	}
	return s.toDocument(&rec)
}

// List scans a collection and applies filters and ordering.
func (s *GormStore) List(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error) {
	var recs []DocumentRecord
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, apperr.Transient("list "+collection, err)
	}

	docs := make([]Document, 0, len(recs))
	for i := range recs {
		doc, err := s.toDocument(&recs[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return applyQuery(docs, filters, order), nil
}

// Update merges top-level fields into the stored body.
func (s *GormStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	patch, err := normalize(fields)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec DocumentRecord
		if err := tx.Where("collection = ? AND id = ?", collection, id).First(&rec).Error; err != nil {
			return err
		}
		body := Fields{}
		if len(rec.Body) > 0 {
			if err := json.Unmarshal(rec.Body, &body); err != nil {
				return fmt.Errorf("failed to unmarshal %s/%s: %w", collection, id, err)
			}
		}
		for k, v := range patch {
			body[k] = v
		}
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		return tx.Model(&DocumentRecord{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]interface{}{
				"body":       datatypes.JSON(raw),
				"updated_at": s.now().UTC(),
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return apperr.Transient("update "+collection, err)
	}
	return nil
}

// Delete removes a document.
func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&DocumentRecord{})
	if res.Error != nil {
		return apperr.Transient("delete "+collection, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
