// Package persistence provides the storage backends for the ledger document.
// Each backend holds exactly one serialized snapshot under a fixed key.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/amirasaad/studentaid/pkg/ledger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type snapshotRow struct {
	Key       string `gorm:"primaryKey;size:128"`
	Version   uint64 `gorm:"not null"`
	Document  []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (snapshotRow) TableName() string { return "ledger_snapshots" }

// PostgresPersister stores the document as one row of ledger_snapshots.
type PostgresPersister struct {
	db  *gorm.DB
	key string
}

// NewPostgresPersister returns a persister bound to the row named key.
func NewPostgresPersister(db *gorm.DB, key string) *PostgresPersister {
	return &PostgresPersister{db: db, key: key}
}

func (p *PostgresPersister) Load(ctx context.Context) ([]byte, error) {
	var row snapshotRow
	err := p.db.WithContext(ctx).Where("key = ?", p.key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return row.Document, nil
}

func (p *PostgresPersister) Save(ctx context.Context, data []byte) error {
	row := snapshotRow{
		Key:      p.key,
		Version:  documentVersion(data),
		Document: data,
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "document", "updated_at"}),
	}).Create(&row).Error
}

// documentVersion extracts the snapshot version for the indexed column. A
// document without one is stored as version 0.
func documentVersion(data []byte) uint64 {
	var head struct {
		Version uint64 `json:"version"`
	}
	_ = json.Unmarshal(data, &head)
	return head.Version
}

var _ ledger.Persister = (*PostgresPersister)(nil)
