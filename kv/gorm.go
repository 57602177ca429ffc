package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// blobRow is one key with its whole serialized value. The table is written
// one full value at a time, which keeps the index's read-modify-write
// semantics identical across backends.
type blobRow struct {
	Key       string `gorm:"primaryKey;column:k;size:191"`
	Value     string `gorm:"column:v;type:longtext"`
	UpdatedAt time.Time
}

// TableName specifies the table name for blobRow.
func (blobRow) TableName() string {
	return "kv_blobs"
}

// gormStore implements Store on a GORM connection.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by the given GORM database,
// migrating the blob table if needed.
func NewGormStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&blobRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_blobs: %w", err)
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) Get(ctx context.Context, key string) (string, error) {
	var row blobRow
	err := s.db.WithContext(ctx).First(&row, "k = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("mysql get %s: %w", key, err)
	}
	return row.Value, nil
}

func (s *gormStore) Set(ctx context.Context, key, value string) error {
	row := blobRow{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("mysql set %s: %w", key, err)
	}
	return nil
}
