package convstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// conversationRow is the SQL projection of a record: the full document as
// JSON plus the columns needed for filtering and the optimistic version.
type conversationRow struct {
	Phone     string `gorm:"primaryKey;size:32"`
	State     string `gorm:"size:32;index"`
	Data      []byte
	Version   int64
	UpdatedAt time.Time
}

func (conversationRow) TableName() string { return "conversations" }

// GormStore persists conversation records through GORM (sqlite or postgres).
// Replace performs a compare-and-swap on the version column, so concurrent
// writers lose cleanly instead of silently overwriting each other.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm connection is required")
	}
	if err := db.AutoMigrate(&conversationRow{}); err != nil {
		return nil, fmt.Errorf("migrating conversations table: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetOrCreate(ctx context.Context, phone string) (*conversation.Record, error) {
	var row conversationRow
	err := s.db.WithContext(ctx).First(&row, "phone = ?", phone).Error
	if err == nil {
		return rowToRecord(row)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read conversation")
	}

	rec := conversation.NewRecord(phone)
	rec.UpdatedAt = time.Now().UTC()
	row, err = recordToRow(rec)
	if err != nil {
		return nil, err
	}
	// DoNothing keeps creation race-safe: if a concurrent request inserted
	// first, fall through to reading the winner.
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "create conversation")
	}
	if result.RowsAffected == 0 {
		if err := s.db.WithContext(ctx).First(&row, "phone = ?", phone).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read conversation")
		}
	}
	return rowToRecord(row)
}

func (s *GormStore) Replace(ctx context.Context, phone string, rec *conversation.Record) (*conversation.Record, error) {
	next := rec.Clone()
	next.Phone = phone
	next.Version = rec.Version + 1
	next.UpdatedAt = time.Now().UTC()

	row, err := recordToRow(next)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).
		Model(&conversationRow{}).
		Where("phone = ? AND version = ?", phone, rec.Version).
		Updates(map[string]any{
			"state":      row.State,
			"data":       row.Data,
			"version":    row.Version,
			"updated_at": row.UpdatedAt,
		})
	if result.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "write conversation")
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation was modified concurrently")
	}
	return next, nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]*conversation.Record, error) {
	var rows []conversationRow
	if err := s.db.WithContext(ctx).Order("updated_at asc").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversations")
	}
	records := make([]*conversation.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordToRow(rec *conversation.Record) (conversationRow, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return conversationRow{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode conversation")
	}
	return conversationRow{
		Phone:     rec.Phone,
		State:     string(rec.State),
		Data:      data,
		Version:   rec.Version,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func rowToRecord(row conversationRow) (*conversation.Record, error) {
	var rec conversation.Record
	if err := json.Unmarshal(row.Data, &rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode conversation")
	}
	if rec.Cart == nil {
		rec.Cart = conversation.Cart{}
	}
	rec.Version = row.Version
	rec.UpdatedAt = row.UpdatedAt
	return &rec, nil
}
