package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lonkyzooner/thunderfire-sub002/internal/ids"
)

type complianceRow struct {
	ID          string    `gorm:"primaryKey;size:64"`
	EventType   string    `gorm:"size:64;not null;index"`
	TenantID    string    `gorm:"size:191;not null;index:idx_compliance_key,priority:1"`
	UserID      string    `gorm:"size:191;not null;index:idx_compliance_key,priority:2"`
	PayloadJSON string    `gorm:"type:text"`
	OccurredAt  time.Time `gorm:"not null;index"`
}

func (complianceRow) TableName() string {
	return "compliance_log"
}

// GormSink persists entries to the compliance_log table.
type GormSink struct {
	db *gorm.DB
}

func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&complianceRow{}); err != nil {
		return nil, fmt.Errorf("migrate compliance log: %w", err)
	}
	return &GormSink{db: db}, nil
}

func (s *GormSink) Log(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	occurred := entry.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	row := complianceRow{
		ID:          ids.New(),
		EventType:   entry.EventType,
		TenantID:    entry.TenantID,
		UserID:      entry.UserID,
		PayloadJSON: string(payload),
		OccurredAt:  occurred,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for a user, newest first.
func (s *GormSink) Recent(ctx context.Context, tenantID, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []complianceRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := Entry{EventType: row.EventType, TenantID: row.TenantID, UserID: row.UserID, OccurredAt: row.OccurredAt}
		if row.PayloadJSON != "" {
			if err := json.Unmarshal([]byte(row.PayloadJSON), &entry.Payload); err != nil {
				return nil, fmt.Errorf("decode audit entry %s: %w", row.ID, err)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
