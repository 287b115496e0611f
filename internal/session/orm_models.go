package session

import (
	"encoding/json"
	"time"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

type sessionRow struct {
	TenantID    string    `gorm:"primaryKey;size:191"`
	UserID      string    `gorm:"primaryKey;size:191"`
	CreatedAt   time.Time `gorm:"not null"`
	LastUpdated time.Time `gorm:"not null"`
}

func (sessionRow) TableName() string {
	return "sessions"
}

type conversationRow struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	TenantID  string    `gorm:"size:191;not null;index:idx_conversation_key,priority:1"`
	UserID    string    `gorm:"size:191;not null;index:idx_conversation_key,priority:2"`
	Role      string    `gorm:"size:32;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (conversationRow) TableName() string {
	return "conversation_entries"
}

func (r conversationRow) toEntry() types.ConversationEntry {
	return types.ConversationEntry{
		Role:      types.Role(r.Role),
		Content:   r.Content,
		Timestamp: r.CreatedAt,
	}
}

type actionRow struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	TenantID    string    `gorm:"size:191;not null;index:idx_action_key,priority:1"`
	UserID      string    `gorm:"size:191;not null;index:idx_action_key,priority:2"`
	Type        string    `gorm:"size:191;not null"`
	DetailsJSON string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (actionRow) TableName() string {
	return "action_entries"
}

func (r actionRow) toEntry() (types.ActionEntry, error) {
	entry := types.ActionEntry{Type: r.Type, Timestamp: r.CreatedAt}
	if r.DetailsJSON != "" {
		if err := json.Unmarshal([]byte(r.DetailsJSON), &entry.Details); err != nil {
			return types.ActionEntry{}, err
		}
	}
	return entry, nil
}

// situationalRow stores one situational field per row so concurrent merges
// of different fields never overwrite each other.
type situationalRow struct {
	TenantID  string    `gorm:"primaryKey;size:191"`
	UserID    string    `gorm:"primaryKey;size:191"`
	Field     string    `gorm:"primaryKey;size:191"`
	ValueJSON string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (situationalRow) TableName() string {
	return "situational_fields"
}
