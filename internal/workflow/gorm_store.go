package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/lonkyzooner/thunderfire-sub002/internal/db"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

type stateRow struct {
	TenantID    string    `gorm:"primaryKey;size:191"`
	UserID      string    `gorm:"primaryKey;size:191"`
	CurrentStep string    `gorm:"size:191;not null"`
	LastAction  string    `gorm:"size:191;not null;default:''"`
	Situation   string    `gorm:"type:text;not null;default:''"`
	Timestamp   int64     `gorm:"not null;default:0"`
	ExtraJSON   string    `gorm:"type:text"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (stateRow) TableName() string {
	return "workflow_states"
}

func toState(row stateRow) (types.WorkflowState, error) {
	state := types.WorkflowState{
		CurrentStep: row.CurrentStep,
		LastAction:  row.LastAction,
		Situation:   row.Situation,
		Timestamp:   row.Timestamp,
		Extra:       map[string]any{},
		UpdatedAt:   row.UpdatedAt,
	}
	if row.ExtraJSON != "" {
		if err := json.Unmarshal([]byte(row.ExtraJSON), &state.Extra); err != nil {
			return types.WorkflowState{}, fmt.Errorf("decode workflow extra: %w", err)
		}
	}
	return state, nil
}

func toRow(key types.SessionKey, state types.WorkflowState) (stateRow, error) {
	row := stateRow{
		TenantID:    key.TenantID,
		UserID:      key.UserID,
		CurrentStep: state.CurrentStep,
		LastAction:  state.LastAction,
		Situation:   state.Situation,
		Timestamp:   state.Timestamp,
		UpdatedAt:   state.UpdatedAt,
	}
	if len(state.Extra) > 0 {
		encoded, err := json.Marshal(state.Extra)
		if err != nil {
			return stateRow{}, fmt.Errorf("encode workflow extra: %w", err)
		}
		row.ExtraJSON = string(encoded)
	}
	return row, nil
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := dbpkg.OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open gorm store: %w", err)
	}
	return NewGormStoreFromDB(gormDB)
}

func NewGormStoreFromDB(gormDB *gorm.DB) (*GormStore, error) {
	if err := gormDB.AutoMigrate(&stateRow{}); err != nil {
		return nil, fmt.Errorf("migrate workflow tables: %w", err)
	}
	return &GormStore{db: gormDB}, nil
}

func (s *GormStore) GetCurrent(ctx context.Context, key types.SessionKey) (types.WorkflowState, error) {
	if err := key.Validate(); err != nil {
		return types.WorkflowState{}, err
	}
	var row stateRow
	err := s.db.WithContext(ctx).Where("tenant_id = ? AND user_id = ?", key.TenantID, key.UserID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.WorkflowState{}, ErrNotFound
	}
	if err != nil {
		return types.WorkflowState{}, fmt.Errorf("get workflow state: %w", err)
	}
	return toState(row)
}

func (s *GormStore) Update(ctx context.Context, key types.SessionKey, partial map[string]any) (types.WorkflowState, error) {
	if err := key.Validate(); err != nil {
		return types.WorkflowState{}, err
	}

	var out types.WorkflowState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		state := defaultState(now)

		var row stateRow
		err := tx.Where("tenant_id = ? AND user_id = ?", key.TenantID, key.UserID).Take(&row).Error
		switch {
		case err == nil:
			if state, err = toState(row); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("load workflow state: %w", err)
		}

		next, err := applyPartial(state, partial)
		if err != nil {
			return err
		}
		next.UpdatedAt = now

		updated, err := toRow(key, next)
		if err != nil {
			return err
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"current_step", "last_action", "situation", "timestamp", "extra_json", "updated_at"}),
		}).Create(&updated).Error
		if err != nil {
			return fmt.Errorf("save workflow state: %w", err)
		}
		out = next
		return nil
	})
	if err != nil {
		return types.WorkflowState{}, err
	}
	return out, nil
}

func (s *GormStore) Reset(ctx context.Context, key types.SessionKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Where("tenant_id = ? AND user_id = ?", key.TenantID, key.UserID).Delete(&stateRow{}).Error
	if err != nil {
		return fmt.Errorf("reset workflow state: %w", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
