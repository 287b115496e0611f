package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/lonkyzooner/thunderfire-sub002/internal/db"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

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

// NewGormStoreFromDB migrates the session tables on an existing handle.
func NewGormStoreFromDB(gormDB *gorm.DB) (*GormStore, error) {
	store := &GormStore{db: gormDB}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migrate session tables: %w", err)
	}
	return store, nil
}

func (s *GormStore) migrate() error {
	return s.db.AutoMigrate(&sessionRow{}, &conversationRow{}, &actionRow{}, &situationalRow{})
}

func (s *GormStore) touch(tx *gorm.DB, key types.SessionKey, now time.Time) error {
	row := sessionRow{TenantID: key.TenantID, UserID: key.UserID, CreatedAt: now, LastUpdated: now}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_updated"}),
	}).Create(&row).Error
}

func (s *GormStore) Get(ctx context.Context, key types.SessionKey) (types.SessionRecord, error) {
	if err := key.Validate(); err != nil {
		return types.SessionRecord{}, err
	}

	db := s.db.WithContext(ctx)
	now := time.Now().UTC()
	row := sessionRow{TenantID: key.TenantID, UserID: key.UserID, CreatedAt: now, LastUpdated: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return types.SessionRecord{}, fmt.Errorf("ensure session: %w", err)
	}
	if err := db.Where("tenant_id = ? AND user_id = ?", key.TenantID, key.UserID).Take(&row).Error; err != nil {
		return types.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}

	rec := newRecord(key, row.LastUpdated)

	var messages []conversationRow
	if err := db.Where("tenant_id = ? AND user_id = ?", key.TenantID, key.UserID).Order("id ASC").Find(&messages).Error; err != nil {
		return types.SessionRecord{}, fmt.Errorf("get conversation: %w", err)
	}
	for _, m := range messages {
		rec.ConversationHistory = append(rec.ConversationHistory, m.toEntry())
	}

	var actions []actionRow
	if err := db.Where("tenant_id = ? AND user_id = ?", key.TenantID, key.UserID).Order("id ASC").Find(&actions).Error; err != nil {
		return types.SessionRecord{}, fmt.Errorf("get action log: %w", err)
	}
	for _, a := range actions {
		entry, err := a.toEntry()
		if err != nil {
			return types.SessionRecord{}, fmt.Errorf("decode action %d: %w", a.ID, err)
		}
		rec.ActionLog = append(rec.ActionLog, entry)
	}

	var fields []situationalRow
	if err := db.Where("tenant_id = ? AND user_id = ?", key.TenantID, key.UserID).Find(&fields).Error; err != nil {
		return types.SessionRecord{}, fmt.Errorf("get situational data: %w", err)
	}
	for _, f := range fields {
		var value any
		if err := json.Unmarshal([]byte(f.ValueJSON), &value); err != nil {
			return types.SessionRecord{}, fmt.Errorf("decode situational field %s: %w", f.Field, err)
		}
		rec.SituationalData[f.Field] = value
	}
	return rec, nil
}

func (s *GormStore) AppendMessage(ctx context.Context, key types.SessionKey, role types.Role, content string) error {
	if err := validateMessage(key, role, content); err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.touch(tx, key, now); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		row := conversationRow{
			TenantID:  key.TenantID,
			UserID:    key.UserID,
			Role:      string(role),
			Content:   content,
			CreatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
}

func (s *GormStore) AppendAction(ctx context.Context, key types.SessionKey, actionType string, details map[string]any) error {
	if err := validateAction(key, actionType); err != nil {
		return err
	}
	var detailsJSON string
	if len(details) > 0 {
		encoded, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal action details: %w", err)
		}
		detailsJSON = string(encoded)
	}

	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.touch(tx, key, now); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		row := actionRow{
			TenantID:    key.TenantID,
			UserID:      key.UserID,
			Type:        actionType,
			DetailsJSON: detailsJSON,
			CreatedAt:   now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("append action: %w", err)
		}
		return nil
	})
}

func (s *GormStore) MergeSituationalData(ctx context.Context, key types.SessionKey, partial map[string]any) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if len(partial) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]situationalRow, 0, len(partial))
	for field, value := range partial {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal situational field %s: %w", field, err)
		}
		rows = append(rows, situationalRow{
			TenantID:  key.TenantID,
			UserID:    key.UserID,
			Field:     field,
			ValueJSON: string(encoded),
			UpdatedAt: now,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.touch(tx, key, now); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}, {Name: "field"}},
			DoUpdates: clause.AssignmentColumns([]string{"value_json", "updated_at"}),
		}).Create(&rows).Error
		if err != nil {
			return fmt.Errorf("merge situational data: %w", err)
		}
		return nil
	})
}

func (s *GormStore) Reset(ctx context.Context, key types.SessionKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&conversationRow{}, &actionRow{}, &situationalRow{}, &sessionRow{}} {
			if err := tx.Where("tenant_id = ? AND user_id = ?", key.TenantID, key.UserID).Delete(model).Error; err != nil {
				return fmt.Errorf("reset session: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
