package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
)

// Store writes every accepted room state through to Postgres so rooms survive
// a restart. The in-memory lobbies stay authoritative; the database is only
// read at startup.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db, log)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&RoomRecord{}, &PlayerRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) SaveRoom(ctx context.Context, st engine.State, version int) error {
	rec := toRecord(st, version)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "optional_characters", "round", "version", "updated_at"}),
		}
		if err := tx.Clauses(upsert).Omit("Players").Create(&rec).Error; err != nil {
			return err
		}
		if err := tx.Where("room_code = ?", rec.Code).Delete(&PlayerRecord{}).Error; err != nil {
			return err
		}
		if len(rec.Players) == 0 {
			return nil
		}
		return tx.Create(&rec.Players).Error
	})
	if err != nil {
		return fmt.Errorf("save room %s: %w", st.Code, err)
	}
	s.log.Debug("room saved", zap.String("room_code", st.Code), zap.Int("version", version))
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_code = ?", code).Delete(&PlayerRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("code = ?", code).Delete(&RoomRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

// LoadRooms returns every stored room with players in seat order.
func (s *Store) LoadRooms(ctx context.Context) ([]Room, error) {
	var recs []RoomRecord
	err := s.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("seat") }).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	rooms := make([]Room, 0, len(recs))
	for _, rec := range recs {
		rooms = append(rooms, fromRecord(rec))
	}
	return rooms, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
