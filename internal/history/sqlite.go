package history

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore persists messages in a local SQLite database through GORM.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if necessary) the database at path and
// migrates the message tables.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&ChatMessage{}, &DirectMessage{}); err != nil {
		return nil, fmt.Errorf("migrate message tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveChatMessage inserts a room message row.
func (s *SQLiteStore) SaveChatMessage(ctx context.Context, msg *ChatMessage) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("save chat message: %w", err)
	}
	return nil
}

// SaveDirectMessage inserts a direct message row.
func (s *SQLiteStore) SaveDirectMessage(ctx context.Context, msg *DirectMessage) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("save direct message: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
