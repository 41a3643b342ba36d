// Package store persists trade logs. The engine treats the store as an
// optional collaborator: a nil store disables persistence without
// touching the scan loop.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yeomjw0907/catchdeal/internal/model"
)

// TradeLogStore writes completed purchases to MySQL.
type TradeLogStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to MySQL and migrates the trade log schema.
func Open(dsn string, logger *slog.Logger) (*TradeLogStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.AutoMigrate(&model.TradeLog{}); err != nil {
		return nil, fmt.Errorf("migrate trade logs: %w", err)
	}
	logger.Info("trade store ready")
	return &TradeLogStore{db: db, logger: logger}, nil
}

// Insert records one completed purchase. Safe on a nil store.
func (s *TradeLogStore) Insert(ctx context.Context, entry *model.TradeLog) error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert trade log: %w", err)
	}
	return nil
}

// Recent returns the latest n trade logs, newest first. Safe on a nil
// store.
func (s *TradeLogStore) Recent(ctx context.Context, n int) ([]model.TradeLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var logs []model.TradeLog
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(n).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("query trade logs: %w", err)
	}
	return logs, nil
}

// Close releases the underlying connection pool.
func (s *TradeLogStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
