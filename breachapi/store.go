package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// LeakedPassword is one SHA-1 split into a 5-char range prefix and 35-char
// suffix, k-anonymity style: queries reveal only the prefix.
type LeakedPassword struct {
	HashPrefix string `gorm:"primaryKey;size:5"`
	HashSuffix string `gorm:"primaryKey;size:35"`
	Count      int
}

// BreachStat is the singleton totals row (id 1).
type BreachStat struct {
	ID             uint `gorm:"primaryKey"`
	TotalPasswords int64
	TotalBreaches  int64
	LastUpdated    *time.Time
}

// Store wraps the sqlite database behind the API.
type Store struct {
	db *gorm.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&LeakedPassword{}, &BreachStat{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Range returns every stored suffix for a 5-char prefix.
func (s *Store) Range(prefix string) ([]LeakedPassword, error) {
	var rows []LeakedPassword
	err := s.db.Where("hash_prefix = ?", prefix).Find(&rows).Error
	return rows, err
}

// Upsert inserts or replaces one hash entry.
func (s *Store) Upsert(prefix, suffix string, count int) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash_prefix"}, {Name: "hash_suffix"}},
		DoUpdates: clause.AssignmentColumns([]string{"count"}),
	}).Create(&LeakedPassword{HashPrefix: prefix, HashSuffix: suffix, Count: count}).Error
}

func (s *Store) Total() (int64, error) {
	var n int64
	err := s.db.Model(&LeakedPassword{}).Count(&n).Error
	return n, err
}

// Stats returns the totals row; a missing row reads as zeroes.
func (s *Store) Stats() (*BreachStat, error) {
	var stat BreachStat
	err := s.db.First(&stat, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &BreachStat{ID: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// UpdateTotals refreshes the password total and timestamp, leaving the
// breach counter untouched.
func (s *Store) UpdateTotals(total int64, at time.Time) error {
	stat := BreachStat{ID: 1, TotalPasswords: total, LastUpdated: &at}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_passwords", "last_updated"}),
	}).Create(&stat).Error
}

func (s *Store) Close() error {
	if db, err := s.db.DB(); err == nil {
		return db.Close()
	}
	return nil
}
