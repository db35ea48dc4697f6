package main

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the sqlite store for sessions, commands and transfers.
// Failures here are logged by callers and never take down the relay.
type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Reduce log noise
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&DBSession{}, &DBCommand{}, &DBTransfer{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (d *Database) SaveSession(sess *Session) error {
	return d.db.Create(&DBSession{
		SessionID:  sess.ID,
		Codename:   sess.Codename,
		RemoteAddr: sess.RemoteAddr,
		OpenedAt:   sess.Created,
	}).Error
}

func (d *Database) MarkSessionClosed(sessionID int, closedAt time.Time) error {
	return d.db.Model(&DBSession{}).Where("session_id = ?", sessionID).Update("closed_at", &closedAt).Error
}

// LastSessionID returns the highest identifier ever issued, so the registry
// can keep the never-reused guarantee across restarts.
func (d *Database) LastSessionID() (int, error) {
	var last int
	err := d.db.Model(&DBSession{}).Select("COALESCE(MAX(session_id), 0)").Scan(&last).Error
	return last, err
}

func (d *Database) SaveCommand(sessionID int, command string) error {
	return d.db.Create(&DBCommand{SessionID: sessionID, Command: command}).Error
}

func (d *Database) RecentCommands(limit int) ([]DBCommand, error) {
	if limit <= 0 {
		limit = 100
	}
	var commands []DBCommand
	err := d.db.Order("created_at desc").Limit(limit).Find(&commands).Error
	return commands, err
}

func (d *Database) SaveTransfer(sessionID int, res *TransferResult) error {
	return d.db.Create(&DBTransfer{
		SessionID:    sessionID,
		RemotePath:   res.RemotePath,
		LocalPath:    res.LocalPath,
		ReportedSize: res.ReportedSize,
		Size:         res.Size,
		SHA256:       res.SHA256,
	}).Error
}

func (d *Database) RecentTransfers(limit int) ([]DBTransfer, error) {
	if limit <= 0 {
		limit = 100
	}
	var transfers []DBTransfer
	err := d.db.Order("created_at desc").Limit(limit).Find(&transfers).Error
	return transfers, err
}

func (d *Database) Close() error {
	if db, err := d.db.DB(); err == nil {
		return db.Close()
	}
	return nil
}
