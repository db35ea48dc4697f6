package main

import (
	"time"

	"gorm.io/gorm"
)

// DBSession records one accepted session.
type DBSession struct {
	gorm.Model
	SessionID  int `gorm:"uniqueIndex;not null"`
	Codename   string
	RemoteAddr string
	OpenedAt   time.Time
	ClosedAt   *time.Time
}

// DBCommand records one command line issued over a session's channel.
type DBCommand struct {
	gorm.Model
	SessionID int `gorm:"index;not null"`
	Command   string
}

// DBTransfer records one retrieved artifact.
type DBTransfer struct {
	gorm.Model
	SessionID    int `gorm:"index;not null"`
	RemotePath   string
	LocalPath    string
	ReportedSize int64
	Size         int
	SHA256       string
}
