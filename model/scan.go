package model

import "time"

// Scan run statuses.
const (
	ScanStatusRunning  = "running"
	ScanStatusFinished = "finished"
	ScanStatusFailed   = "failed"
)

// ScanRun records one import of a library root.
type ScanRun struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Root       string     `gorm:"type:varchar(767);not null" json:"root"`
	Status     string     `gorm:"type:varchar(20);not null;index" json:"status"`
	FilesSeen  int        `gorm:"not null;default:0" json:"filesSeen"`
	Imported   int        `gorm:"not null;default:0" json:"imported"`
	Failed     int        `gorm:"not null;default:0" json:"failed"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time  `gorm:"not null;index" json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// TableName 指定表名
func (ScanRun) TableName() string {
	return "scan_runs"
}
