package models

import (
	"time"

	"gorm.io/datatypes"
)

// DBChange adalah outbox: ditulis di transaksi yang sama dengan perubahan yang dijelaskan,
// lalu dikirim oleh ChangeMonitor.
type DBChange struct {
	ID           uint           `gorm:"primaryKey"`
	EventID      string         `gorm:"type:varchar(36);not null;uniqueIndex"`
	RestaurantID uint           `gorm:"not null;index"`
	Kind         string         `gorm:"type:varchar(50);not null"`
	RecordID     uint           `gorm:"not null"`
	Payload      datatypes.JSON `gorm:"type:json"`
	ChangedAt    time.Time      `gorm:"not null"`
	Processed    bool           `gorm:"default:false;index:idx_processed"`
}
