package models

import "time"

// Status meja
const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
)

type Table struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;uniqueIndex:idx_table_restaurant_name" json:"restaurant_id"`
	Name         string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_table_restaurant_name" json:"name"`
	Status       string    `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
