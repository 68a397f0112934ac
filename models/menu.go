package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Menu struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	RestaurantID uint            `gorm:"not null;index" json:"restaurant_id"`
	CategoryID   *uint           `json:"category_id,omitempty"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Available    bool            `gorm:"not null;default:true" json:"available"`
	Recipe       []RecipeLink    `gorm:"foreignKey:MenuID" json:"recipe,omitempty"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}
