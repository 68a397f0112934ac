package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient -> stok bahan baku. Stock boleh negatif, deduction tidak pernah menolak order.
type Ingredient struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	RestaurantID      uint            `gorm:"not null;index" json:"restaurant_id"`
	Name              string          `gorm:"type:varchar(100);not null" json:"name"`
	Unit              string          `gorm:"type:varchar(20);not null" json:"unit"`
	Stock             decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"stock"`
	LowStockThreshold decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"low_stock_threshold"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

// IsLow reports whether the stock reached the low-stock threshold.
func (i Ingredient) IsLow() bool {
	return i.Stock.LessThanOrEqual(i.LowStockThreshold)
}

// RecipeLink -> berapa banyak ingredient yang dipakai per 1 unit menu
type RecipeLink struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	MenuID          uint            `gorm:"not null;uniqueIndex:idx_recipe_pair" json:"menu_id"`
	IngredientID    uint            `gorm:"not null;uniqueIndex:idx_recipe_pair" json:"ingredient_id"`
	Ingredient      Ingredient      `gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	QuantityPerUnit decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity_per_unit"`
}
