package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status item. served hanya di-set oleh aksi bulk "serve".
const (
	ItemStatusPending = "pending"
	ItemStatusReady   = "ready"
	ItemStatusServed  = "served"
)

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order     Order           `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuID    uint            `gorm:"not null" json:"menu_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
	Modifiers datatypes.JSON  `gorm:"type:json" json:"modifiers,omitempty"`
	Status    string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

// LineTotal -> price × quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// IsDone -> item sudah ready atau sudah diantar
func (i OrderItem) IsDone() bool {
	return i.Status == ItemStatusReady || i.Status == ItemStatusServed
}
