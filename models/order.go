package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Jenis order
const (
	OrderKindDineIn   = "dine_in"
	OrderKindTakeaway = "takeaway"
)

// Status order, urut sesuai alur. paid adalah status akhir.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusPaid      = "paid"
)

type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	RestaurantID  uint            `gorm:"not null;index" json:"restaurant_id"`
	TableID       *uint           `gorm:"index" json:"table_id,omitempty"`
	Table         *Table          `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	ContactRef    *string         `gorm:"type:varchar(100)" json:"contact_ref,omitempty"`
	Kind          string          `gorm:"type:varchar(20);not null" json:"kind"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Discount      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	ReceiptNumber string          `gorm:"type:varchar(50)" json:"receipt_number,omitempty"`
	OrderItems    []OrderItem     `gorm:"foreignKey:OrderID" json:"order_items"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// Subtotal -> Σ(price × quantity) dari semua item
func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.OrderItems {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Total -> subtotal dikurangi discount
func (o *Order) Total() decimal.Decimal {
	return o.Subtotal().Sub(o.Discount)
}

// IsPaid reports whether the order reached the terminal status.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// GenerateReceiptNumber menghasilkan nomor struk dari counter restaurant
func GenerateReceiptNumber(restaurantID uint, counter int64) string {
	return fmt.Sprintf("RCP-%d-%06d", restaurantID, counter)
}
