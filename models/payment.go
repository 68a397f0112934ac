package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status pembayaran
const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment -> satu baris per order yang dibayar
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	RestaurantID  uint            `gorm:"not null;index" json:"restaurant_id"`
	OrderID       uint            `gorm:"not null;index" json:"order_id"`
	TableID       *uint           `gorm:"index" json:"table_id,omitempty"`
	Method        string          `gorm:"type:varchar(30);not null" json:"method"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status        string          `gorm:"type:varchar(20);not null" json:"status"`
	ReferenceID   string          `gorm:"type:varchar(100)" json:"reference_id"`
	ReceiptNumber string          `gorm:"type:varchar(50)" json:"receipt_number"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}
