package reconcile

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
)

// Backend is the authoritative write side a Session talks to.
type Backend interface {
	Source
	PlaceOrder(ctx context.Context, req services.PlaceOrderRequest) (*models.Order, error)
	UpdateItemStatus(ctx context.Context, restaurantID, itemID uint, status string) (*services.ItemStatusResult, error)
	UpdateOrderStatus(ctx context.Context, restaurantID, orderID uint, status string) (*services.OrderStatusResult, error)
	ApplyDiscount(ctx context.Context, restaurantID, orderID uint, amount decimal.Decimal) (*services.DiscountResult, error)
	PayTable(ctx context.Context, restaurantID, tableID uint, method string) (*services.PaymentOutcome, error)
	ServeReady(ctx context.Context, restaurantID, orderID uint) (*services.OrderStatusResult, error)
}

// EngineBackend runs a Session in-process against the engine.
type EngineBackend struct {
	Engine *services.Engine
}

func (b EngineBackend) Snapshot(ctx context.Context, restaurantID uint) (*services.Snapshot, error) {
	return b.Engine.Orders.Snapshot(ctx, restaurantID)
}

func (b EngineBackend) TableSnapshot(ctx context.Context, restaurantID, tableID uint) (*services.TableSnapshot, error) {
	return b.Engine.Orders.TableSnapshot(ctx, restaurantID, tableID)
}

func (b EngineBackend) PlaceOrder(ctx context.Context, req services.PlaceOrderRequest) (*models.Order, error) {
	return b.Engine.Deduction.PlaceOrder(ctx, req)
}

func (b EngineBackend) UpdateItemStatus(ctx context.Context, restaurantID, itemID uint, status string) (*services.ItemStatusResult, error) {
	return b.Engine.Orders.UpdateItemStatus(ctx, restaurantID, itemID, status)
}

func (b EngineBackend) UpdateOrderStatus(ctx context.Context, restaurantID, orderID uint, status string) (*services.OrderStatusResult, error) {
	return b.Engine.Orders.UpdateOrderStatus(ctx, restaurantID, orderID, status)
}

func (b EngineBackend) ApplyDiscount(ctx context.Context, restaurantID, orderID uint, amount decimal.Decimal) (*services.DiscountResult, error) {
	return b.Engine.Orders.ApplyDiscount(ctx, restaurantID, orderID, amount)
}

func (b EngineBackend) PayTable(ctx context.Context, restaurantID, tableID uint, method string) (*services.PaymentOutcome, error) {
	return b.Engine.Payments.PayTable(ctx, restaurantID, tableID, method)
}

func (b EngineBackend) ServeReady(ctx context.Context, restaurantID, orderID uint) (*services.OrderStatusResult, error) {
	return b.Engine.Orders.ServeReady(ctx, restaurantID, orderID)
}
