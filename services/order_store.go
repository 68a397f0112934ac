package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultStatusRetries = 3

// errStatusRace means the order status changed between the read and the conditional write.
var errStatusRace = errors.New("order status changed concurrently")

// OrderStore is the authoritative writer for orders, items and tables. Every write
// runs in a transaction together with its outbox row.
type OrderStore struct {
	DB            *gorm.DB
	Logger        *logrus.Logger
	StatusRetries int
	// OnCommit is called after each committed write, typically ChangeMonitor.Notify.
	OnCommit func()
}

func NewOrderStore(db *gorm.DB, logger *logrus.Logger) *OrderStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OrderStore{DB: db, Logger: logger, StatusRetries: defaultStatusRetries}
}

// ItemStatusResult -> hasil toggle item beserta status order yang diturunkan
type ItemStatusResult struct {
	Item                models.OrderItem `json:"item"`
	PreviousStatus      string           `json:"previous_status"`
	OrderID             uint             `json:"order_id"`
	OrderStatus         string           `json:"order_status"`
	PreviousOrderStatus string           `json:"previous_order_status"`
}

// OrderStatusResult -> status order sebelum dan sesudah write
type OrderStatusResult struct {
	OrderID        uint   `json:"order_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// DiscountResult -> discount sebelum dan sesudah write
type DiscountResult struct {
	OrderID  uint            `json:"order_id"`
	Previous decimal.Decimal `json:"previous"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// PaymentInfo describes how a settlement was paid. nil records no payment rows.
type PaymentInfo struct {
	Method      string
	ReferenceID string
	// OrderIDs and Amount are what the gateway charged. When OrderIDs is set only
	// those orders are settled, and the settlement fails if their total moved.
	OrderIDs []uint
	Amount   decimal.Decimal
}

// matches checks the orders about to be settled against the charge.
func (p *PaymentInfo) matches(orders []models.Order) error {
	if p == nil || len(p.OrderIDs) == 0 {
		return nil
	}
	if len(orders) != len(p.OrderIDs) {
		return fmt.Errorf("charged %d orders, %d still unpaid: %w: %w", len(p.OrderIDs), len(orders), ErrChargeMismatch, ErrNoRowsAffected)
	}
	total := decimal.Zero
	for i := range orders {
		total = total.Add(orders[i].Total())
	}
	if !total.Equal(p.Amount) {
		return fmt.Errorf("charged %s, orders now total %s: %w: %w", p.Amount, total, ErrChargeMismatch, ErrNoRowsAffected)
	}
	return nil
}

// PaymentOutcome -> hasil settle meja / order
type PaymentOutcome struct {
	TableID       *uint          `json:"table_id,omitempty"`
	Orders        []models.Order `json:"orders"`
	ReceiptNumber string         `json:"receipt_number,omitempty"`
	TableFreed    bool           `json:"table_freed"`
	Noop          bool           `json:"noop"`
}

// Snapshot is everything a client caches for one restaurant.
type Snapshot struct {
	RestaurantID uint                `json:"restaurant_id"`
	Orders       []models.Order      `json:"orders"`
	Tables       []models.Table      `json:"tables"`
	Ingredients  []models.Ingredient `json:"ingredients"`
	Menu         []models.Menu       `json:"menu"`
	LoadedAt     time.Time           `json:"loaded_at"`
}

// TableSnapshot is one table and its unpaid orders.
type TableSnapshot struct {
	Table  models.Table   `json:"table"`
	Orders []models.Order `json:"orders"`
}

func (s *OrderStore) committed() {
	if s.OnCommit != nil {
		s.OnCommit()
	}
}

func (s *OrderStore) retries() int {
	if s.StatusRetries <= 0 {
		return defaultStatusRetries
	}
	return s.StatusRetries
}

func (s *OrderStore) findOrder(tx *gorm.DB, restaurantID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Where("id = ? AND restaurant_id = ?", orderID, restaurantID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &order, nil
}

func (s *OrderStore) findTable(tx *gorm.DB, restaurantID, tableID uint) (*models.Table, error) {
	var table models.Table
	err := tx.Where("id = ? AND restaurant_id = ?", tableID, restaurantID).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table %d: %w", tableID, err)
	}
	return &table, nil
}

// lockTable loads the table with a row lock. Placing an order and settling a table
// both take it first, so they run one after the other per table.
func lockTable(tx *gorm.DB, restaurantID, tableID uint) (*models.Table, error) {
	var table models.Table
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND restaurant_id = ?", tableID, restaurantID).
		First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock table %d: %w", tableID, err)
	}
	return &table, nil
}

// orderChange publishes a coarse table event for dine-in orders and an orders event otherwise.
func orderChange(tx *gorm.DB, order *models.Order, tableStatus string) error {
	if order.TableID != nil {
		return recordChange(tx, order.RestaurantID, events.EventTableChanged, *order.TableID,
			events.TableChange{TableID: *order.TableID, Status: tableStatus})
	}
	return recordChange(tx, order.RestaurantID, events.EventOrdersChanged, order.ID, nil)
}

// UpdateItemStatus toggles one item and re-derives its order's status from the
// sibling statuses read inside the same transaction.
func (s *OrderStore) UpdateItemStatus(ctx context.Context, restaurantID, itemID uint, status string) (*ItemStatusResult, error) {
	ctx = context.WithoutCancel(ctx)

	var result *ItemStatusResult
	var err error
	for attempt := 0; attempt < s.retries(); attempt++ {
		result, err = s.updateItemStatusOnce(ctx, restaurantID, itemID, status)
		if !errors.Is(err, errStatusRace) {
			break
		}
		s.Logger.WithField("item_id", itemID).Debug("order status race, re-reading items")
	}
	if errors.Is(err, errStatusRace) {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNoRowsAffected)
	}
	if err != nil {
		return nil, err
	}

	s.committed()
	return result, nil
}

func (s *OrderStore) updateItemStatusOnce(ctx context.Context, restaurantID, itemID uint, status string) (*ItemStatusResult, error) {
	var result ItemStatusResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// kunci order dulu, toggle item lain pada order yang sama menunggu commit ini
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Joins("JOIN order_items ON order_items.order_id = orders.id").
			Where("order_items.id = ? AND orders.restaurant_id = ?", itemID, restaurantID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order of item %d: %w", itemID, err)
		}

		var item models.OrderItem
		if err := tx.Where("id = ? AND order_id = ?", itemID, order.ID).First(&item).Error; err != nil {
			return fmt.Errorf("failed to load item %d: %w", itemID, err)
		}
		if err := ValidateItemTransition(item.Status, status); err != nil {
			return err
		}
		if order.IsPaid() {
			return invalid(ErrTerminalStatus, "order %d is already paid", order.ID)
		}

		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND status = ?", item.ID, item.Status).
			Update("status", status)
		if res.Error != nil {
			return fmt.Errorf("failed to update item %d: %w", item.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("item %d: %w", item.ID, ErrNoRowsAffected)
		}

		// baca ulang status semua item, jangan pakai state lama
		var statuses []string
		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ?", order.ID).
			Pluck("status", &statuses).Error; err != nil {
			return fmt.Errorf("failed to reload items of order %d: %w", order.ID, err)
		}

		next := DeriveOrderStatus(order.Status, statuses)
		if next != order.Status {
			res := tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, order.Status).
				Update("status", next)
			if res.Error != nil {
				return fmt.Errorf("failed to update order %d: %w", order.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return errStatusRace
			}
		}

		previous := item.Status
		item.Status = status
		result = ItemStatusResult{
			Item:                item,
			PreviousStatus:      previous,
			OrderID:             order.ID,
			OrderStatus:         next,
			PreviousOrderStatus: order.Status,
		}
		return recordChange(tx, restaurantID, events.EventItemStatusChanged, item.ID, events.ItemStatusChange{
			OrderID:     order.ID,
			ItemID:      item.ID,
			Status:      status,
			OrderStatus: next,
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateOrderStatus applies an explicit operator transition. paid is refused here:
// orders are only settled by a charge through PaymentService.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, restaurantID, orderID uint, status string) (*OrderStatusResult, error) {
	ctx = context.WithoutCancel(ctx)

	if status == models.OrderStatusPaid {
		return nil, invalid(ErrInvalidStatus, "orders are paid through /api/payments/orders/%d", orderID)
	}

	var result OrderStatusResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findOrder(tx, restaurantID, orderID)
		if err != nil {
			return err
		}
		if err := ValidateOrderTransition(order.Status, status); err != nil {
			return err
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", status)
		if res.Error != nil {
			return fmt.Errorf("failed to update order %d: %w", order.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %d: %w", order.ID, ErrNoRowsAffected)
		}

		result = OrderStatusResult{OrderID: order.ID, PreviousStatus: order.Status, Status: status}
		return orderChange(tx, order, models.TableStatusOccupied)
	})
	if err != nil {
		return nil, err
	}

	s.committed()
	return &result, nil
}

// ApplyDiscount sets the order's discount. 0 <= amount <= subtotal keeps the total non-negative.
func (s *OrderStore) ApplyDiscount(ctx context.Context, restaurantID, orderID uint, amount decimal.Decimal) (*DiscountResult, error) {
	ctx = context.WithoutCancel(ctx)

	if amount.IsNegative() {
		return nil, NewValidationError("discount must not be negative")
	}

	var result DiscountResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Preload("OrderItems").
			Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load order %d: %w", orderID, err)
		}
		if order.IsPaid() {
			return invalid(ErrTerminalStatus, "order %d is already paid", order.ID)
		}
		if amount.GreaterThan(order.Subtotal()) {
			return NewValidationError("discount %s exceeds order subtotal %s", amount, order.Subtotal())
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status <> ?", order.ID, models.OrderStatusPaid).
			Update("discount", amount)
		if res.Error != nil {
			return fmt.Errorf("failed to apply discount to order %d: %w", order.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %d: %w", order.ID, ErrNoRowsAffected)
		}

		previous := order.Discount
		order.Discount = amount
		result = DiscountResult{OrderID: order.ID, Previous: previous, Discount: amount, Total: order.Total()}
		return orderChange(tx, &order, models.TableStatusOccupied)
	})
	if err != nil {
		return nil, err
	}

	s.committed()
	return &result, nil
}

// MarkTablePaid marks the unpaid orders of the table paid and frees the table in one
// transaction. With info.OrderIDs set only the charged orders are settled and the
// table stays occupied while others remain. Calling it again is a no-op.
func (s *OrderStore) MarkTablePaid(ctx context.Context, restaurantID, tableID uint, info *PaymentInfo) (*PaymentOutcome, error) {
	ctx = context.WithoutCancel(ctx)

	var outcome *PaymentOutcome
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := lockTable(tx, restaurantID, tableID)
		if err != nil {
			return err
		}

		q := tx.Preload("OrderItems").
			Where("restaurant_id = ? AND table_id = ? AND status <> ?", restaurantID, tableID, models.OrderStatusPaid)
		if info != nil && len(info.OrderIDs) > 0 {
			q = q.Where("id IN ?", info.OrderIDs)
		}
		var orders []models.Order
		if err := q.Order("id asc").Find(&orders).Error; err != nil {
			return fmt.Errorf("failed to load orders of table %d: %w", tableID, err)
		}

		outcome, err = s.settle(tx, restaurantID, table, orders, info)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.committed()
	return outcome, nil
}

// MarkOrderPaid settles one order. Dine-in orders settle their whole table.
func (s *OrderStore) MarkOrderPaid(ctx context.Context, restaurantID, orderID uint, info *PaymentInfo) (*PaymentOutcome, error) {
	ctx = context.WithoutCancel(ctx)

	order, err := s.findOrder(s.DB.WithContext(ctx), restaurantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		// sudah dibayar di tempat lain, charge ini tidak punya order lagi
		if err := info.matches(nil); err != nil {
			return nil, err
		}
		return &PaymentOutcome{TableID: order.TableID, Noop: true}, nil
	}
	if order.TableID != nil {
		return s.MarkTablePaid(ctx, restaurantID, *order.TableID, info)
	}

	var outcome *PaymentOutcome
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []models.Order
		if err := tx.Preload("OrderItems").
			Where("id = ? AND restaurant_id = ? AND status <> ?", orderID, restaurantID, models.OrderStatusPaid).
			Find(&orders).Error; err != nil {
			return fmt.Errorf("failed to load order %d: %w", orderID, err)
		}
		outcome, err = s.settle(tx, restaurantID, nil, orders, info)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.committed()
	return outcome, nil
}

// settle runs inside the caller's transaction. Either every order is paid and the
// table freed, or the transaction fails and nothing is visible.
func (s *OrderStore) settle(tx *gorm.DB, restaurantID uint, table *models.Table, orders []models.Order, info *PaymentInfo) (*PaymentOutcome, error) {
	if err := info.matches(orders); err != nil {
		return nil, err
	}
	outcome := &PaymentOutcome{}
	if table != nil {
		outcome.TableID = &table.ID
	}

	if len(orders) == 0 {
		outcome.Noop = true
		if table != nil && table.Status != models.TableStatusAvailable {
			freed, err := s.freeTableIfIdle(tx, restaurantID, table.ID)
			if err != nil {
				return nil, err
			}
			outcome.TableFreed = freed
		}
		return outcome, nil
	}

	res := tx.Model(&models.Restaurant{}).
		Where("id = ?", restaurantID).
		Update("receipt_counter", gorm.Expr("receipt_counter + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to increment receipt counter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("restaurant %d: %w", restaurantID, ErrNoRowsAffected)
	}
	var restaurant models.Restaurant
	if err := tx.Select("id", "receipt_counter").First(&restaurant, restaurantID).Error; err != nil {
		return nil, fmt.Errorf("failed to read receipt counter: %w", err)
	}
	receipt := models.GenerateReceiptNumber(restaurantID, restaurant.ReceiptCounter)

	ids := make([]uint, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	now := time.Now()
	res = tx.Model(&models.Order{}).
		Where("id IN ? AND status <> ?", ids, models.OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusPaid,
			"paid_at":        now,
			"receipt_number": receipt,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to mark orders paid: %w", res.Error)
	}
	if res.RowsAffected != int64(len(ids)) {
		return nil, fmt.Errorf("paid %d of %d orders: %w", res.RowsAffected, len(ids), ErrNoRowsAffected)
	}

	for i := range orders {
		orders[i].Status = models.OrderStatusPaid
		orders[i].PaidAt = &now
		orders[i].ReceiptNumber = receipt
		if info != nil {
			payment := models.Payment{
				RestaurantID:  restaurantID,
				OrderID:       orders[i].ID,
				TableID:       orders[i].TableID,
				Method:        info.Method,
				Amount:        orders[i].Total(),
				Status:        models.PaymentStatusSuccess,
				ReferenceID:   info.ReferenceID,
				ReceiptNumber: receipt,
				CreatedAt:     now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return nil, fmt.Errorf("failed to record payment of order %d: %w", orders[i].ID, err)
			}
		}
	}
	outcome.Orders = orders
	outcome.ReceiptNumber = receipt

	if table != nil {
		freed, err := s.freeTableIfIdle(tx, restaurantID, table.ID)
		if err != nil {
			return nil, err
		}
		outcome.TableFreed = freed
		return outcome, nil
	}
	return outcome, recordChange(tx, restaurantID, events.EventOrdersChanged, orders[0].ID, nil)
}

// freeTableIfIdle sets the table available unless another unpaid order still
// references it. The caller holds the table lock.
func (s *OrderStore) freeTableIfIdle(tx *gorm.DB, restaurantID, tableID uint) (bool, error) {
	var unpaid int64
	if err := tx.Model(&models.Order{}).
		Where("restaurant_id = ? AND table_id = ? AND status <> ?", restaurantID, tableID, models.OrderStatusPaid).
		Count(&unpaid).Error; err != nil {
		return false, fmt.Errorf("failed to count unpaid orders of table %d: %w", tableID, err)
	}
	if unpaid > 0 {
		return false, recordChange(tx, restaurantID, events.EventTableChanged, tableID,
			events.TableChange{TableID: tableID, Status: models.TableStatusOccupied})
	}

	res := tx.Model(&models.Table{}).
		Where("id = ? AND restaurant_id = ?", tableID, restaurantID).
		Update("status", models.TableStatusAvailable)
	if res.Error != nil {
		return false, fmt.Errorf("failed to free table %d: %w", tableID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, fmt.Errorf("table %d: %w", tableID, ErrNoRowsAffected)
	}
	return true, recordChange(tx, restaurantID, events.EventTableChanged, tableID,
		events.TableChange{TableID: tableID, Status: models.TableStatusAvailable})
}

// ServeReady moves the order's ready items, and the order, to served.
func (s *OrderStore) ServeReady(ctx context.Context, restaurantID, orderID uint) (*OrderStatusResult, error) {
	ctx = context.WithoutCancel(ctx)

	var result OrderStatusResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findOrder(tx, restaurantID, orderID)
		if err != nil {
			return err
		}
		if err := ValidateOrderTransition(order.Status, models.OrderStatusServed); err != nil {
			return err
		}

		res := tx.Model(&models.OrderItem{}).
			Where("order_id = ? AND status = ?", order.ID, models.ItemStatusReady).
			Update("status", models.ItemStatusServed)
		if res.Error != nil {
			return fmt.Errorf("failed to serve items of order %d: %w", order.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return invalid(ErrNothingToServe, "order %d has no ready items", order.ID)
		}

		res = tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", models.OrderStatusServed)
		if res.Error != nil {
			return fmt.Errorf("failed to update order %d: %w", order.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %d: %w", order.ID, ErrNoRowsAffected)
		}

		result = OrderStatusResult{OrderID: order.ID, PreviousStatus: order.Status, Status: models.OrderStatusServed}
		return orderChange(tx, order, models.TableStatusOccupied)
	})
	if err != nil {
		return nil, err
	}

	s.committed()
	return &result, nil
}

// ResetTable forces a table back to available without touching its orders. This is
// the operator recovery path and may leave unpaid orders on an available table.
func (s *OrderStore) ResetTable(ctx context.Context, restaurantID, tableID uint, reason string) (*models.Table, error) {
	ctx = context.WithoutCancel(ctx)

	var table *models.Table
	var unpaid int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if table, err = lockTable(tx, restaurantID, tableID); err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).
			Where("restaurant_id = ? AND table_id = ? AND status <> ?", restaurantID, tableID, models.OrderStatusPaid).
			Count(&unpaid).Error; err != nil {
			return fmt.Errorf("failed to count unpaid orders of table %d: %w", tableID, err)
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND restaurant_id = ?", tableID, restaurantID).
			Update("status", models.TableStatusAvailable)
		if res.Error != nil {
			return fmt.Errorf("failed to reset table %d: %w", tableID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("table %d: %w", tableID, ErrNoRowsAffected)
		}
		table.Status = models.TableStatusAvailable

		if reason == "" {
			reason = "manual_reset"
		}
		return recordChange(tx, restaurantID, events.EventTableChanged, tableID,
			events.TableChange{TableID: tableID, Status: models.TableStatusAvailable, Reason: reason})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{
		"restaurant_id": restaurantID,
		"table_id":      tableID,
		"unpaid_orders": unpaid,
		"reason":        reason,
	}).Warn("table manually reset to available, occupancy override")

	s.committed()
	return table, nil
}

// OrderByID loads one order with its items.
func (s *OrderStore) OrderByID(ctx context.Context, restaurantID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("OrderItems").
		Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &order, nil
}

// Snapshot is the idempotent "load everything" read: unpaid orders plus orders paid
// in the last 24 hours, tables, ingredients and menu, read in one transaction.
func (s *OrderStore) Snapshot(ctx context.Context, restaurantID uint) (*Snapshot, error) {
	snap := &Snapshot{RestaurantID: restaurantID}
	since := time.Now().Add(-24 * time.Hour)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("OrderItems").
			Where("restaurant_id = ? AND (status <> ? OR paid_at >= ?)", restaurantID, models.OrderStatusPaid, since).
			Order("id asc").
			Find(&snap.Orders).Error; err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		if err := tx.Where("restaurant_id = ?", restaurantID).Order("id asc").Find(&snap.Tables).Error; err != nil {
			return fmt.Errorf("failed to load tables: %w", err)
		}
		if err := tx.Where("restaurant_id = ?", restaurantID).Order("id asc").Find(&snap.Ingredients).Error; err != nil {
			return fmt.Errorf("failed to load ingredients: %w", err)
		}
		if err := tx.Where("restaurant_id = ?", restaurantID).Order("id asc").Find(&snap.Menu).Error; err != nil {
			return fmt.Errorf("failed to load menu: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap.LoadedAt = time.Now()
	return snap, nil
}

// TableSnapshot loads a table together with its unpaid orders.
func (s *OrderStore) TableSnapshot(ctx context.Context, restaurantID, tableID uint) (*TableSnapshot, error) {
	var snap TableSnapshot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := s.findTable(tx, restaurantID, tableID)
		if err != nil {
			return err
		}
		snap.Table = *table
		return tx.Preload("OrderItems").
			Where("restaurant_id = ? AND table_id = ? AND status <> ?", restaurantID, tableID, models.OrderStatusPaid).
			Order("id asc").
			Find(&snap.Orders).Error
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
