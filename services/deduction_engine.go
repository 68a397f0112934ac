package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// LineItemRequest is one cart line.
type LineItemRequest struct {
	MenuID    uint     `json:"menu_id"`
	Quantity  int      `json:"quantity"`
	Notes     string   `json:"notes"`
	Modifiers []string `json:"modifiers"`
}

// PlaceOrderRequest -> payload pembuatan order. TableID atau TableName dipakai untuk dine-in.
type PlaceOrderRequest struct {
	RestaurantID uint              `json:"-"`
	Kind         string            `json:"kind"`
	TableID      *uint             `json:"table_id"`
	TableName    string            `json:"table_name"`
	ContactRef   string            `json:"contact_ref"`
	Items        []LineItemRequest `json:"items"`
}

// InventoryChange is the payload of an inventory_changed event.
type InventoryChange struct {
	OrderID uint          `json:"order_id"`
	Changes []StockChange `json:"changes"`
}

// DeductionEngine places orders and deducts the ingredients their recipes consume.
type DeductionEngine struct {
	DB     *gorm.DB
	Menu   MenuCatalog
	Ledger *InventoryLedger
	Logger *logrus.Logger
	// OnCommit is called after each committed write, typically ChangeMonitor.Notify.
	OnCommit func()
}

func NewDeductionEngine(db *gorm.DB, menu MenuCatalog, ledger *InventoryLedger, logger *logrus.Logger) *DeductionEngine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DeductionEngine{DB: db, Menu: menu, Ledger: ledger, Logger: logger}
}

func (e *DeductionEngine) committed() {
	if e.OnCommit != nil {
		e.OnCommit()
	}
}

func validatePlaceOrder(req *PlaceOrderRequest) error {
	if req.RestaurantID == 0 {
		return NewValidationError("restaurant is required")
	}
	switch req.Kind {
	case models.OrderKindDineIn:
		if req.TableID == nil && strings.TrimSpace(req.TableName) == "" {
			return invalid(ErrTableNotFound, "dine-in order requires a table")
		}
	case models.OrderKindTakeaway:
	default:
		return NewValidationError("unknown order kind %q", req.Kind)
	}
	if len(req.Items) == 0 {
		return ErrEmptyCart
	}
	for i, item := range req.Items {
		if item.MenuID == 0 {
			return NewValidationError("item %d has no menu item", i)
		}
		if item.Quantity <= 0 {
			return NewValidationError("item %d must have a positive quantity", i)
		}
	}
	return nil
}

func (e *DeductionEngine) resolveTable(ctx context.Context, req *PlaceOrderRequest) (*models.Table, error) {
	var table models.Table
	q := e.DB.WithContext(ctx).Where("restaurant_id = ?", req.RestaurantID)
	if req.TableID != nil {
		q = q.Where("id = ?", *req.TableID)
	} else {
		q = q.Where("name = ?", strings.TrimSpace(req.TableName))
	}
	err := q.First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid(ErrTableNotFound, "table does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve table: %w", err)
	}
	return &table, nil
}

// PlaceOrder validates the cart, persists the order with its items and marks the
// table occupied in one transaction. Stock is deducted afterwards on a best-effort
// basis: a deduction failure never rolls the order back.
func (e *DeductionEngine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if err := validatePlaceOrder(&req); err != nil {
		return nil, err
	}

	var table *models.Table
	if req.Kind == models.OrderKindDineIn {
		var err error
		if table, err = e.resolveTable(ctx, &req); err != nil {
			return nil, err
		}
	}

	menuIDs := make([]uint, 0, len(req.Items))
	seen := make(map[uint]bool, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.MenuID] {
			seen[item.MenuID] = true
			menuIDs = append(menuIDs, item.MenuID)
		}
	}
	menus, err := e.Menu.MenusByID(ctx, req.RestaurantID, menuIDs)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		RestaurantID: req.RestaurantID,
		Kind:         req.Kind,
		Status:       models.OrderStatusPending,
		Discount:     decimal.Zero,
	}
	if table != nil {
		order.TableID = &table.ID
	}
	if ref := strings.TrimSpace(req.ContactRef); ref != "" {
		order.ContactRef = &ref
	}
	for _, line := range req.Items {
		menu, ok := menus[line.MenuID]
		if !ok {
			return nil, NewValidationError("menu item %d does not exist", line.MenuID)
		}
		if !menu.Available {
			return nil, NewValidationError("menu item %q is not available", menu.Name)
		}
		item := models.OrderItem{
			MenuID:   menu.ID,
			Name:     menu.Name,
			Price:    menu.Price,
			Quantity: line.Quantity,
			Notes:    line.Notes,
			Status:   models.ItemStatusPending,
		}
		if len(line.Modifiers) > 0 {
			raw, err := json.Marshal(line.Modifiers)
			if err != nil {
				return nil, fmt.Errorf("failed to encode modifiers: %w", err)
			}
			item.Modifiers = raw
		}
		order.OrderItems = append(order.OrderItems, item)
	}

	// sekali write dimulai, tidak boleh dibatalkan di tengah jalan
	ctx = context.WithoutCancel(ctx)

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// meja dikunci sebelum insert supaya tidak balapan dengan pembayaran meja
		if table != nil {
			if _, err := lockTable(tx, order.RestaurantID, table.ID); err != nil {
				return err
			}
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if table == nil {
			return recordChange(tx, order.RestaurantID, events.EventOrderCreated, order.ID, nil)
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND restaurant_id = ?", table.ID, order.RestaurantID).
			Update("status", models.TableStatusOccupied)
		if res.Error != nil {
			return fmt.Errorf("failed to occupy table %d: %w", table.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("table %d: %w", table.ID, ErrNoRowsAffected)
		}
		return recordChange(tx, order.RestaurantID, events.EventTableChanged, table.ID,
			events.TableChange{TableID: table.ID, Status: models.TableStatusOccupied})
	})
	if err != nil {
		return nil, err
	}
	e.committed()

	e.Logger.WithFields(logrus.Fields{
		"restaurant_id": order.RestaurantID,
		"order_id":      order.ID,
	}).Infof("order placed with %d items", len(order.OrderItems))

	if changes := e.deduct(ctx, &order); len(changes) > 0 {
		e.committed()
	}
	return &order, nil
}

// deduct applies the order's recipe requirements to the ledger. Failures are logged
// and never surface to the caller.
func (e *DeductionEngine) deduct(ctx context.Context, order *models.Order) []StockChange {
	log := e.Logger.WithFields(logrus.Fields{"restaurant_id": order.RestaurantID, "order_id": order.ID})
	if e.Ledger == nil {
		return nil
	}

	menuIDs := make([]uint, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		menuIDs = append(menuIDs, item.MenuID)
	}
	index, err := LoadRecipeIndex(ctx, e.DB, order.RestaurantID, menuIDs)
	if err != nil {
		log.WithError(err).Warn("recipe data unavailable, skipping stock deduction")
		return nil
	}

	required, missing := index.Requirements(order.OrderItems)
	for _, item := range missing {
		log.WithField("menu_id", item.MenuID).Warnf("menu item %q has no recipe, nothing deducted", item.Name)
	}
	if len(required) == 0 {
		return nil
	}

	changes := e.Ledger.Apply(ctx, order.RestaurantID, required)
	e.reportLowStock(ctx, log, order.RestaurantID, changes)

	if err := recordChange(e.DB.WithContext(ctx), order.RestaurantID, events.EventInventoryChanged, order.ID,
		InventoryChange{OrderID: order.ID, Changes: changes}); err != nil {
		log.WithError(err).Warn("failed to record inventory change")
	}
	return changes
}

func (e *DeductionEngine) reportLowStock(ctx context.Context, log *logrus.Entry, restaurantID uint, changes []StockChange) {
	ids := make([]uint, 0, len(changes))
	for _, c := range changes {
		if c.Err == nil {
			ids = append(ids, c.IngredientID)
		}
	}
	if len(ids) == 0 {
		return
	}

	var ingredients []models.Ingredient
	if err := e.DB.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&ingredients).Error; err != nil {
		log.WithError(err).Warn("failed to check low stock")
		return
	}
	for _, ing := range ingredients {
		if ing.IsLow() {
			log.WithFields(logrus.Fields{
				"ingredient_id": ing.ID,
				"stock":         ing.Stock.String(),
				"threshold":     ing.LowStockThreshold.String(),
			}).Warnf("ingredient %q is low on stock", ing.Name)
		}
	}
}
