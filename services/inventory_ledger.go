package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

const defaultCASRetries = 5

// ErrStockContention is returned by the read-modify-write fallback when every
// compare-and-swap attempt lost against a concurrent writer.
var ErrStockContention = errors.New("stock changed concurrently, decrement not applied")

// StockDecrementer is the store's atomic decrement primitive.
type StockDecrementer interface {
	Decrement(ctx context.Context, restaurantID, ingredientID uint, amount decimal.Decimal) (decimal.Decimal, error)
}

// GormStockDecrementer runs `stock = stock - ?` in the database so concurrent
// placements never lose an update.
type GormStockDecrementer struct {
	DB *gorm.DB
}

func (d *GormStockDecrementer) Decrement(ctx context.Context, restaurantID, ingredientID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	var newStock decimal.Decimal
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Ingredient{}).
			Where("id = ? AND restaurant_id = ?", ingredientID, restaurantID).
			Update("stock", gorm.Expr("stock - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("ingredient %d: %w", ingredientID, ErrNoRowsAffected)
		}

		var ing models.Ingredient
		if err := tx.Select("id", "stock").First(&ing, ingredientID).Error; err != nil {
			return err
		}
		newStock = ing.Stock
		return nil
	})
	return newStock, err
}

// StockChange reports the outcome of one ingredient delta.
type StockChange struct {
	IngredientID uint            `json:"ingredient_id"`
	Delta        decimal.Decimal `json:"delta"`
	NewStock     decimal.Decimal `json:"new_stock"`
	Atomic       bool            `json:"atomic"`
	Err          error           `json:"-"`
}

// InventoryLedger holds stock per ingredient. Stock is only ever mutated here.
type InventoryLedger struct {
	DB *gorm.DB
	// Atomic is nil when the store has no atomic primitive; the ledger then uses
	// the compare-and-swap fallback.
	Atomic     StockDecrementer
	CASRetries int
	Logger     *logrus.Logger
}

func NewInventoryLedger(db *gorm.DB, atomic bool, logger *logrus.Logger) *InventoryLedger {
	l := &InventoryLedger{DB: db, CASRetries: defaultCASRetries, Logger: logger}
	if atomic {
		l.Atomic = &GormStockDecrementer{DB: db}
	}
	if l.Logger == nil {
		l.Logger = logrus.StandardLogger()
	}
	return l
}

// Decrement subtracts amount from the ingredient's stock. The atomic primitive is
// always tried first; read-modify-write is only used when it is unavailable.
func (l *InventoryLedger) Decrement(ctx context.Context, restaurantID, ingredientID uint, amount decimal.Decimal) StockChange {
	change := StockChange{IngredientID: ingredientID, Delta: amount.Neg()}

	if l.Atomic != nil {
		newStock, err := l.Atomic.Decrement(ctx, restaurantID, ingredientID, amount)
		if err == nil {
			change.NewStock = newStock
			change.Atomic = true
			return change
		}
		if !errors.Is(err, ErrAtomicUnavailable) {
			change.Err = err
			return change
		}
		l.Logger.WithField("ingredient_id", ingredientID).Warn("atomic decrement unavailable, using read-modify-write")
	}

	change.NewStock, change.Err = l.compareAndSwap(ctx, restaurantID, ingredientID, amount)
	return change
}

// compareAndSwap reads the freshest stock and writes it back only if nobody changed
// it in between. Race window: when every retry loses, the delta is dropped and
// logged instead of being applied on top of a stale read.
func (l *InventoryLedger) compareAndSwap(ctx context.Context, restaurantID, ingredientID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	retries := l.CASRetries
	if retries <= 0 {
		retries = defaultCASRetries
	}

	for attempt := 0; attempt < retries; attempt++ {
		var ing models.Ingredient
		if err := l.DB.WithContext(ctx).
			Select("id", "stock").
			Where("id = ? AND restaurant_id = ?", ingredientID, restaurantID).
			First(&ing).Error; err != nil {
			return decimal.Zero, fmt.Errorf("failed to read stock of ingredient %d: %w", ingredientID, err)
		}

		next := ing.Stock.Sub(amount)
		res := l.DB.WithContext(ctx).Model(&models.Ingredient{}).
			Where("id = ? AND restaurant_id = ? AND stock = ?", ingredientID, restaurantID, ing.Stock).
			Update("stock", next)
		if res.Error != nil {
			return decimal.Zero, fmt.Errorf("failed to write stock of ingredient %d: %w", ingredientID, res.Error)
		}
		if res.RowsAffected == 1 {
			return next, nil
		}
	}
	return decimal.Zero, fmt.Errorf("ingredient %d: %w", ingredientID, ErrStockContention)
}

// Apply decrements every ingredient in required. Ingredients are processed in id
// order so concurrent callers touch rows in the same sequence.
func (l *InventoryLedger) Apply(ctx context.Context, restaurantID uint, required map[uint]decimal.Decimal) []StockChange {
	ids := make([]uint, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	changes := make([]StockChange, 0, len(ids))
	for _, id := range ids {
		amount := required[id]
		if amount.IsZero() {
			continue
		}
		change := l.Decrement(ctx, restaurantID, id, amount)
		if change.Err != nil {
			l.Logger.WithError(change.Err).WithFields(logrus.Fields{
				"restaurant_id": restaurantID,
				"ingredient_id": id,
				"amount":        amount.String(),
			}).Warn("stock deduction failed")
		}
		changes = append(changes, change)
	}
	return changes
}
