package reconcile

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setupEngine(t *testing.T) (*services.Engine, *database.Demo) {
	t.Helper()
	utils.SilenceLoggers()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:reconcile_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	demo, err := database.Seed(db)
	require.NoError(t, err)

	return services.NewEngine(db, services.EngineOptions{AtomicInventory: true, Logger: quietLogger()}), demo
}

// loadedSession returns a session whose cache already holds the first snapshot.
func loadedSession(t *testing.T, backend Backend, restaurantID uint) *Session {
	t.Helper()
	s := NewSession(restaurantID, backend, quietLogger())
	require.NoError(t, s.Reconciler.Refresh(context.Background()))
	return s
}

func placeDineIn(t *testing.T, e *services.Engine, demo *database.Demo, tableIdx int, menuIDs ...uint) uint {
	t.Helper()
	var items []services.LineItemRequest
	for _, id := range menuIDs {
		items = append(items, services.LineItemRequest{MenuID: id, Quantity: 1})
	}
	order, err := e.Deduction.PlaceOrder(context.Background(), services.PlaceOrderRequest{
		RestaurantID: demo.Restaurant.ID,
		Kind:         models.OrderKindDineIn,
		TableID:      &demo.Tables[tableIdx].ID,
		Items:        items,
	})
	require.NoError(t, err)
	return order.ID
}

// flakyBackend counts snapshot loads and can fail selected writes.
type flakyBackend struct {
	Backend
	itemErr     error
	discountErr error
	snapshots   atomic.Int32
}

func (b *flakyBackend) Snapshot(ctx context.Context, restaurantID uint) (*services.Snapshot, error) {
	b.snapshots.Add(1)
	return b.Backend.Snapshot(ctx, restaurantID)
}

func (b *flakyBackend) UpdateItemStatus(ctx context.Context, restaurantID, itemID uint, status string) (*services.ItemStatusResult, error) {
	if b.itemErr != nil {
		return nil, b.itemErr
	}
	return b.Backend.UpdateItemStatus(ctx, restaurantID, itemID, status)
}

func (b *flakyBackend) ApplyDiscount(ctx context.Context, restaurantID, orderID uint, amount decimal.Decimal) (*services.DiscountResult, error) {
	if b.discountErr != nil {
		return nil, b.discountErr
	}
	return b.Backend.ApplyDiscount(ctx, restaurantID, orderID, amount)
}
