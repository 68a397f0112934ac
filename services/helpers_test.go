package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
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

// setupTestDB opens a private in-memory database per test. One connection keeps
// sqlite from reporting "database is locked" under concurrent tests.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.SilenceLoggers()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupEngine(t *testing.T, atomic bool) (*Engine, *database.Demo) {
	t.Helper()
	db := setupTestDB(t)
	demo, err := database.Seed(db)
	require.NoError(t, err)

	engine := NewEngine(db, EngineOptions{AtomicInventory: atomic, Logger: quietLogger()})
	return engine, demo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func stockOf(t *testing.T, db *gorm.DB, ingredientID uint) decimal.Decimal {
	t.Helper()
	var ing models.Ingredient
	require.NoError(t, db.First(&ing, ingredientID).Error)
	return ing.Stock
}

func tableOf(t *testing.T, db *gorm.DB, tableID uint) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, db.First(&table, tableID).Error)
	return table
}

func placeDineIn(t *testing.T, e *Engine, demo *database.Demo, table models.Table, items ...LineItemRequest) *models.Order {
	t.Helper()
	order, err := e.Deduction.PlaceOrder(context.Background(), PlaceOrderRequest{
		RestaurantID: demo.Restaurant.ID,
		Kind:         models.OrderKindDineIn,
		TableID:      &table.ID,
		Items:        items,
	})
	require.NoError(t, err)
	return order
}

func placeTakeaway(t *testing.T, e *Engine, demo *database.Demo, items ...LineItemRequest) *models.Order {
	t.Helper()
	order, err := e.Deduction.PlaceOrder(context.Background(), PlaceOrderRequest{
		RestaurantID: demo.Restaurant.ID,
		Kind:         models.OrderKindTakeaway,
		ContactRef:   "+62 812 0000",
		Items:        items,
	})
	require.NoError(t, err)
	return order
}

func line(menu models.Menu, qty int) LineItemRequest {
	return LineItemRequest{MenuID: menu.ID, Quantity: qty}
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

func pendingChanges(t *testing.T, db *gorm.DB) []models.DBChange {
	t.Helper()
	var changes []models.DBChange
	require.NoError(t, db.Where("processed = ?", false).Order("id asc").Find(&changes).Error)
	return changes
}

func changeKinds(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var kinds []string
	for _, c := range pendingChanges(t, db) {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}
