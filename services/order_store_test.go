package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

func TestItemTogglesDriveOrderStatus(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	order := placeDineIn(t, e, demo, demo.Tables[0], line(demo.Burger, 1), line(demo.Fries, 1))
	burger, fries := order.OrderItems[0].ID, order.OrderItems[1].ID

	res, err := e.Orders.UpdateItemStatus(ctx, rid, burger, models.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusPending, res.PreviousStatus)
	assert.Equal(t, models.OrderStatusPreparing, res.OrderStatus)

	res, err = e.Orders.UpdateItemStatus(ctx, rid, fries, models.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, res.OrderStatus)

	// uncheck saat order sudah ready
	res, err = e.Orders.UpdateItemStatus(ctx, rid, fries, models.ItemStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, res.PreviousOrderStatus)
	assert.Equal(t, models.OrderStatusPreparing, res.OrderStatus)

	stored, err := e.Orders.OrderByID(ctx, rid, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, stored.Status)

	var kinds []string
	for _, c := range pendingChanges(t, e.DB) {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, 3, countKind(kinds, events.EventItemStatusChanged))
}

func countKind(kinds []string, kind string) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func TestServedAndPaidAreSticky(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	order := placeDineIn(t, e, demo, demo.Tables[0], line(demo.Burger, 1), line(demo.Fries, 1))
	burger, fries := order.OrderItems[0].ID, order.OrderItems[1].ID

	_, err := e.Orders.UpdateItemStatus(ctx, rid, burger, models.ItemStatusReady)
	require.NoError(t, err)

	served, err := e.Orders.ServeReady(ctx, rid, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusServed, served.Status)

	// item yang sudah diantar tidak bisa di-toggle
	_, err = e.Orders.UpdateItemStatus(ctx, rid, burger, models.ItemStatusPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// toggle item lain tidak menurunkan status served
	res, err := e.Orders.UpdateItemStatus(ctx, rid, fries, models.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusServed, res.OrderStatus)
	res, err = e.Orders.UpdateItemStatus(ctx, rid, fries, models.ItemStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusServed, res.OrderStatus)

	_, err = e.Orders.UpdateOrderStatus(ctx, rid, order.ID, models.OrderStatusPreparing)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = e.Orders.MarkOrderPaid(ctx, rid, order.ID, nil)
	require.NoError(t, err)

	_, err = e.Orders.UpdateItemStatus(ctx, rid, fries, models.ItemStatusReady)
	assert.ErrorIs(t, err, ErrTerminalStatus)
	_, err = e.Orders.UpdateOrderStatus(ctx, rid, order.ID, models.OrderStatusServed)
	assert.ErrorIs(t, err, ErrTerminalStatus)
}

func TestServeReadyNeedsReadyItems(t *testing.T) {
	e, demo := setupEngine(t, true)
	order := placeTakeaway(t, e, demo, line(demo.Burger, 1))

	_, err := e.Orders.ServeReady(context.Background(), demo.Restaurant.ID, order.ID)
	assert.ErrorIs(t, err, ErrNothingToServe)
	assert.True(t, IsValidation(err))
}

func TestUpdateOrderStatusForwardOnly(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	order := placeTakeaway(t, e, demo, line(demo.Burger, 1))

	res, err := e.Orders.UpdateOrderStatus(ctx, rid, order.ID, models.OrderStatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, res.PreviousStatus)

	_, err = e.Orders.UpdateOrderStatus(ctx, rid, order.ID, models.OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = e.Orders.UpdateOrderStatus(ctx, rid, 9999, models.OrderStatusReady)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// paid hanya lewat PaymentService
	_, err = e.Orders.UpdateOrderStatus(ctx, rid, order.ID, models.OrderStatusPaid)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.True(t, IsValidation(err))

	stored, err := e.Orders.OrderByID(ctx, rid, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, stored.Status)
	assert.Empty(t, stored.ReceiptNumber)
}

func TestApplyDiscountKeepsTotalInvariant(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	order := placeTakeaway(t, e, demo, line(demo.Burger, 2)) // 17.00

	res, err := e.Orders.ApplyDiscount(ctx, rid, order.ID, dec("2.50"))
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(dec("14.50")), "total %s", res.Total)

	stored, err := e.Orders.OrderByID(ctx, rid, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total().Equal(stored.Subtotal().Sub(stored.Discount)))
	assert.True(t, stored.Discount.Equal(dec("2.5")))

	_, err = e.Orders.ApplyDiscount(ctx, rid, order.ID, dec("-1"))
	assert.True(t, IsValidation(err))
	_, err = e.Orders.ApplyDiscount(ctx, rid, order.ID, dec("17.01"))
	assert.True(t, IsValidation(err))

	res, err = e.Orders.ApplyDiscount(ctx, rid, order.ID, dec("17"))
	require.NoError(t, err)
	assert.True(t, res.Total.IsZero())
}

func TestMarkTablePaidSettlesEveryOrder(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	table := demo.Tables[0]

	first := placeDineIn(t, e, demo, table, line(demo.Burger, 1))
	second := placeDineIn(t, e, demo, table, line(demo.Fries, 2))
	other := placeDineIn(t, e, demo, demo.Tables[1], line(demo.Soda, 1))

	outcome, err := e.Orders.MarkTablePaid(ctx, rid, table.ID, &PaymentInfo{Method: PaymentMethodCash, ReferenceID: "CASH-1"})
	require.NoError(t, err)
	assert.False(t, outcome.Noop)
	assert.True(t, outcome.TableFreed)
	assert.Len(t, outcome.Orders, 2)
	assert.Equal(t, models.GenerateReceiptNumber(rid, 1), outcome.ReceiptNumber)

	for _, id := range []uint{first.ID, second.ID} {
		o, err := e.Orders.OrderByID(ctx, rid, id)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, o.Status)
		assert.NotNil(t, o.PaidAt)
		assert.Equal(t, outcome.ReceiptNumber, o.ReceiptNumber)
	}
	o, err := e.Orders.OrderByID(ctx, rid, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, o.Status)

	assert.Equal(t, models.TableStatusAvailable, tableOf(t, e.DB, table.ID).Status)
	assert.Equal(t, models.TableStatusOccupied, tableOf(t, e.DB, demo.Tables[1].ID).Status)

	var payments []models.Payment
	require.NoError(t, e.DB.Where("table_id = ?", table.ID).Find(&payments).Error)
	assert.Len(t, payments, 2)
}

func TestMarkTablePaidTwiceIsNoop(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	table := demo.Tables[0]
	placeDineIn(t, e, demo, table, line(demo.Burger, 1))

	_, err := e.Orders.MarkTablePaid(ctx, rid, table.ID, nil)
	require.NoError(t, err)
	bunAfterFirst := stockOf(t, e.DB, demo.Bun.ID)

	outcome, err := e.Orders.MarkTablePaid(ctx, rid, table.ID, nil)
	require.NoError(t, err)
	assert.True(t, outcome.Noop)
	assert.Empty(t, outcome.ReceiptNumber)

	var restaurant models.Restaurant
	require.NoError(t, e.DB.First(&restaurant, rid).Error)
	assert.EqualValues(t, 1, restaurant.ReceiptCounter)
	assert.True(t, stockOf(t, e.DB, demo.Bun.ID).Equal(bunAfterFirst))
}

func TestMarkOrderPaidTakeawayAndDineIn(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID

	takeaway := placeTakeaway(t, e, demo, line(demo.Burger, 1))
	outcome, err := e.Orders.MarkOrderPaid(ctx, rid, takeaway.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, outcome.TableID)
	require.Len(t, outcome.Orders, 1)

	again, err := e.Orders.MarkOrderPaid(ctx, rid, takeaway.ID, nil)
	require.NoError(t, err)
	assert.True(t, again.Noop)

	table := demo.Tables[2]
	a := placeDineIn(t, e, demo, table, line(demo.Burger, 1))
	b := placeDineIn(t, e, demo, table, line(demo.Soda, 1))
	outcome, err = e.Orders.MarkOrderPaid(ctx, rid, a.ID, nil)
	require.NoError(t, err)
	assert.Len(t, outcome.Orders, 2)
	assert.True(t, outcome.TableFreed)

	stored, err := e.Orders.OrderByID(ctx, rid, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())
}

func TestMarkTablePaidIsAllOrNothing(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	table := demo.Tables[0]
	first := placeDineIn(t, e, demo, table, line(demo.Burger, 1))
	second := placeDineIn(t, e, demo, table, line(demo.Fries, 1))

	// gagal tepat saat meja akan dibebaskan, setelah order di-update
	require.NoError(t, e.DB.Callback().Update().Before("gorm:update").Register("test:fail_table_update", func(tx *gorm.DB) {
		if tx.Statement.Table == "tables" {
			_ = tx.AddError(errors.New("injected failure"))
		}
	}))

	_, err := e.Orders.MarkTablePaid(ctx, rid, table.ID, &PaymentInfo{Method: PaymentMethodCash})
	require.Error(t, err)

	for _, id := range []uint{first.ID, second.ID} {
		o, err := e.Orders.OrderByID(ctx, rid, id)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, o.Status)
		assert.Empty(t, o.ReceiptNumber)
	}
	assert.Equal(t, models.TableStatusOccupied, tableOf(t, e.DB, table.ID).Status)

	var restaurant models.Restaurant
	require.NoError(t, e.DB.First(&restaurant, rid).Error)
	assert.Zero(t, restaurant.ReceiptCounter)

	var payments int64
	e.DB.Model(&models.Payment{}).Count(&payments)
	assert.Zero(t, payments)
}

func TestTableOccupiedIffUnpaidOrder(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID

	occupied := func() map[uint]bool {
		var unpaid []models.Order
		require.NoError(t, e.DB.Where("restaurant_id = ? AND table_id IS NOT NULL AND status <> ?", rid, models.OrderStatusPaid).Find(&unpaid).Error)
		m := map[uint]bool{}
		for _, o := range unpaid {
			m[*o.TableID] = true
		}
		return m
	}
	check := func() {
		want := occupied()
		for _, table := range demo.Tables {
			got := tableOf(t, e.DB, table.ID).Status == models.TableStatusOccupied
			assert.Equal(t, want[table.ID], got, "table %s", table.Name)
		}
	}

	check()
	placeDineIn(t, e, demo, demo.Tables[0], line(demo.Burger, 1))
	check()
	placeDineIn(t, e, demo, demo.Tables[1], line(demo.Fries, 1))
	placeDineIn(t, e, demo, demo.Tables[1], line(demo.Soda, 1))
	check()
	_, err := e.Orders.MarkTablePaid(ctx, rid, demo.Tables[1].ID, nil)
	require.NoError(t, err)
	check()
	_, err = e.Orders.MarkTablePaid(ctx, rid, demo.Tables[0].ID, nil)
	require.NoError(t, err)
	check()
}

func TestMarkTablePaidFreesStaleOccupiedTable(t *testing.T) {
	e, demo := setupEngine(t, true)
	table := demo.Tables[3]
	require.NoError(t, e.DB.Model(&models.Table{}).Where("id = ?", table.ID).Update("status", models.TableStatusOccupied).Error)

	outcome, err := e.Orders.MarkTablePaid(context.Background(), demo.Restaurant.ID, table.ID, nil)
	require.NoError(t, err)
	assert.True(t, outcome.Noop)
	assert.True(t, outcome.TableFreed)
	assert.Equal(t, models.TableStatusAvailable, tableOf(t, e.DB, table.ID).Status)
}

func TestResetTableIsLoggedOverride(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	table := demo.Tables[0]
	order := placeDineIn(t, e, demo, table, line(demo.Burger, 1))

	reset, err := e.Orders.ResetTable(ctx, demo.Restaurant.ID, table.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, reset.Status)

	stored, err := e.Orders.OrderByID(ctx, demo.Restaurant.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	changes := pendingChanges(t, e.DB)
	last := changes[len(changes)-1]
	assert.Equal(t, events.EventTableChanged, last.Kind)
	assert.Contains(t, string(last.Payload), `"reason":"manual_reset"`)

	_, err = e.Orders.ResetTable(ctx, demo.Restaurant.ID, 9999, "")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestSnapshotLoadsEverything(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	placeDineIn(t, e, demo, demo.Tables[0], line(demo.Burger, 1))
	paid := placeTakeaway(t, e, demo, line(demo.Soda, 1))
	_, err := e.Orders.MarkOrderPaid(ctx, rid, paid.ID, nil)
	require.NoError(t, err)

	snap, err := e.Orders.Snapshot(ctx, rid)
	require.NoError(t, err)
	assert.Len(t, snap.Orders, 2)
	assert.Len(t, snap.Tables, 4)
	assert.Len(t, snap.Ingredients, 3)
	assert.Len(t, snap.Menu, 3)
	assert.False(t, snap.LoadedAt.IsZero())

	ts, err := e.Orders.TableSnapshot(ctx, rid, demo.Tables[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusOccupied, ts.Table.Status)
	assert.Len(t, ts.Orders, 1)

	// restaurant lain tidak melihat apa-apa
	other, err := e.Orders.Snapshot(ctx, rid+1)
	require.NoError(t, err)
	assert.Empty(t, other.Orders)
	assert.Empty(t, other.Tables)
}

// lockedReads records the tables read with a row lock. sqlite drops the clause from
// the SQL, the statement still carries it.
func lockedReads(t *testing.T, db *gorm.DB) func() []string {
	t.Helper()
	var mu sync.Mutex
	var tables []string
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:record_locks", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Clauses["FOR"]; ok {
			mu.Lock()
			tables = append(tables, tx.Statement.Table)
			mu.Unlock()
		}
	}))
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tables...)
	}
}

func TestItemToggleLocksItsOrder(t *testing.T) {
	e, demo := setupEngine(t, true)
	order := placeDineIn(t, e, demo, demo.Tables[0], line(demo.Burger, 1), line(demo.Fries, 1))
	locks := lockedReads(t, e.DB)

	_, err := e.Orders.UpdateItemStatus(context.Background(), demo.Restaurant.ID, order.OrderItems[0].ID, models.ItemStatusReady)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, locks())
}

func TestPlacementAndSettlementLockTheTable(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	table := demo.Tables[0]
	locks := lockedReads(t, e.DB)

	placeDineIn(t, e, demo, table, line(demo.Soda, 1))
	assert.Equal(t, []string{"tables"}, locks())

	_, err := e.Orders.MarkTablePaid(ctx, demo.Restaurant.ID, table.ID, nil)
	require.NoError(t, err)
	_, err = e.Orders.ResetTable(ctx, demo.Restaurant.ID, table.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"tables", "tables", "tables"}, locks())

	// takeaway tidak menyentuh meja
	placeTakeaway(t, e, demo, line(demo.Soda, 1))
	assert.Len(t, locks(), 3)
}

// loseOrderStatusWrites makes the next n derived order status writes look as if
// another writer changed the order first.
func loseOrderStatusWrites(t *testing.T, db *gorm.DB, n int) *int {
	t.Helper()
	var attempts int
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:lose_order_status", func(tx *gorm.DB) {
		if tx.Statement.Table != "orders" {
			return
		}
		attempts++
		if attempts <= n {
			tx.RowsAffected = 0
		}
	}))
	return &attempts
}

func TestUpdateItemStatusRetriesOrderStatusRace(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	order := placeTakeaway(t, e, demo, line(demo.Burger, 1))
	attempts := loseOrderStatusWrites(t, e.DB, 2)

	res, err := e.Orders.UpdateItemStatus(ctx, rid, order.OrderItems[0].ID, models.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, res.OrderStatus)
	assert.Equal(t, 3, *attempts)

	stored, err := e.Orders.OrderByID(ctx, rid, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, stored.Status)
	assert.Equal(t, models.ItemStatusReady, stored.OrderItems[0].Status)
	assert.Equal(t, 1, countKind(changeKinds(t, e.DB), events.EventItemStatusChanged))
}

func TestUpdateItemStatusGivesUpAfterRetries(t *testing.T) {
	e, demo := setupEngine(t, true)
	ctx := context.Background()
	rid := demo.Restaurant.ID
	e.Orders.StatusRetries = 3
	order := placeTakeaway(t, e, demo, line(demo.Burger, 1))
	attempts := loseOrderStatusWrites(t, e.DB, 100)

	_, err := e.Orders.UpdateItemStatus(ctx, rid, order.OrderItems[0].ID, models.ItemStatusReady)
	assert.ErrorIs(t, err, ErrNoRowsAffected)
	assert.Equal(t, 3, *attempts)

	// setiap percobaan di-rollback, item tetap pending
	stored, err := e.Orders.OrderByID(ctx, rid, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, models.ItemStatusPending, stored.OrderItems[0].Status)
	assert.Zero(t, countKind(changeKinds(t, e.DB), events.EventItemStatusChanged))
}
