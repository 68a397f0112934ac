package reconcile

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
)

// Cache holds the client's view of one restaurant. Snapshots are never mutated in
// place: every patch works on a copy which is then swapped in, so readers always see
// a whole snapshot.
type Cache struct {
	snap atomic.Pointer[services.Snapshot]
}

func NewCache() *Cache {
	return &Cache{}
}

// Load returns the current snapshot, nil before the first refresh. Callers must not
// modify it.
func (c *Cache) Load() *services.Snapshot {
	return c.snap.Load()
}

// Store replaces the snapshot. Last write wins.
func (c *Cache) Store(s *services.Snapshot) {
	c.snap.Store(s)
}

// Update applies fn to a copy of the current snapshot and swaps it in when fn
// reports a change. It retries when another writer swapped first.
func (c *Cache) Update(fn func(*services.Snapshot) bool) bool {
	for {
		old := c.snap.Load()
		if old == nil {
			return false
		}
		next := cloneSnapshot(old)
		if !fn(next) {
			return false
		}
		if c.snap.CompareAndSwap(old, next) {
			return true
		}
	}
}

// Order returns a copy of a cached order.
func (c *Cache) Order(orderID uint) (models.Order, bool) {
	s := c.Load()
	if s == nil {
		return models.Order{}, false
	}
	if o := findOrder(s, orderID); o != nil {
		return cloneOrder(*o), true
	}
	return models.Order{}, false
}

// Table returns a copy of a cached table.
func (c *Cache) Table(tableID uint) (models.Table, bool) {
	s := c.Load()
	if s == nil {
		return models.Table{}, false
	}
	if t := findTable(s, tableID); t != nil {
		return *t, true
	}
	return models.Table{}, false
}

// PatchItemStatus sets an item's status. An empty orderStatus re-derives the order
// status from the cached items.
func (c *Cache) PatchItemStatus(orderID, itemID uint, status, orderStatus string) bool {
	return c.Update(func(s *services.Snapshot) bool {
		return setItemStatus(s, orderID, itemID, status, orderStatus)
	})
}

// PatchOrderStatus sets an order's status.
func (c *Cache) PatchOrderStatus(orderID uint, status string) bool {
	return c.Update(func(s *services.Snapshot) bool {
		return setOrderStatus(s, orderID, status)
	})
}

// PatchDiscount sets an order's discount.
func (c *Cache) PatchDiscount(orderID uint, amount decimal.Decimal) bool {
	return c.Update(func(s *services.Snapshot) bool {
		return setDiscount(s, orderID, amount)
	})
}

// PatchTableStatus sets a table's status.
func (c *Cache) PatchTableStatus(tableID uint, status string) bool {
	return c.Update(func(s *services.Snapshot) bool {
		t := findTable(s, tableID)
		if t == nil {
			return false
		}
		t.Status = status
		return true
	})
}

// ReplaceTable swaps in a freshly loaded table together with its unpaid orders.
func (c *Cache) ReplaceTable(ts *services.TableSnapshot) bool {
	return c.Update(func(s *services.Snapshot) bool {
		if t := findTable(s, ts.Table.ID); t != nil {
			*t = ts.Table
		} else {
			s.Tables = append(s.Tables, ts.Table)
		}

		kept := s.Orders[:0]
		for _, o := range s.Orders {
			if o.TableID != nil && *o.TableID == ts.Table.ID && !o.IsPaid() {
				continue
			}
			kept = append(kept, o)
		}
		for _, o := range ts.Orders {
			kept = append(kept, cloneOrder(o))
		}
		s.Orders = kept
		return true
	})
}

// PutOrder inserts or replaces one order.
func (c *Cache) PutOrder(order models.Order) bool {
	return c.Update(func(s *services.Snapshot) bool {
		if o := findOrder(s, order.ID); o != nil {
			*o = cloneOrder(order)
			return true
		}
		s.Orders = append(s.Orders, cloneOrder(order))
		return true
	})
}

func setItemStatus(s *services.Snapshot, orderID, itemID uint, status, orderStatus string) bool {
	o := findOrder(s, orderID)
	if o == nil {
		return false
	}
	found := false
	statuses := make([]string, len(o.OrderItems))
	for i := range o.OrderItems {
		if o.OrderItems[i].ID == itemID {
			o.OrderItems[i].Status = status
			found = true
		}
		statuses[i] = o.OrderItems[i].Status
	}
	if !found {
		return false
	}
	if orderStatus == "" {
		orderStatus = services.DeriveOrderStatus(o.Status, statuses)
	}
	o.Status = orderStatus
	return true
}

func findOrder(s *services.Snapshot, orderID uint) *models.Order {
	for i := range s.Orders {
		if s.Orders[i].ID == orderID {
			return &s.Orders[i]
		}
	}
	return nil
}

func findTable(s *services.Snapshot, tableID uint) *models.Table {
	for i := range s.Tables {
		if s.Tables[i].ID == tableID {
			return &s.Tables[i]
		}
	}
	return nil
}

// cloneSnapshot copies everything a patch may touch. Menu and ingredients are
// replaced wholesale on refresh and shared between copies.
func cloneSnapshot(s *services.Snapshot) *services.Snapshot {
	next := *s
	next.Orders = make([]models.Order, len(s.Orders))
	for i, o := range s.Orders {
		next.Orders[i] = cloneOrder(o)
	}
	next.Tables = append([]models.Table(nil), s.Tables...)
	return &next
}

func cloneOrder(o models.Order) models.Order {
	o.OrderItems = append([]models.OrderItem(nil), o.OrderItems...)
	return o
}
