package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
)

// Result is the outcome of one optimistic command.
type Result struct {
	// Applied is true when the store accepted the write.
	Applied bool
	Err     error
	// Refreshed is true when a rejected write forced a full reload.
	Refreshed bool
}

// command patches the cache optimistically, then asks the store. revert restores
// the prior value captured when the command was built.
type command struct {
	name   string
	apply  func(*services.Snapshot) bool
	revert func(*services.Snapshot) bool
	call   func(ctx context.Context) error
}

// Session is one operator's optimistic view of a restaurant: a reconciled cache plus
// a local cart.
type Session struct {
	RestaurantID uint
	Backend      Backend
	Reconciler   *Reconciler
	Logger       *logrus.Logger

	mu   sync.Mutex
	cart []services.LineItemRequest
}

func NewSession(restaurantID uint, backend Backend, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		RestaurantID: restaurantID,
		Backend:      backend,
		Reconciler:   NewReconciler(restaurantID, backend, logger),
		Logger:       logger,
	}
}

// Cache is the session's reconciled view.
func (s *Session) Cache() *Cache {
	return s.Reconciler.Cache
}

func (s *Session) run(ctx context.Context, cmd command) Result {
	cache := s.Reconciler.Cache
	cache.Update(cmd.apply)

	err := cmd.call(ctx)
	if err == nil {
		return Result{Applied: true}
	}

	cache.Update(cmd.revert)
	res := Result{Err: err}
	log := s.Logger.WithError(err).WithFields(logrus.Fields{
		"restaurant_id": s.RestaurantID,
		"command":       cmd.name,
	})

	// ditolak policy atau baris sudah berubah, keduanya butuh data terbaru
	if errors.Is(err, services.ErrNoRowsAffected) {
		if rerr := s.Reconciler.ForceRefresh(ctx); rerr != nil {
			log.WithField("refresh_error", rerr.Error()).Warn("write rejected and refresh failed")
		} else {
			res.Refreshed = true
		}
	}
	log.Warn("optimistic update reverted")
	return res
}

// ToggleItem sets a kitchen item to ready or back to pending.
func (s *Session) ToggleItem(ctx context.Context, orderID, itemID uint, status string) Result {
	prior, ok := s.Cache().Order(orderID)
	if !ok {
		return Result{Err: services.ErrOrderNotFound}
	}
	var priorItem string
	for _, it := range prior.OrderItems {
		if it.ID == itemID {
			priorItem = it.Status
		}
	}
	if priorItem == "" {
		return Result{Err: services.ErrItemNotFound}
	}

	return s.run(ctx, command{
		name: "toggle_item",
		apply: func(snap *services.Snapshot) bool {
			return setItemStatus(snap, orderID, itemID, status, "")
		},
		revert: func(snap *services.Snapshot) bool {
			return setItemStatus(snap, orderID, itemID, priorItem, prior.Status)
		},
		call: func(ctx context.Context) error {
			res, err := s.Backend.UpdateItemStatus(ctx, s.RestaurantID, itemID, status)
			if err != nil {
				return err
			}
			// status order dari store yang berlaku
			s.Cache().PatchItemStatus(orderID, itemID, status, res.OrderStatus)
			return nil
		},
	})
}

// SetOrderStatus applies an explicit order transition.
func (s *Session) SetOrderStatus(ctx context.Context, orderID uint, status string) Result {
	prior, ok := s.Cache().Order(orderID)
	if !ok {
		return Result{Err: services.ErrOrderNotFound}
	}
	return s.run(ctx, command{
		name:   "set_order_status",
		apply:  func(snap *services.Snapshot) bool { return setOrderStatus(snap, orderID, status) },
		revert: func(snap *services.Snapshot) bool { return setOrderStatus(snap, orderID, prior.Status) },
		call: func(ctx context.Context) error {
			_, err := s.Backend.UpdateOrderStatus(ctx, s.RestaurantID, orderID, status)
			return err
		},
	})
}

// ApplyDiscount sets an order's discount.
func (s *Session) ApplyDiscount(ctx context.Context, orderID uint, amount decimal.Decimal) Result {
	prior, ok := s.Cache().Order(orderID)
	if !ok {
		return Result{Err: services.ErrOrderNotFound}
	}
	return s.run(ctx, command{
		name:   "apply_discount",
		apply:  func(snap *services.Snapshot) bool { return setDiscount(snap, orderID, amount) },
		revert: func(snap *services.Snapshot) bool { return setDiscount(snap, orderID, prior.Discount) },
		call: func(ctx context.Context) error {
			_, err := s.Backend.ApplyDiscount(ctx, s.RestaurantID, orderID, amount)
			return err
		},
	})
}

// ServeReady marks the order's ready items served.
func (s *Session) ServeReady(ctx context.Context, orderID uint) Result {
	prior, ok := s.Cache().Order(orderID)
	if !ok {
		return Result{Err: services.ErrOrderNotFound}
	}
	return s.run(ctx, command{
		name: "serve_ready",
		apply: func(snap *services.Snapshot) bool {
			o := findOrder(snap, orderID)
			if o == nil {
				return false
			}
			for i := range o.OrderItems {
				if o.OrderItems[i].Status == models.ItemStatusReady {
					o.OrderItems[i].Status = models.ItemStatusServed
				}
			}
			o.Status = models.OrderStatusServed
			return true
		},
		revert: func(snap *services.Snapshot) bool { return restoreOrder(snap, prior) },
		call: func(ctx context.Context) error {
			_, err := s.Backend.ServeReady(ctx, s.RestaurantID, orderID)
			return err
		},
	})
}

// PayTable settles a table: its unpaid orders become paid and the table available.
func (s *Session) PayTable(ctx context.Context, tableID uint, method string) Result {
	snap := s.Cache().Load()
	if snap == nil {
		return Result{Err: fmt.Errorf("restaurant %d not loaded yet", s.RestaurantID)}
	}
	priorTable, ok := s.Cache().Table(tableID)
	if !ok {
		return Result{Err: services.ErrTableNotFound}
	}
	var priorOrders []models.Order
	for _, o := range snap.Orders {
		if o.TableID != nil && *o.TableID == tableID && !o.IsPaid() {
			priorOrders = append(priorOrders, cloneOrder(o))
		}
	}

	return s.run(ctx, command{
		name: "pay_table",
		apply: func(snap *services.Snapshot) bool {
			for _, p := range priorOrders {
				setOrderStatus(snap, p.ID, models.OrderStatusPaid)
			}
			if t := findTable(snap, tableID); t != nil {
				t.Status = models.TableStatusAvailable
			}
			return true
		},
		revert: func(snap *services.Snapshot) bool {
			for _, p := range priorOrders {
				restoreOrder(snap, p)
			}
			if t := findTable(snap, tableID); t != nil {
				*t = priorTable
			}
			return true
		},
		call: func(ctx context.Context) error {
			_, err := s.Backend.PayTable(ctx, s.RestaurantID, tableID, method)
			return err
		},
	})
}

// AddToCart appends a line to the local cart.
func (s *Session) AddToCart(item services.LineItemRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = append(s.cart, item)
}

// RemoveFromCart drops the line at index i.
func (s *Session) RemoveFromCart(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cart) {
		return false
	}
	s.cart = append(s.cart[:i], s.cart[i+1:]...)
	return true
}

// Cart returns a copy of the local cart.
func (s *Session) Cart() []services.LineItemRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]services.LineItemRequest(nil), s.cart...)
}

// PlaceOrder submits the cart. The cart is cleared only once the store accepted the
// order; on failure it is kept so the operator can retry.
func (s *Session) PlaceOrder(ctx context.Context, kind string, tableID *uint, contactRef string) (*models.Order, Result) {
	items := s.Cart()
	order, err := s.Backend.PlaceOrder(ctx, services.PlaceOrderRequest{
		RestaurantID: s.RestaurantID,
		Kind:         kind,
		TableID:      tableID,
		ContactRef:   contactRef,
		Items:        items,
	})
	if err != nil {
		s.Logger.WithError(err).WithField("restaurant_id", s.RestaurantID).Warn("order not placed, cart kept")
		return nil, Result{Err: err}
	}

	s.mu.Lock()
	// item yang ditambahkan selama request berjalan tetap disimpan
	if len(s.cart) >= len(items) {
		s.cart = append([]services.LineItemRequest(nil), s.cart[len(items):]...)
	}
	s.mu.Unlock()

	s.Cache().PutOrder(*order)
	if order.TableID != nil {
		s.Cache().PatchTableStatus(*order.TableID, models.TableStatusOccupied)
	}
	s.Reconciler.Scheduler.Trigger()
	return order, Result{Applied: true}
}

func setOrderStatus(snap *services.Snapshot, orderID uint, status string) bool {
	o := findOrder(snap, orderID)
	if o == nil {
		return false
	}
	o.Status = status
	return true
}

func setDiscount(snap *services.Snapshot, orderID uint, amount decimal.Decimal) bool {
	o := findOrder(snap, orderID)
	if o == nil {
		return false
	}
	o.Discount = amount
	return true
}

func restoreOrder(snap *services.Snapshot, prior models.Order) bool {
	o := findOrder(snap, prior.ID)
	if o == nil {
		return false
	}
	*o = cloneOrder(prior)
	return true
}
