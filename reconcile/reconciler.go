package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/services"
)

const defaultSeenEvents = 1024

// Source is the authoritative read side.
type Source interface {
	Snapshot(ctx context.Context, restaurantID uint) (*services.Snapshot, error)
	TableSnapshot(ctx context.Context, restaurantID, tableID uint) (*services.TableSnapshot, error)
}

// Reconciler keeps a Cache converging on the store from push events and polling.
type Reconciler struct {
	RestaurantID uint
	Source       Source
	Cache        *Cache
	Scheduler    *Scheduler
	Logger       *logrus.Logger

	seen *eventSet
	// patches counts pushes applied; a refresh that overlapped one is repeated.
	patches atomic.Uint64

	// loads numbers snapshot loads; a load older than the stored one is dropped.
	loads   atomic.Uint64
	storeMu sync.Mutex
	stored  uint64
}

func NewReconciler(restaurantID uint, source Source, logger *logrus.Logger) *Reconciler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Reconciler{
		RestaurantID: restaurantID,
		Source:       source,
		Cache:        NewCache(),
		Logger:       logger,
		seen:         newEventSet(defaultSeenEvents),
	}
	r.Scheduler = NewScheduler(r.refreshAll, logger)
	return r
}

func (r *Reconciler) log() *logrus.Entry {
	return r.Logger.WithField("restaurant_id", r.RestaurantID)
}

func (r *Reconciler) refreshAll(ctx context.Context) error {
	before := r.patches.Load()
	seq := r.loads.Add(1)
	snap, err := r.Source.Snapshot(ctx, r.RestaurantID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !r.storeLoad(seq, snap) {
		r.log().WithField("load", seq).Debug("stale snapshot dropped")
		return nil
	}

	// snapshot bisa saja dibaca sebelum patch yang masuk selama load
	if r.patches.Load() != before {
		r.Scheduler.Trigger()
	}
	return nil
}

func (r *Reconciler) storeLoad(seq uint64, snap *services.Snapshot) bool {
	r.storeMu.Lock()
	defer r.storeMu.Unlock()
	if seq < r.stored {
		return false
	}
	r.stored = seq
	r.Cache.Store(snap)
	return true
}

// Refresh reloads everything now, sharing a load already in flight.
func (r *Reconciler) Refresh(ctx context.Context) error {
	return r.Scheduler.Refresh(ctx)
}

// ForceRefresh reloads everything with a load started after this call.
func (r *Reconciler) ForceRefresh(ctx context.Context) error {
	return r.Scheduler.ForceRefresh(ctx)
}

// RefreshTable reloads one table and its unpaid orders.
func (r *Reconciler) RefreshTable(ctx context.Context, tableID uint) error {
	ts, err := r.Source.TableSnapshot(ctx, r.RestaurantID, tableID)
	if err != nil {
		return fmt.Errorf("failed to load table %d: %w", tableID, err)
	}
	gone := r.settledOrders(ts)
	if !r.Cache.ReplaceTable(ts) || gone {
		// belum ada snapshot, atau order meja sudah dibayar dan perlu dimuat ulang
		r.Scheduler.Trigger()
	}
	return nil
}

// settledOrders reports whether cached unpaid orders of the table are missing from
// ts. Those were paid meanwhile and only a full load brings them back as paid.
func (r *Reconciler) settledOrders(ts *services.TableSnapshot) bool {
	snap := r.Cache.Load()
	if snap == nil {
		return false
	}
	fresh := make(map[uint]bool, len(ts.Orders))
	for _, o := range ts.Orders {
		fresh[o.ID] = true
	}
	for _, o := range snap.Orders {
		if o.TableID != nil && *o.TableID == ts.Table.ID && !o.IsPaid() && !fresh[o.ID] {
			return true
		}
	}
	return false
}

// HandleEvent applies one pushed change. Fine grained events patch the cache,
// coarse ones refetch. Redelivered events are ignored.
func (r *Reconciler) HandleEvent(ctx context.Context, ev events.Event) error {
	if ev.RestaurantID != r.RestaurantID {
		return nil
	}
	if ev.ID != "" && !r.seen.Add(ev.ID) {
		r.log().WithField("event_id", ev.ID).Debug("duplicate change event ignored")
		return nil
	}
	r.patches.Add(1)

	switch ev.Kind {
	case events.EventItemStatusChanged:
		var change events.ItemStatusChange
		if err := ev.Decode(&change); err != nil {
			r.Scheduler.Trigger()
			return fmt.Errorf("bad %s payload: %w", ev.Kind, err)
		}
		if !r.Cache.PatchItemStatus(change.OrderID, change.ItemID, change.Status, change.OrderStatus) {
			r.Scheduler.Trigger()
		}
	case events.EventTableChanged:
		var change events.TableChange
		if err := ev.Decode(&change); err != nil {
			r.Scheduler.Trigger()
			return fmt.Errorf("bad %s payload: %w", ev.Kind, err)
		}
		if err := r.RefreshTable(ctx, change.TableID); err != nil {
			r.log().WithError(err).Warn("table refetch failed, scheduling full refresh")
			r.Scheduler.Trigger()
		}
	default:
		r.Scheduler.Trigger()
	}
	return nil
}

// Run loads the first snapshot and keeps refreshing until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.log().WithError(err).Warn("initial load failed, will retry on poll")
	}
	r.Scheduler.Run(ctx)
}

// Follow feeds pushed events into the reconciler until ctx is done. Every
// (re)connect refreshes, since events may have been missed while disconnected.
func (r *Reconciler) Follow(ctx context.Context, feed Feed) error {
	return feed.Run(ctx, r.HandleEvent, r.Scheduler.Trigger)
}

// eventSet remembers the last n event ids.
type eventSet struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	next  int
}

func newEventSet(n int) *eventSet {
	return &eventSet{ids: make(map[string]struct{}, n), order: make([]string, n)}
}

// Add records id and reports whether it was new.
func (s *eventSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	if old := s.order[s.next]; old != "" {
		delete(s.ids, old)
	}
	s.order[s.next] = id
	s.next = (s.next + 1) % len(s.order)
	s.ids[id] = struct{}{}
	return true
}
