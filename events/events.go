package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// EventTableChanged is coarse: clients refetch everything belonging to the table.
	EventTableChanged = "table_changed"
	// EventItemStatusChanged is fine grained: clients may patch the item in place.
	EventItemStatusChanged = "item_status_changed"
	// EventOrderCreated announces a new order; takeaway orders have no table to refetch.
	EventOrderCreated = "order_created"
	// EventOrdersChanged asks for a full refresh of the restaurant's orders.
	EventOrdersChanged = "orders_changed"
	// EventInventoryChanged is emitted after stock deduction.
	EventInventoryChanged = "inventory_changed"
)

// Event is the envelope delivered on the change-notification channel. Delivery is
// at-least-once, so consumers dedupe on ID.
type Event struct {
	ID           string          `json:"id"`
	Kind         string          `json:"event"`
	RestaurantID uint            `json:"restaurant_id"`
	RecordID     uint            `json:"record_id"`
	Data         json.RawMessage `json:"data,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// TableChange is the payload of EventTableChanged.
type TableChange struct {
	TableID uint   `json:"table_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// ItemStatusChange is the payload of EventItemStatusChanged.
type ItemStatusChange struct {
	OrderID     uint   `json:"order_id"`
	ItemID      uint   `json:"item_id"`
	Status      string `json:"status"`
	OrderStatus string `json:"order_status"`
}

// New builds an event with a fresh id.
func New(kind string, restaurantID, recordID uint, data interface{}) (Event, error) {
	ev := Event{
		ID:           uuid.NewString(),
		Kind:         kind,
		RestaurantID: restaurantID,
		RecordID:     recordID,
		OccurredAt:   time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
		}
		ev.Data = raw
	}
	return ev, nil
}

// Decode unmarshals the payload into out.
func (e Event) Decode(out interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no payload", e.ID)
	}
	return json.Unmarshal(e.Data, out)
}

// Subject is the per-restaurant NATS subject.
func Subject(restaurantID uint) string {
	return fmt.Sprintf("restaurants.%d.changes", restaurantID)
}

// Publisher fans an event out to connected clients.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// HandlerFunc consumes a delivered event.
type HandlerFunc func(ctx context.Context, ev Event) error

// MultiPublisher publishes to every publisher and returns the first error.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev Event) error {
	var firstErr error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
