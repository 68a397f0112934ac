package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("restaurant-pos-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}
	return p.conn.Publish(Subject(ev.RestaurantID), body)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

type NATSSubscriber struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

func NewNATSSubscriber(url string, logger *logrus.Logger) (*NATSSubscriber, error) {
	conn, err := nats.Connect(url,
		nats.Name("restaurant-pos-subscriber"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &NATSSubscriber{conn: conn, logger: logger}, nil
}

// Subscribe delivers the restaurant's events to handler until the returned
// unsubscribe func is called.
func (s *NATSSubscriber) Subscribe(ctx context.Context, restaurantID uint, handler HandlerFunc) (func() error, error) {
	sub, err := s.conn.Subscribe(Subject(restaurantID), func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			s.logger.WithError(err).Warn("dropping malformed change event")
			return
		}
		if err := handler(ctx, ev); err != nil {
			s.logger.WithError(err).WithField("event_id", ev.ID).Warn("change event handler failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Subject(restaurantID), err)
	}
	return sub.Unsubscribe, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
