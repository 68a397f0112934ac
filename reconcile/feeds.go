package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/events"
)

// Feed delivers pushed change events. onConnect runs after every (re)connect.
type Feed interface {
	Run(ctx context.Context, handler events.HandlerFunc, onConnect func()) error
}

// NATSFeed follows the restaurant's NATS subject. Reconnects are handled by the
// NATS client itself.
type NATSFeed struct {
	Subscriber   *events.NATSSubscriber
	RestaurantID uint
}

func (f *NATSFeed) Run(ctx context.Context, handler events.HandlerFunc, onConnect func()) error {
	unsubscribe, err := f.Subscriber.Subscribe(ctx, f.RestaurantID, handler)
	if err != nil {
		return err
	}
	if onConnect != nil {
		onConnect()
	}
	<-ctx.Done()
	if err := unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return ctx.Err()
}

// WebsocketFeed follows the server's websocket hub and reconnects with a fixed
// backoff. While disconnected the poll keeps the cache converging.
type WebsocketFeed struct {
	URL     string
	Token   string
	Dialer  *websocket.Dialer
	Backoff time.Duration
	Logger  *logrus.Logger
}

func (f *WebsocketFeed) Run(ctx context.Context, handler events.HandlerFunc, onConnect func()) error {
	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	backoff := f.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	logger := f.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	for {
		err := f.session(ctx, dialer, logger, handler, onConnect)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WithError(err).Warn("websocket feed disconnected, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (f *WebsocketFeed) session(ctx context.Context, dialer *websocket.Dialer, logger *logrus.Logger, handler events.HandlerFunc, onConnect func()) error {
	header := http.Header{}
	if f.Token != "" {
		header.Set("Authorization", "Bearer "+f.Token)
	}
	conn, _, err := dialer.DialContext(ctx, f.URL, header)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", f.URL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if onConnect != nil {
		onConnect()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev events.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.WithError(err).Warn("dropping malformed change event")
			continue
		}
		if err := handler(ctx, ev); err != nil {
			logger.WithError(err).WithField("event_id", ev.ID).Warn("change event handler failed")
		}
	}
}
