package reconcile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
)

func TestWebsocketFeedReconnectsAndSkipsMalformed(t *testing.T) {
	ev, err := events.New(events.EventTableChanged, 1, 2, events.TableChange{TableID: 2, Status: models.TableStatusOccupied})
	require.NoError(t, err)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(ev)
		// tutup koneksi supaya client reconnect
	}))
	defer srv.Close()

	feed := &WebsocketFeed{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Token:   "secret",
		Backoff: 10 * time.Millisecond,
		Logger:  quietLogger(),
	}

	var connects, received atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- feed.Run(ctx, func(_ context.Context, got events.Event) error {
			if got.ID == ev.ID && got.Kind == events.EventTableChanged {
				received.Add(1)
			}
			return nil
		}, func() { connects.Add(1) })
	}()

	require.Eventually(t, func() bool {
		return connects.Load() >= 2 && received.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
}

func TestFollowDeliversIntoCache(t *testing.T) {
	e, demo := setupEngine(t)
	orderID := placeDineIn(t, e, demo, 0, demo.Burger.ID)
	s := loadedSession(t, EngineBackend{Engine: e}, demo.Restaurant.ID)
	order, _ := s.Cache().Order(orderID)
	itemID := order.OrderItems[0].ID

	ev, err := events.New(events.EventItemStatusChanged, demo.Restaurant.ID, itemID, events.ItemStatusChange{
		OrderID: orderID, ItemID: itemID, Status: models.ItemStatusReady, OrderStatus: models.OrderStatusReady,
	})
	require.NoError(t, err)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(ev)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = s.Reconciler.Follow(ctx, &WebsocketFeed{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), Logger: quietLogger()})
	}()

	assert.Eventually(t, func() bool {
		o, _ := s.Cache().Order(orderID)
		return o.Status == models.OrderStatusReady
	}, 2*time.Second, 10*time.Millisecond)
}
