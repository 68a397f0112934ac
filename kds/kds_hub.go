package kds

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/events"
)

const writeWait = 5 * time.Second

type client struct {
	restaurantID uint
	role         string
	// gorilla/websocket mendukung satu writer per koneksi
	writeMu sync.Mutex
}

// Hub menampung semua client (layar customer, counter, dapur) per restaurant
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.RWMutex
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		logger:  logger,
	}
}

// RegisterClient -> menambahkan connection untuk restaurant tertentu
func (h *Hub) RegisterClient(conn *websocket.Conn, restaurantID uint, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = &client{restaurantID: restaurantID, role: role}
}

// UnregisterClient -> melepaskan connection
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	delete(h.clients, conn)
	h.mutex.Unlock()
	conn.Close()
}

// ClientCount -> jumlah client untuk satu restaurant
func (h *Hub) ClientCount(restaurantID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.restaurantID == restaurantID {
			n++
		}
	}
	return n
}

// Publish -> kirim event ke semua client di restaurant yang sama.
// Client yang gagal ditulisi dilepas; dia akan pulih lewat polling.
func (h *Hub) Publish(ctx context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mutex.RLock()
	targets := make(map[*websocket.Conn]*client)
	for conn, c := range h.clients {
		if c.restaurantID == ev.RestaurantID {
			targets[conn] = c
		}
	}
	h.mutex.RUnlock()

	var dead []*websocket.Conn
	for conn, c := range targets {
		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.TextMessage, data)
		c.writeMu.Unlock()
		if err != nil {
			h.logger.WithError(err).WithField("role", c.role).Warn("dropping websocket client")
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		h.UnregisterClient(conn)
	}

	h.logger.WithFields(logrus.Fields{
		"event":         ev.Kind,
		"restaurant_id": ev.RestaurantID,
		"clients":       len(targets) - len(dead),
	}).Debug("broadcast change event")
	return nil
}
