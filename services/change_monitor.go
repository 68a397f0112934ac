package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// recordChange menulis baris outbox di dalam transaksi yang sedang berjalan
func recordChange(tx *gorm.DB, restaurantID uint, kind string, recordID uint, payload interface{}) error {
	var raw []byte
	if payload != nil {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to marshal %s change: %w", kind, err)
		}
	}

	change := models.DBChange{
		EventID:      uuid.NewString(),
		RestaurantID: restaurantID,
		Kind:         kind,
		RecordID:     recordID,
		Payload:      raw,
		ChangedAt:    time.Now(),
	}
	if err := tx.Create(&change).Error; err != nil {
		return fmt.Errorf("failed to record %s change: %w", kind, err)
	}
	return nil
}

// ChangeMonitor mengirim baris outbox ke publisher (websocket hub, NATS).
// Baris ditandai processed setelah publish berhasil, jadi pengiriman at-least-once;
// event id tetap sama saat dikirim ulang sehingga client bisa dedupe.
type ChangeMonitor struct {
	DB        *gorm.DB
	Publisher events.Publisher
	StopChan  chan struct{}
	Interval  time.Duration
	BatchSize int
	Logger    *logrus.Logger

	wake     chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
}

func NewChangeMonitor(db *gorm.DB, publisher events.Publisher, logger *logrus.Logger) *ChangeMonitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChangeMonitor{
		DB:        db,
		Publisher: publisher,
		StopChan:  make(chan struct{}),
		Interval:  1 * time.Second,
		BatchSize: 100,
		Logger:    logger,
		wake:      make(chan struct{}, 1),
	}
}

func (cm *ChangeMonitor) Start() {
	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.checkChanges()
			case <-cm.wake:
				cm.checkChanges()
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() { close(cm.StopChan) })
}

// Notify membangunkan monitor lebih cepat setelah ada write. Tidak pernah blocking.
func (cm *ChangeMonitor) Notify() {
	select {
	case cm.wake <- struct{}{}:
	default:
	}
}

func (cm *ChangeMonitor) checkChanges() {
	if _, err := cm.Flush(context.Background()); err != nil {
		cm.Logger.WithError(err).Warn("change relay stopped early, will retry on next tick")
	}
}

// Flush publishes pending outbox rows in order and returns how many were sent.
func (cm *ChangeMonitor) Flush(ctx context.Context) (int, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var changes []models.DBChange
	if err := cm.DB.WithContext(ctx).
		Where("processed = ?", false).
		Order("id ASC").
		Limit(cm.BatchSize).
		Find(&changes).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch changes: %w", err)
	}

	sent := 0
	for _, change := range changes {
		ev := events.Event{
			ID:           change.EventID,
			Kind:         change.Kind,
			RestaurantID: change.RestaurantID,
			RecordID:     change.RecordID,
			Data:         json.RawMessage(change.Payload),
			OccurredAt:   change.ChangedAt.UTC(),
		}
		if cm.Publisher != nil {
			if err := cm.Publisher.Publish(ctx, ev); err != nil {
				return sent, fmt.Errorf("failed to publish change %d: %w", change.ID, err)
			}
		}

		if err := cm.DB.WithContext(ctx).Model(&models.DBChange{}).
			Where("id = ?", change.ID).
			Update("processed", true).Error; err != nil {
			return sent, fmt.Errorf("failed to mark change %d as processed: %w", change.ID, err)
		}
		sent++
	}

	if sent > 0 {
		cm.Logger.Debugf("relayed %d changes", sent)
	}
	return sent, nil
}
