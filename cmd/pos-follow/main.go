// Command pos-follow mirrors one restaurant the way a kitchen or counter device does:
// it loads a snapshot, applies pushed changes from NATS or the websocket feed and
// polls as a backstop, logging a summary of the converged view.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/reconcile"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.LoadFollower()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := reconcile.NewHTTPSource(cfg.ServerURL, cfg.Token)
	r := reconcile.NewReconciler(cfg.RestaurantID, source, utils.InfoLogger)
	r.Scheduler.PollInterval = cfg.PollInterval

	var feed reconcile.Feed
	if cfg.NATSURL != "" {
		sub, err := events.NewNATSSubscriber(cfg.NATSURL, utils.InfoLogger)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer sub.Close()
		feed = &reconcile.NATSFeed{Subscriber: sub, RestaurantID: cfg.RestaurantID}
		utils.InfoLogger.Infof("Following %s on NATS", events.Subject(cfg.RestaurantID))
	} else {
		feed = &reconcile.WebsocketFeed{URL: cfg.WebsocketURL(), Token: cfg.Token, Logger: utils.InfoLogger}
		utils.InfoLogger.Infof("Following %s", cfg.WebsocketURL())
	}

	go r.Run(ctx)
	go func() {
		if err := r.Follow(ctx, feed); err != nil && ctx.Err() == nil {
			utils.ErrorLogger.WithError(err).Error("change feed stopped, relying on polling")
		}
	}()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			utils.InfoLogger.Info("Shutting down")
			return
		case <-ticker.C:
			logSummary(r.Cache)
		}
	}
}

func logSummary(cache *reconcile.Cache) {
	snap := cache.Load()
	if snap == nil {
		utils.InfoLogger.Warn("no snapshot loaded yet")
		return
	}

	byStatus := map[string]int{}
	for _, o := range snap.Orders {
		byStatus[o.Status]++
	}
	occupied := 0
	for _, t := range snap.Tables {
		if t.Status == models.TableStatusOccupied {
			occupied++
		}
	}
	low := 0
	for _, ing := range snap.Ingredients {
		if ing.IsLow() {
			low++
		}
	}

	utils.WithRestaurant(snap.RestaurantID).WithFields(logrus.Fields{
		"pending":         byStatus[models.OrderStatusPending],
		"preparing":       byStatus[models.OrderStatusPreparing],
		"ready":           byStatus[models.OrderStatusReady],
		"served":          byStatus[models.OrderStatusServed],
		"occupied_tables": occupied,
		"low_stock":       low,
		"loaded_at":       snap.LoadedAt.Format(time.RFC3339),
	}).Info("restaurant view")
}
