package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
	if cfg.SeedDemo {
		demo, err := database.Seed(db)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to seed demo data: %v", err)
		}
		utils.InfoLogger.Infof("Demo restaurant id=%d", demo.Restaurant.ID)
	}

	hub := kds.NewHub(utils.InfoLogger)
	publishers := events.MultiPublisher{hub}
	if cfg.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsPub.Close()
		publishers = append(publishers, natsPub)
		utils.InfoLogger.Infof("Publishing changes to NATS at %s", cfg.NATSURL)
	}

	// Change monitor mengirim outbox ke websocket dan NATS
	monitor := services.NewChangeMonitor(db, publishers, utils.InfoLogger)
	monitor.Interval = cfg.ChangeMonitorInterval
	monitor.Start()
	defer monitor.Stop()

	engine := services.NewEngine(db, services.EngineOptions{
		AtomicInventory: cfg.InventoryAtomic,
		Gateway:         services.CashGateway{},
		Logger:          utils.InfoLogger,
		OnCommit:        monitor.Notify,
	})

	r := router.SetupRouter(router.Deps{
		Engine:             engine,
		Hub:                hub,
		JWTSecret:          []byte(cfg.JWTSecret),
		AllowedOrigin:      cfg.AllowedOrigin,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		utils.InfoLogger.Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.WithError(err).Error("graceful shutdown failed")
	}
	// kirim sisa outbox sebelum keluar
	if _, err := monitor.Flush(shutdownCtx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("outbox not fully relayed")
	}
}
