package services

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EngineOptions configures NewEngine.
type EngineOptions struct {
	// AtomicInventory selects the `stock = stock - ?` primitive; false forces the
	// compare-and-swap fallback.
	AtomicInventory bool
	Gateway         PaymentGateway
	Logger          *logrus.Logger
	// OnCommit is called after each committed write.
	OnCommit func()
}

// Engine bundles the store handles every request works against. It holds no
// per-restaurant state; each operation is scoped by its restaurant id.
type Engine struct {
	DB        *gorm.DB
	Menu      MenuCatalog
	Ledger    *InventoryLedger
	Orders    *OrderStore
	Deduction *DeductionEngine
	Payments  *PaymentService
	Logger    *logrus.Logger
}

func NewEngine(db *gorm.DB, opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	menu := NewGormMenuCatalog(db)
	ledger := NewInventoryLedger(db, opts.AtomicInventory, logger)

	orders := NewOrderStore(db, logger)
	orders.OnCommit = opts.OnCommit

	deduction := NewDeductionEngine(db, menu, ledger, logger)
	deduction.OnCommit = opts.OnCommit

	return &Engine{
		DB:        db,
		Menu:      menu,
		Ledger:    ledger,
		Orders:    orders,
		Deduction: deduction,
		Payments:  NewPaymentService(orders, opts.Gateway, logger),
		Logger:    logger,
	}
}
