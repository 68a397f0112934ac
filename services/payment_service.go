package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Metode pembayaran
const (
	PaymentMethodCash = "cash"
)

// ChargeRequest is what the gateway needs to collect a payment.
type ChargeRequest struct {
	RestaurantID uint
	TableID      *uint
	OrderID      *uint
	Amount       decimal.Decimal
	Method       string
}

// ChargeResult -> hasil dari payment gateway
type ChargeResult struct {
	Success     bool
	ReferenceID string
	Message     string
}

// PaymentGateway collects money. Checkout sessions, taxes and fiscal signatures live
// behind it; the engine only needs success or failure.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// CashGateway accepts every charge at the counter.
type CashGateway struct{}

func (CashGateway) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	return &ChargeResult{
		Success:     true,
		ReferenceID: "CASH-" + uuid.NewString()[:8],
		Message:     fmt.Sprintf("cash payment of %s received", req.Amount.StringFixed(2)),
	}, nil
}

// ErrPaymentDeclined is returned when the gateway reports a failed charge.
var ErrPaymentDeclined = NewValidationError("payment was declined")

// PaymentMetrics menyimpan metrik terkait pembayaran
type PaymentMetrics struct {
	TotalTransactions  int64 `json:"total_transactions"`
	SuccessfulPayments int64 `json:"successful_payments"`
	FailedPayments     int64 `json:"failed_payments"`
	NoopPayments       int64 `json:"noop_payments"`
	AvgResponseTime    int64 `json:"avg_response_time_ms"`
}

// PaymentService charges through the gateway and, on success, runs the payment path
// of the order store.
type PaymentService struct {
	Store   *OrderStore
	Gateway PaymentGateway
	Logger  *logrus.Logger

	metrics PaymentMetrics
	mutex   sync.Mutex
}

func NewPaymentService(store *OrderStore, gateway PaymentGateway, logger *logrus.Logger) *PaymentService {
	if gateway == nil {
		gateway = CashGateway{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PaymentService{Store: store, Gateway: gateway, Logger: logger}
}

// PayTable charges the table's unpaid orders and settles exactly those. Orders placed
// while the charge runs stay unpaid and keep the table occupied.
func (s *PaymentService) PayTable(ctx context.Context, restaurantID, tableID uint, method string) (*PaymentOutcome, error) {
	snap, err := s.Store.TableSnapshot(ctx, restaurantID, tableID)
	if err != nil {
		return nil, err
	}
	if len(snap.Orders) == 0 {
		// tetap lewat payment path supaya meja yang tertinggal occupied dibebaskan
		s.record(time.Now(), nil, true)
		return s.Store.MarkTablePaid(ctx, restaurantID, tableID, nil)
	}

	amount := decimal.Zero
	ids := make([]uint, len(snap.Orders))
	for i := range snap.Orders {
		amount = amount.Add(snap.Orders[i].Total())
		ids[i] = snap.Orders[i].ID
	}
	return s.pay(ctx, ChargeRequest{RestaurantID: restaurantID, TableID: &tableID, Amount: amount, Method: method}, ids,
		func(info *PaymentInfo) (*PaymentOutcome, error) {
			return s.Store.MarkTablePaid(ctx, restaurantID, tableID, info)
		})
}

// PayOrder settles one order; dine-in orders settle their table.
func (s *PaymentService) PayOrder(ctx context.Context, restaurantID, orderID uint, method string) (*PaymentOutcome, error) {
	order, err := s.Store.OrderByID(ctx, restaurantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		s.record(time.Now(), nil, true)
		return &PaymentOutcome{TableID: order.TableID, Noop: true}, nil
	}
	if order.TableID != nil {
		return s.PayTable(ctx, restaurantID, *order.TableID, method)
	}

	return s.pay(ctx, ChargeRequest{RestaurantID: restaurantID, OrderID: &orderID, Amount: order.Total(), Method: method}, []uint{orderID},
		func(info *PaymentInfo) (*PaymentOutcome, error) {
			return s.Store.MarkOrderPaid(ctx, restaurantID, orderID, info)
		})
}

func (s *PaymentService) pay(ctx context.Context, req ChargeRequest, orderIDs []uint, settle func(*PaymentInfo) (*PaymentOutcome, error)) (*PaymentOutcome, error) {
	if req.Method == "" {
		req.Method = PaymentMethodCash
	}
	start := time.Now()

	result, err := s.Gateway.Charge(ctx, req)
	if err != nil {
		s.record(start, err, false)
		return nil, fmt.Errorf("payment gateway failed: %w", err)
	}
	if !result.Success {
		s.record(start, ErrPaymentDeclined, false)
		s.Logger.WithFields(logrus.Fields{
			"restaurant_id": req.RestaurantID,
			"reference_id":  result.ReferenceID,
		}).Warnf("payment declined: %s", result.Message)
		return nil, ErrPaymentDeclined
	}

	outcome, err := settle(&PaymentInfo{
		Method:      req.Method,
		ReferenceID: result.ReferenceID,
		OrderIDs:    orderIDs,
		Amount:      req.Amount,
	})
	if err != nil {
		// uang sudah diterima tapi order belum tercatat paid, butuh tindakan operator
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"restaurant_id": req.RestaurantID,
			"reference_id":  result.ReferenceID,
			"amount":        req.Amount.String(),
		}).Error("payment charged but settlement failed")
		s.record(start, err, false)
		return nil, err
	}

	s.record(start, nil, outcome.Noop)
	s.Logger.WithFields(logrus.Fields{
		"restaurant_id":  req.RestaurantID,
		"receipt_number": outcome.ReceiptNumber,
		"orders":         len(outcome.Orders),
	}).Info("payment settled")
	return outcome, nil
}

func (s *PaymentService) record(start time.Time, err error, noop bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.metrics.TotalTransactions++
	switch {
	case err != nil:
		s.metrics.FailedPayments++
	case noop:
		s.metrics.NoopPayments++
	default:
		s.metrics.SuccessfulPayments++
	}

	elapsed := time.Since(start).Milliseconds()
	n := s.metrics.TotalTransactions
	s.metrics.AvgResponseTime = (s.metrics.AvgResponseTime*(n-1) + elapsed) / n
}

// GetMetrics mengembalikan salinan metrik pembayaran
func (s *PaymentService) GetMetrics() PaymentMetrics {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.metrics
}
