package services

import (
	"github.com/yeremiapane/restaurant-pos/models"
)

var orderStatusRank = map[string]int{
	models.OrderStatusPending:   0,
	models.OrderStatusPreparing: 1,
	models.OrderStatusReady:     2,
	models.OrderStatusServed:    3,
	models.OrderStatusPaid:      4,
}

// IsStickyStatus -> served dan paid tidak boleh diturunkan oleh perubahan item
func IsStickyStatus(status string) bool {
	return status == models.OrderStatusServed || status == models.OrderStatusPaid
}

// IsValidOrderStatus reports whether status is one of the known order statuses.
func IsValidOrderStatus(status string) bool {
	_, ok := orderStatusRank[status]
	return ok
}

// DeriveOrderStatus computes the order status implied by its items' statuses.
// It must be fed the freshest item snapshot available.
func DeriveOrderStatus(current string, itemStatuses []string) string {
	if IsStickyStatus(current) || len(itemStatuses) == 0 {
		return current
	}

	done := 0
	for _, s := range itemStatuses {
		if s == models.ItemStatusReady || s == models.ItemStatusServed {
			done++
		}
	}

	switch {
	case done == len(itemStatuses):
		return models.OrderStatusReady
	case current == models.OrderStatusReady:
		// item di-uncheck saat order sudah ready
		return models.OrderStatusPreparing
	case done > 0 && current == models.OrderStatusPending:
		return models.OrderStatusPreparing
	default:
		return current
	}
}

// ValidateOrderTransition checks an explicit (operator requested) order status change.
// Explicit moves only go forward; going back to preparing happens through item toggles.
func ValidateOrderTransition(from, to string) error {
	if !IsValidOrderStatus(to) {
		return invalid(ErrInvalidStatus, "unknown order status %q", to)
	}
	if from == models.OrderStatusPaid {
		return invalid(ErrTerminalStatus, "order is already paid")
	}
	if orderStatusRank[to] < orderStatusRank[from] {
		return invalid(ErrInvalidStatus, "cannot move order from %s back to %s", from, to)
	}
	return nil
}

// ValidateItemTransition checks a kitchen toggle. Served items are frozen.
func ValidateItemTransition(from, to string) error {
	if to != models.ItemStatusPending && to != models.ItemStatusReady {
		return invalid(ErrInvalidStatus, "unknown item status %q", to)
	}
	if from == models.ItemStatusServed {
		return invalid(ErrInvalidStatus, "item was already served")
	}
	return nil
}
