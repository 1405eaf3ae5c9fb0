package biz

import "github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"

var orderTransitions = map[string][]string{
	constants.OrderStatusPending:    {constants.OrderStatusPaid, constants.OrderStatusProcessing, constants.OrderStatusCancelled},
	constants.OrderStatusPaid:       {constants.OrderStatusProcessing, constants.OrderStatusCancelled, constants.OrderStatusRefunded},
	constants.OrderStatusProcessing: {constants.OrderStatusShipped, constants.OrderStatusCancelled},
	constants.OrderStatusShipped:    {constants.OrderStatusDelivered, constants.OrderStatusCancelled},
	constants.OrderStatusDelivered:  {constants.OrderStatusRefunded},
}

var paymentStatuses = map[string]bool{
	constants.PaymentStatusPending:   true,
	constants.PaymentStatusAwaiting:  true,
	constants.PaymentStatusCompleted: true,
	constants.PaymentStatusFailed:    true,
}

// ValidOrderStatus reports whether s is a known fulfilment status.
func ValidOrderStatus(s string) bool {
	if _, ok := orderTransitions[s]; ok {
		return true
	}
	return IsTerminalStatus(s)
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	return paymentStatuses[s]
}

// IsTerminalStatus cancelled 与 refunded 为终态
func IsTerminalStatus(s string) bool {
	return s == constants.OrderStatusCancelled || s == constants.OrderStatusRefunded
}

// CanTransition reports whether an order may move to status `to`.
// Same-state updates are allowed. An online order must have a completed
// payment before it can move past pending, except to be cancelled; cash on
// delivery orders may go straight to processing.
func CanTransition(o *Order, to string) bool {
	if o.Status == to {
		return true
	}
	allowed := false
	for _, s := range orderTransitions[o.Status] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	if o.Status != constants.OrderStatusPending || to == constants.OrderStatusCancelled {
		return true
	}
	if o.PaymentMethod == constants.PaymentMethodCOD {
		return true
	}
	return o.PaymentStatus == constants.PaymentStatusCompleted
}
