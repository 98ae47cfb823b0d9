package domain

// OrderStatus represents the backend-owned lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsCancellable reports whether the client may offer the cancel action.
func (s OrderStatus) IsCancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusCancelled
	case OrderStatusProcessing:
		return newStatus == OrderStatusShipped ||
			newStatus == OrderStatusCancelled
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false // Terminal states
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	return string(s)
}

// AddressType distinguishes shipping and billing addresses
type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)

// PaymentMethod is the option picked on the payment step
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "creditCard"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netBanking"
	PaymentMethodCOD        PaymentMethod = "cod"
)

// IsValid checks if the payment method is one the checkout offers
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodCOD:
		return true
	default:
		return false
	}
}

// CheckoutStep is a position in the checkout sequence
type CheckoutStep string

const (
	CheckoutStepCollectingShipping CheckoutStep = "COLLECTING_SHIPPING"
	CheckoutStepCollectingPayment  CheckoutStep = "COLLECTING_PAYMENT"
	CheckoutStepReviewingOrder     CheckoutStep = "REVIEWING_ORDER"
	CheckoutStepPlacing            CheckoutStep = "PLACING"
	CheckoutStepConfirmed          CheckoutStep = "CONFIRMED"
)

// Index is the zero-based position shown by the step indicator
func (s CheckoutStep) Index() int {
	switch s {
	case CheckoutStepCollectingShipping:
		return 0
	case CheckoutStepCollectingPayment:
		return 1
	case CheckoutStepReviewingOrder, CheckoutStepPlacing:
		return 2
	case CheckoutStepConfirmed:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo checks if a checkout step change is allowed.
// Placing may fall back to ReviewingOrder when order creation fails.
func (s CheckoutStep) CanTransitionTo(next CheckoutStep) bool {
	switch s {
	case CheckoutStepCollectingShipping:
		return next == CheckoutStepCollectingPayment
	case CheckoutStepCollectingPayment:
		return next == CheckoutStepReviewingOrder ||
			next == CheckoutStepCollectingShipping
	case CheckoutStepReviewingOrder:
		return next == CheckoutStepPlacing ||
			next == CheckoutStepCollectingPayment
	case CheckoutStepPlacing:
		return next == CheckoutStepConfirmed ||
			next == CheckoutStepReviewingOrder
	case CheckoutStepConfirmed:
		return false // Terminal state
	default:
		return false
	}
}

func (s CheckoutStep) String() string {
	return string(s)
}
