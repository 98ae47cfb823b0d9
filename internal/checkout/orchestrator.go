package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/cart"
	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/domain"
	"github.com/nexcart/storefront/internal/nexcart"
	apperrors "github.com/nexcart/storefront/pkg/errors"
)

// Cart is the part of the cart store checkout reads and clears
type Cart interface {
	Snapshot() cart.Snapshot
	Clear(ctx context.Context) cart.SyncResult
}

// Backend is the part of the NexCart client checkout calls
type Backend interface {
	HasCredential(ctx context.Context) bool
	AddItem(ctx context.Context, productID int64, quantity int) error
	UpdateItem(ctx context.Context, cartItemID int64, quantity int) error
	ListAddresses(ctx context.Context) (nexcart.Page[domain.Address], error)
	CreateAddress(ctx context.Context, address domain.Address) (domain.Address, error)
	CreateOrderFromCart(ctx context.Context, shippingAddressID, billingAddressID int64) (domain.Order, error)
}

// Recorder receives the outcome of every order placement
type Recorder interface {
	ObserveCheckout(result string)
}

type Options struct {
	// PushPolicy is config.PushBestEffort or config.PushAllOrNothing
	PushPolicy string
	// PushMode is config.PushAdd or config.PushReconcile
	PushMode   string
	TaxRate    decimal.Decimal
	Recorder   Recorder
}

// Review is the advisory order summary shown before placing.
// The backend computes the amount actually charged.
type Review struct {
	Lines    []domain.CartLine
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Shipping *domain.ShippingDetails
	Payment  domain.PaymentMethod
}

// Confirmation is the result of a placed order
type Confirmation struct {
	OrderID     int64
	Order       domain.Order
	FailedLines []int64
}

// State is a read-only view of a checkout session
type State struct {
	SessionID    string
	Step         domain.CheckoutStep
	StepIndex    int
	Shipping     *domain.ShippingDetails
	Payment      domain.PaymentMethod
	Confirmation *Confirmation
}

// Orchestrator drives one checkout session from shipping details to a confirmed order
type Orchestrator struct {
	cart    Cart
	backend Backend
	opts    Options
	logger  *zap.Logger

	mu           sync.Mutex
	id           uuid.UUID
	step         domain.CheckoutStep
	shipping     *domain.ShippingDetails
	payment      *domain.PaymentDetails
	confirmation *Confirmation
}

func New(c Cart, backend Backend, logger *zap.Logger, opts Options) *Orchestrator {
	if opts.PushPolicy == "" {
		opts.PushPolicy = config.PushBestEffort
	}
	if opts.PushMode == "" {
		opts.PushMode = config.PushAdd
	}
	id := uuid.New()
	return &Orchestrator{
		cart:    c,
		backend: backend,
		opts:    opts,
		logger:  logger.With(zap.String("checkout_session", id.String())),
		id:      id,
		step:    domain.CheckoutStepCollectingShipping,
	}
}

// SessionID identifies this checkout session in logs
func (o *Orchestrator) SessionID() string {
	return o.id.String()
}

// Begin enforces the entry guard: an unconfirmed checkout needs a non-empty cart
func (o *Orchestrator) Begin() (domain.CheckoutStep, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.step != domain.CheckoutStepConfirmed && o.cart.Snapshot().IsEmpty() {
		return o.step, ErrEmptyCart
	}
	return o.step, nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := State{
		SessionID:    o.id.String(),
		Step:         o.step,
		StepIndex:    o.step.Index(),
		Confirmation: o.confirmation,
	}
	if o.shipping != nil {
		d := *o.shipping
		s.Shipping = &d
	}
	if o.payment != nil {
		s.Payment = o.payment.Method
	}
	return s
}

// SubmitShipping stores the shipping form and moves on to payment
func (o *Orchestrator) SubmitShipping(details domain.ShippingDetails) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.expect(domain.CheckoutStepCollectingShipping, domain.CheckoutStepCollectingPayment); err != nil {
		return err
	}
	if err := details.Validate(); err != nil {
		return err
	}
	o.shipping = &details
	o.step = domain.CheckoutStepCollectingPayment
	return nil
}

// SubmitPayment stores the payment form and moves on to review
func (o *Orchestrator) SubmitPayment(details domain.PaymentDetails) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.expect(domain.CheckoutStepCollectingPayment, domain.CheckoutStepReviewingOrder); err != nil {
		return err
	}
	if err := details.Validate(); err != nil {
		return err
	}
	o.payment = &details
	o.step = domain.CheckoutStepReviewingOrder
	return nil
}

// Back returns to the previous form step; entered details are kept
func (o *Orchestrator) Back() (domain.CheckoutStep, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev := domain.CheckoutStepCollectingShipping
	if o.step == domain.CheckoutStepReviewingOrder {
		prev = domain.CheckoutStepCollectingPayment
	}
	if err := o.expect(o.step, prev); err != nil {
		return o.step, err
	}
	o.step = prev
	return o.step, nil
}

// Review summarises the cart with the display-only tax
func (o *Orchestrator) Review() Review {
	snap := o.cart.Snapshot()
	tax := snap.Total.Mul(o.opts.TaxRate).Round(2)

	o.mu.Lock()
	defer o.mu.Unlock()
	r := Review{
		Lines:    snap.Lines,
		Subtotal: snap.Total,
		Tax:      tax,
		Total:    snap.Total.Add(tax),
	}
	if o.shipping != nil {
		d := *o.shipping
		r.Shipping = &d
	}
	if o.payment != nil {
		r.Payment = o.payment.Method
	}
	return r
}

// PlaceOrder pushes the cart, resolves addresses and creates the order.
// Any failure leaves the session in ReviewingOrder so the user can retry.
func (o *Orchestrator) PlaceOrder(ctx context.Context) (*Confirmation, error) {
	o.mu.Lock()
	if o.step != domain.CheckoutStepReviewingOrder {
		step := o.step
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrInvalidStep,
			&apperrors.ErrInvalidStateTransition{From: step, To: domain.CheckoutStepPlacing})
	}
	if !o.backend.HasCredential(ctx) {
		o.mu.Unlock()
		o.record("auth_required")
		return nil, ErrAuthRequired
	}
	snap := o.cart.Snapshot()
	if snap.IsEmpty() {
		o.mu.Unlock()
		o.record("empty_cart")
		return nil, ErrEmptyCart
	}
	shipping := *o.shipping
	o.step = domain.CheckoutStepPlacing
	o.mu.Unlock()

	o.logger.Info("Placing order", zap.Int("lines", len(snap.Lines)), zap.String("subtotal", snap.Total.String()))

	confirmation, err := o.place(ctx, snap, shipping)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.step = domain.CheckoutStepReviewingOrder
		switch {
		case errors.Is(err, ErrAuthRequired):
			o.record("auth_required")
		default:
			o.record("failed")
		}
		o.logger.Error("Failed to place order", zap.Error(err))
		return nil, err
	}

	o.step = domain.CheckoutStepConfirmed
	o.confirmation = confirmation
	o.shipping = nil
	o.payment = nil
	o.record("confirmed")
	o.logger.Info("Order placed", zap.Int64("order_id", confirmation.OrderID))
	return confirmation, nil
}

func (o *Orchestrator) place(ctx context.Context, snap cart.Snapshot, shipping domain.ShippingDetails) (*Confirmation, error) {
	failed, err := o.pushLines(ctx, snap.Lines)
	if err != nil {
		return nil, err
	}

	page, err := o.backend.ListAddresses(ctx)
	if err != nil {
		return nil, o.fatal(StageAddresses, err)
	}

	shippingAddr, ok := nexcart.FindDefault(page.Items, domain.AddressTypeShipping)
	if !ok {
		shippingAddr, err = o.backend.CreateAddress(ctx, shipping.ToAddress())
		if err != nil {
			return nil, o.fatal(StageCreateAddress, err)
		}
		o.logger.Info("Created default shipping address", zap.Int64("address_id", shippingAddr.ID))
	}

	billingID := shippingAddr.ID
	if billing, ok := nexcart.FindDefault(page.Items, domain.AddressTypeBilling); ok {
		billingID = billing.ID
	}

	order, err := o.backend.CreateOrderFromCart(ctx, shippingAddr.ID, billingID)
	if err != nil {
		return nil, o.fatal(StageCreateOrder, err)
	}

	if result := o.cart.Clear(ctx); result.Status != cart.Synced {
		o.logger.Warn("Remote cart not cleared after order", zap.Error(result.Reason))
	}

	return &Confirmation{OrderID: order.ID, Order: order, FailedLines: failed}, nil
}

// pushLines adds every local line to the remote cart before the order is
// created from it.
func (o *Orchestrator) pushLines(ctx context.Context, lines []domain.CartLine) ([]int64, error) {
	partial := &PartialSyncError{Total: len(lines), Failed: make(map[int64]error)}
	var failed []int64

	for _, line := range lines {
		err := o.pushLine(ctx, line)
		if err == nil {
			continue
		}
		if errors.Is(err, nexcart.ErrNoCredential) {
			return nil, ErrAuthRequired
		}
		o.logger.Warn("Failed to sync cart line before order",
			zap.Int64("product_id", line.ProductID),
			zap.Error(err),
		)
		partial.Failed[line.ProductID] = err
		failed = append(failed, line.ProductID)
	}

	if len(failed) > 0 && o.opts.PushPolicy == config.PushAllOrNothing {
		return nil, o.fatal(StagePushCart, partial)
	}
	return failed, nil
}

// pushLine sends one line. In reconcile mode a line the remote cart already
// holds gets its quantity set; a stale remote id falls back to an add.
func (o *Orchestrator) pushLine(ctx context.Context, line domain.CartLine) error {
	if o.opts.PushMode != config.PushReconcile || line.RemoteLineID == nil {
		return o.backend.AddItem(ctx, line.ProductID, line.Quantity)
	}

	err := o.backend.UpdateItem(ctx, *line.RemoteLineID, line.Quantity)
	var apiErr *nexcart.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		o.logger.Info("Remote cart line is gone, adding it again",
			zap.Int64("product_id", line.ProductID),
			zap.Int64("cart_item_id", *line.RemoteLineID),
		)
		return o.backend.AddItem(ctx, line.ProductID, line.Quantity)
	}
	return err
}

func (o *Orchestrator) fatal(stage Stage, err error) error {
	if errors.Is(err, nexcart.ErrNoCredential) {
		return ErrAuthRequired
	}
	return &PlaceOrderError{Stage: stage, Err: err}
}

// expect checks the current step and the transition to next
func (o *Orchestrator) expect(current, next domain.CheckoutStep) error {
	if o.step != current || !o.step.CanTransitionTo(next) {
		return fmt.Errorf("%w: %w", ErrInvalidStep,
			&apperrors.ErrInvalidStateTransition{From: o.step, To: next})
	}
	return nil
}

func (o *Orchestrator) record(result string) {
	if o.opts.Recorder != nil {
		o.opts.Recorder.ObserveCheckout(result)
	}
}
