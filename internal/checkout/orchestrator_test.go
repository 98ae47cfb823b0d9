package checkout_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/cart"
	"github.com/nexcart/storefront/internal/checkout"
	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/domain"
	"github.com/nexcart/storefront/internal/nexcart"
	"github.com/nexcart/storefront/internal/nexcart/nexcarttest"
	"github.com/nexcart/storefront/internal/storage"
	apperrors "github.com/nexcart/storefront/pkg/errors"
)

var (
	kettle = domain.Product{ID: 7, Name: "Kettle", Price: decimal.RequireFromString("100")}
	mug    = domain.Product{ID: 9, Name: "Mug", Price: decimal.RequireFromString("50"), DiscountPrice: decimalPtr("40")}

	shippingForm = domain.ShippingDetails{
		FullName:     "Asha Rao",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		AddressLine1: "12 MG Road",
		City:         "Pune",
		State:        "Maharashtra",
		Pincode:      "411001",
		Country:      "India",
	}
	codPayment = domain.PaymentDetails{Method: domain.PaymentMethodCOD}
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type results struct {
	seen []string
}

func (r *results) ObserveCheckout(result string) {
	r.seen = append(r.seen, result)
}

type fixture struct {
	srv   *nexcarttest.Server
	mem   *storage.MemoryStore
	cart  *cart.Store
	flow  *checkout.Orchestrator
	stats *results
}

func newFixture(t *testing.T, policy string) *fixture {
	t.Helper()
	return newFixtureWithMode(t, policy, config.PushAdd)
}

func newFixtureWithMode(t *testing.T, policy, mode string) *fixture {
	t.Helper()
	srv := nexcarttest.NewServer(t, "tok")
	srv.AddProduct(7, "Kettle", "100.00", "")
	srv.AddProduct(9, "Mug", "50.00", "40.00")

	mem := storage.NewMemoryStore()
	client := nexcart.NewClient(config.APIConfig{BaseURL: srv.URL}, storage.TokenSource{Store: mem}, zap.NewNop())
	store := cart.New(client, mem, zap.NewNop())
	stats := &results{}
	flow := checkout.New(store, client, zap.NewNop(), checkout.Options{
		PushPolicy: policy,
		PushMode:   mode,
		TaxRate:    decimal.RequireFromString("0.18"),
		Recorder:   stats,
	})
	return &fixture{srv: srv, mem: mem, cart: store, flow: flow, stats: stats}
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.mem.Set(context.Background(), storage.KeyAccessToken, []byte("tok")))
}

func (f *fixture) toReview(t *testing.T) {
	t.Helper()
	_, err := f.flow.Begin()
	require.NoError(t, err)
	require.NoError(t, f.flow.SubmitShipping(shippingForm))
	require.NoError(t, f.flow.SubmitPayment(codPayment))
	require.Equal(t, domain.CheckoutStepReviewingOrder, f.flow.State().Step)
}

func postCalls(calls []nexcarttest.Call) []nexcarttest.Call {
	var out []nexcarttest.Call
	for _, c := range calls {
		if c.Method == http.MethodPost {
			out = append(out, c)
		}
	}
	return out
}

func TestPlaceOrder_ReusesDefaultShippingForBilling(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	shipID := f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true, StreetAddress: "1 Existing St"})
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 2)
	f.cart.AddItem(ctx, mug, 1)
	f.toReview(t)

	confirmation, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)

	assert.Empty(t, postCalls(f.srv.Calls("/addresses/")))
	orders := f.srv.Calls("/orders/create_from_cart/")
	require.Len(t, orders, 1)
	assert.Equal(t, float64(shipID), orders[0].Body["shipping_address_id"])
	assert.Equal(t, orders[0].Body["shipping_address_id"], orders[0].Body["billing_address_id"])

	assert.NotZero(t, confirmation.OrderID)
	assert.Empty(t, confirmation.FailedLines)
	require.Len(t, confirmation.Order.Items, 2)

	state := f.flow.State()
	assert.Equal(t, domain.CheckoutStepConfirmed, state.Step)
	assert.Equal(t, 3, state.StepIndex)
	assert.Nil(t, state.Shipping)
	assert.True(t, f.cart.Snapshot().IsEmpty())
	assert.Empty(t, f.srv.Cart())
	assert.Equal(t, []string{"confirmed"}, f.stats.seen)
}

func TestPlaceOrder_AddsEveryLine(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 2)
	f.toReview(t)

	_, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)

	adds := f.srv.Calls("/cart/add_item/")
	require.Len(t, adds, 2)
	assert.Equal(t, float64(7), adds[1].Body["product_id"])
	assert.Equal(t, float64(2), adds[1].Body["quantity"])
	assert.Empty(t, f.srv.Calls("/cart/update_item/"))
}

func TestPlaceOrder_RecreatesLinesRemovedRemotely(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	f.signIn(t)
	ctx := context.Background()
	require.Equal(t, cart.Synced, f.cart.AddItem(ctx, kettle, 2).Status)
	require.NotNil(t, f.cart.Snapshot().Lines[0].RemoteLineID)

	// emptied from another device; the local line keeps its stale remote id
	f.srv.SetCart()
	f.toReview(t)

	confirmation, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)
	require.Len(t, confirmation.Order.Items, 1)
	assert.Equal(t, 2, confirmation.Order.Items[0].Quantity)
	assert.Empty(t, confirmation.FailedLines)
	assert.Equal(t, domain.CheckoutStepConfirmed, f.flow.State().Step)
}

func TestPlaceOrder_ReconcileSetsQuantityOfSyncedLines(t *testing.T) {
	f := newFixtureWithMode(t, config.PushBestEffort, config.PushReconcile)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 2)
	f.toReview(t)

	confirmation, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)
	require.Len(t, confirmation.Order.Items, 1)
	assert.Equal(t, 2, confirmation.Order.Items[0].Quantity)
	assert.Len(t, f.srv.Calls("/cart/add_item/"), 1)
	assert.Len(t, f.srv.Calls("/cart/update_item/"), 1)
}

func TestPlaceOrder_ReconcileAddsLineWithStaleRemoteID(t *testing.T) {
	f := newFixtureWithMode(t, config.PushAllOrNothing, config.PushReconcile)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 2)
	f.srv.SetCart()
	f.toReview(t)

	confirmation, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)
	require.Len(t, confirmation.Order.Items, 1)
	assert.Equal(t, 2, confirmation.Order.Items[0].Quantity)
	assert.Len(t, f.srv.Calls("/cart/update_item/"), 1)
	assert.Len(t, f.srv.Calls("/cart/add_item/"), 2)
}

func TestPlaceOrder_CreatesShippingAddressWhenNoneIsDefault(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: false, StreetAddress: "Old St"})
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 1)
	f.signIn(t)
	f.toReview(t)

	_, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)

	created := postCalls(f.srv.Calls("/addresses/"))
	require.Len(t, created, 1)
	assert.Equal(t, "shipping", created[0].Body["address_type"])
	assert.Equal(t, true, created[0].Body["default"])
	assert.Equal(t, "12 MG Road", created[0].Body["street_address"])
	assert.Equal(t, "411001", created[0].Body["zip_code"])

	order := f.srv.Calls("/orders/create_from_cart/")[0]
	assert.Equal(t, order.Body["shipping_address_id"], order.Body["billing_address_id"])

	// the local-only line was pushed with an add
	adds := f.srv.Calls("/cart/add_item/")
	require.Len(t, adds, 1)
	assert.Equal(t, float64(7), adds[0].Body["product_id"])
}

func TestPlaceOrder_UsesDefaultBilling(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	shipID := f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	billID := f.srv.AddAddress(nexcarttest.Address{AddressType: "billing", Default: true})
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, mug, 1)
	f.toReview(t)

	_, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)

	order := f.srv.Calls("/orders/create_from_cart/")[0]
	assert.Equal(t, float64(shipID), order.Body["shipping_address_id"])
	assert.Equal(t, float64(billID), order.Body["billing_address_id"])
}

func TestPlaceOrder_WithoutCredential(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 1)
	f.toReview(t)

	_, err := f.flow.PlaceOrder(ctx)
	assert.ErrorIs(t, err, checkout.ErrAuthRequired)
	assert.Equal(t, domain.CheckoutStepReviewingOrder, f.flow.State().Step)
	assert.Empty(t, f.srv.Calls("/orders/create_from_cart/"))
	assert.Zero(t, f.srv.CallCount())
	assert.Equal(t, []string{"auth_required"}, f.stats.seen)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 1)
	f.toReview(t)
	f.cart.ClearLocal(ctx)

	_, err := f.flow.PlaceOrder(ctx)
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Equal(t, domain.CheckoutStepReviewingOrder, f.flow.State().Step)
	assert.Empty(t, f.srv.Calls("/orders/create_from_cart/"))
	assert.True(t, f.cart.Snapshot().IsEmpty())
}

func TestBegin_EmptyCartRedirects(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)

	step, err := f.flow.Begin()
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Equal(t, domain.CheckoutStepCollectingShipping, step)
}

func TestBegin_AfterConfirmationIgnoresEmptyCart(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 1)
	f.toReview(t)
	_, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)

	step, err := f.flow.Begin()
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepConfirmed, step)

	_, err = f.flow.Back()
	assert.ErrorIs(t, err, checkout.ErrInvalidStep)
	_, err = f.flow.PlaceOrder(ctx)
	assert.ErrorIs(t, err, checkout.ErrInvalidStep)
}

func TestPlaceOrder_BackendErrorSurfacesDetail(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 1)
	f.toReview(t)
	f.srv.Fail("/orders/create_from_cart/", http.StatusBadRequest, "Insufficient inventory for Kettle.")

	_, err := f.flow.PlaceOrder(ctx)
	require.Error(t, err)
	assert.EqualError(t, err, "Insufficient inventory for Kettle.")

	var placeErr *checkout.PlaceOrderError
	require.True(t, errors.As(err, &placeErr))
	assert.Equal(t, checkout.StageCreateOrder, placeErr.Stage)

	assert.Equal(t, domain.CheckoutStepReviewingOrder, f.flow.State().Step)
	assert.False(t, f.cart.Snapshot().IsEmpty())
	assert.Equal(t, []string{"failed"}, f.stats.seen)

	// retry from the same step
	f.srv.Recover("/orders/create_from_cart/")
	_, err = f.flow.PlaceOrder(ctx)
	require.NoError(t, err)
}

func TestPlaceOrder_AddressLookupFailureIsFatal(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.signIn(t)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 1)
	f.toReview(t)
	f.srv.Fail("/addresses/", http.StatusInternalServerError, "")

	_, err := f.flow.PlaceOrder(ctx)
	var placeErr *checkout.PlaceOrderError
	require.ErrorAs(t, err, &placeErr)
	assert.Equal(t, checkout.StageAddresses, placeErr.Stage)
	assert.Empty(t, f.srv.Calls("/orders/create_from_cart/"))
}

func TestPlaceOrder_BestEffortPartialSync(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 1)
	f.cart.AddItem(ctx, mug, 2)
	f.signIn(t)
	f.srv.FailAddItem(9)
	f.toReview(t)

	confirmation, err := f.flow.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, confirmation.FailedLines)
	require.Len(t, confirmation.Order.Items, 1)
	assert.Equal(t, int64(7), confirmation.Order.Items[0].ProductID)
}

func TestPlaceOrder_AllOrNothingAbortsOnPartialSync(t *testing.T) {
	f := newFixture(t, config.PushAllOrNothing)
	f.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true})
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 1)
	f.cart.AddItem(ctx, mug, 2)
	f.signIn(t)
	f.srv.FailAddItem(9)
	f.toReview(t)

	_, err := f.flow.PlaceOrder(ctx)
	var partial *checkout.PartialSyncError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Total)
	assert.Contains(t, partial.Failed, int64(9))

	assert.Empty(t, f.srv.Calls("/orders/create_from_cart/"))
	assert.Equal(t, domain.CheckoutStepReviewingOrder, f.flow.State().Step)
}

func TestSteps_GuardsAndBack(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	f.cart.AddItem(context.Background(), kettle, 1)

	err := f.flow.SubmitPayment(codPayment)
	assert.ErrorIs(t, err, checkout.ErrInvalidStep)
	var transition *apperrors.ErrInvalidStateTransition
	assert.ErrorAs(t, err, &transition)

	_, err = f.flow.Back()
	assert.ErrorIs(t, err, checkout.ErrInvalidStep)

	incomplete := shippingForm
	incomplete.City = ""
	err = f.flow.SubmitShipping(incomplete)
	var validation *apperrors.ErrValidation
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "city", validation.Field)
	assert.Equal(t, domain.CheckoutStepCollectingShipping, f.flow.State().Step)

	require.NoError(t, f.flow.SubmitShipping(shippingForm))
	err = f.flow.SubmitPayment(domain.PaymentDetails{Method: domain.PaymentMethodUPI})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "upi_id", validation.Field)

	require.NoError(t, f.flow.SubmitPayment(domain.PaymentDetails{Method: domain.PaymentMethodUPI, UPIID: "asha@upi"}))

	step, err := f.flow.Back()
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepCollectingPayment, step)
	step, err = f.flow.Back()
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepCollectingShipping, step)

	state := f.flow.State()
	require.NotNil(t, state.Shipping)
	assert.Equal(t, "Pune", state.Shipping.City)
	assert.Equal(t, domain.PaymentMethodUPI, state.Payment)
	assert.NotEmpty(t, state.SessionID)
}

func TestReview_AdvisoryTax(t *testing.T) {
	f := newFixture(t, config.PushBestEffort)
	ctx := context.Background()
	f.cart.AddItem(ctx, kettle, 2)
	f.cart.AddItem(ctx, mug, 1)
	f.toReview(t)

	review := f.flow.Review()
	assert.Equal(t, "240", review.Subtotal.String())
	assert.Equal(t, "43.2", review.Tax.String())
	assert.Equal(t, "283.2", review.Total.String())
	assert.Equal(t, domain.PaymentMethodCOD, review.Payment)
	assert.Len(t, review.Lines, 2)
}
