package service_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/domain"
	"github.com/nexcart/storefront/internal/nexcart"
	"github.com/nexcart/storefront/internal/nexcart/nexcarttest"
	"github.com/nexcart/storefront/internal/service"
	"github.com/nexcart/storefront/internal/storage"
	apperrors "github.com/nexcart/storefront/pkg/errors"
)

func setup(t *testing.T, signedIn bool) (*nexcarttest.Server, *storage.MemoryStore, *nexcart.Client) {
	t.Helper()
	srv := nexcarttest.NewServer(t, "tok")
	srv.AddProduct(7, "Kettle", "100.00", "")
	mem := storage.NewMemoryStore()
	if signedIn {
		require.NoError(t, mem.Set(context.Background(), storage.KeyAccessToken, []byte("tok")))
	}
	client := nexcart.NewClient(config.APIConfig{BaseURL: srv.URL}, storage.TokenSource{Store: mem}, zap.NewNop())
	return srv, mem, client
}

func TestOrderService_ListFiltersByStatus(t *testing.T) {
	srv, _, client := setup(t, true)
	item := nexcarttest.CartItem{ID: 1, ProductID: 7, Quantity: 1}
	srv.AddOrder(nexcarttest.Order{Status: "pending", Items: []nexcarttest.CartItem{item}, Total: 100})
	srv.AddOrder(nexcarttest.Order{Status: "delivered", Items: []nexcarttest.CartItem{item}, Total: 100})
	srv.AddOrder(nexcarttest.Order{Status: "pending", Items: []nexcarttest.CartItem{item}, Total: 100})
	svc := service.NewOrderService(client, zap.NewNop())
	ctx := context.Background()

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := svc.List(ctx, domain.OrderStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = svc.List(ctx, "lost")
	var validation *apperrors.ErrValidation
	assert.ErrorAs(t, err, &validation)
}

func TestOrderService_Cancel(t *testing.T) {
	srv, _, client := setup(t, true)
	pendingID := srv.AddOrder(nexcarttest.Order{Status: "processing"})
	shippedID := srv.AddOrder(nexcarttest.Order{Status: "shipped"})
	svc := service.NewOrderService(client, zap.NewNop())
	ctx := context.Background()

	order, err := svc.Cancel(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)

	_, err = svc.Cancel(ctx, shippedID)
	var transition *apperrors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.OrderStatusShipped, transition.From)
	assert.Empty(t, srv.Calls(fmt.Sprintf("/orders/%d/cancel_order/", shippedID)))

	_, err = svc.Cancel(ctx, 9999)
	var notFound *apperrors.ErrNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "9999", notFound.ID)
}

func TestOrderService_CancelSurfacesBackendDetail(t *testing.T) {
	srv, _, client := setup(t, true)
	id := srv.AddOrder(nexcarttest.Order{Status: "pending"})
	srv.Fail(fmt.Sprintf("/orders/%d/cancel_order/", id), http.StatusBadRequest, "Cannot cancel order with status 'delivered'.")
	svc := service.NewOrderService(client, zap.NewNop())

	_, err := svc.Cancel(context.Background(), id)
	assert.EqualError(t, err, "Cannot cancel order with status 'delivered'.")
}

func TestOrderService_RequiresCredential(t *testing.T) {
	_, _, client := setup(t, false)
	svc := service.NewOrderService(client, zap.NewNop())

	_, err := svc.List(context.Background(), "")
	var unauthorized *apperrors.ErrUnauthorized
	assert.ErrorAs(t, err, &unauthorized)
}

func TestSessionService_LoginLogout(t *testing.T) {
	srv, mem, client := setup(t, false)
	srv.SetCredentials("asha@example.com", "secret")
	svc := service.NewSessionService(client, mem, zap.NewNop())
	ctx := context.Background()

	changes, err := mem.Watch(ctx, storage.KeyAccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Login(ctx, "asha@example.com", "secret"))
	<-changes

	access, err := mem.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(access))
	refresh, err := mem.Get(ctx, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-tok", string(refresh))

	signedIn, err := svc.SignedIn(ctx)
	require.NoError(t, err)
	assert.True(t, signedIn)

	require.NoError(t, svc.Logout(ctx))
	_, err = mem.Get(ctx, storage.KeyAccessToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	signedIn, err = svc.SignedIn(ctx)
	require.NoError(t, err)
	assert.False(t, signedIn)
}

func TestSessionService_BadCredentials(t *testing.T) {
	srv, mem, client := setup(t, false)
	srv.SetCredentials("asha@example.com", "secret")
	svc := service.NewSessionService(client, mem, zap.NewNop())

	err := svc.Login(context.Background(), "asha@example.com", "nope")
	var unauthorized *apperrors.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)
	assert.Contains(t, unauthorized.Error(), "No active account")

	err = svc.Login(context.Background(), "", "x")
	var validation *apperrors.ErrValidation
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "username", validation.Field)
}
