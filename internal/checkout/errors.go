package checkout

import (
	"errors"
	"fmt"

	"github.com/nexcart/storefront/internal/nexcart"
)

var (
	// ErrAuthRequired aborts checkout; the caller should send the user to sign in
	ErrAuthRequired = errors.New("sign in to place your order")
	// ErrEmptyCart means there is nothing to check out
	ErrEmptyCart = errors.New("your cart is empty")
	// ErrInvalidStep is returned for actions the current step does not allow
	ErrInvalidStep = errors.New("action not allowed at this checkout step")
)

// Stage names the part of order placement that failed
type Stage string

const (
	StagePushCart      Stage = "push_cart"
	StageAddresses     Stage = "load_addresses"
	StageCreateAddress Stage = "create_address"
	StageCreateOrder   Stage = "create_order"
)

// PlaceOrderError is a checkout-fatal failure. Its message is meant for the user.
type PlaceOrderError struct {
	Stage Stage
	Err   error
}

func (e *PlaceOrderError) Error() string {
	var apiErr *nexcart.APIError
	if errors.As(e.Err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	switch e.Stage {
	case StageAddresses:
		return fmt.Sprintf("could not load your addresses: %v", e.Err)
	case StageCreateAddress:
		return fmt.Sprintf("could not save your shipping address: %v", e.Err)
	case StageCreateOrder:
		return fmt.Sprintf("failed to place order: %v", e.Err)
	default:
		return fmt.Sprintf("checkout failed at %s: %v", e.Stage, e.Err)
	}
}

func (e *PlaceOrderError) Unwrap() error {
	return e.Err
}

// PartialSyncError reports cart lines that could not be pushed before order creation
type PartialSyncError struct {
	Total  int
	Failed map[int64]error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("%d of %d cart lines could not be synced", len(e.Failed), e.Total)
}
