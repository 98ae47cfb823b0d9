package storage

import (
	"context"
	"errors"
)

// TokenSource reads the bearer token from the shared store on every call,
// so a sign-in from another process is picked up without a restart.
type TokenSource struct {
	Store Store
}

func (t TokenSource) AccessToken(ctx context.Context) (string, error) {
	v, err := t.Store.Get(ctx, KeyAccessToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}
