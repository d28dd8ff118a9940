package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuth is returned whenever no usable session token is available.
var ErrAuth = errors.New("session: not authenticated")

// Session is the decoded view of the stored token. The token is decoded, not
// verified; the gateway is the authority on whether it is still valid.
type Session struct {
	Token  string
	UserID int64
}

// Resolver reads the token from the store on every call, so a logout or a
// token swap is visible to the next gateway call without a restart.
type Resolver struct {
	store Store
	key   string
}

func NewResolver(store Store, key string) *Resolver {
	return &Resolver{store: store, key: key}
}

func (r *Resolver) Current(ctx context.Context) (Session, error) {
	token, err := r.store.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return Session{}, fmt.Errorf("%w: no token under %q", ErrAuth, r.key)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read token: %w", err)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, fmt.Errorf("%w: empty token", ErrAuth)
	}

	userID, err := DecodeUserID(token)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: userID}, nil
}

// Token satisfies clients.TokenSource.
func (r *Resolver) Token(ctx context.Context) (string, error) {
	s, err := r.Current(ctx)
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

func (r *Resolver) UserID(ctx context.Context) (int64, error) {
	s, err := r.Current(ctx)
	if err != nil {
		return 0, err
	}
	return s.UserID, nil
}

// Login stores a token handed over by the login flow. Tokens that cannot be
// decoded are rejected before they reach the store.
func (r *Resolver) Login(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	userID, err := DecodeUserID(token)
	if err != nil {
		return Session{}, err
	}
	if err := r.store.Set(ctx, r.key, token); err != nil {
		return Session{}, fmt.Errorf("store token: %w", err)
	}
	return Session{Token: token, UserID: userID}, nil
}

func (r *Resolver) Logout(ctx context.Context) error {
	if err := r.store.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// DecodeUserID extracts the numeric "id" claim without verifying the signature.
func DecodeUserID(token string) (int64, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, fmt.Errorf("%w: decode token: %v", ErrAuth, err)
	}

	raw, ok := claims["id"]
	if !ok {
		return 0, fmt.Errorf("%w: token has no id claim", ErrAuth)
	}

	var id int64
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%w: id claim %v is not an integer", ErrAuth, v)
		}
		id = int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: id claim %q is not numeric", ErrAuth, v)
		}
		id = n
	default:
		return 0, fmt.Errorf("%w: id claim has type %T", ErrAuth, raw)
	}

	if id <= 0 {
		return 0, fmt.Errorf("%w: id claim must be positive", ErrAuth)
	}
	return id, nil
}
