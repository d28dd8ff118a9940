package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/testutil"
)

// setupTestRedis creates a miniredis server and returns a RedisStore on top of it
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestResolver_Current(t *testing.T) {
	store := NewMemoryStore()
	token := testutil.Token(t, 42)
	require.NoError(t, store.Set(context.Background(), "userCookie", token))

	s, err := NewResolver(store, "userCookie").Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), s.UserID)
	assert.Equal(t, token, s.Token)
}

func TestResolver_MissingToken(t *testing.T) {
	r := NewResolver(NewMemoryStore(), "userCookie")

	_, err := r.Current(context.Background())
	assert.ErrorIs(t, err, ErrAuth)

	_, err = r.Token(context.Background())
	assert.ErrorIs(t, err, ErrAuth)

	_, err = r.UserID(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestResolver_ReadsStoreOnEveryCall(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewResolver(store, "userCookie")

	_, err := r.Login(ctx, testutil.Token(t, 7))
	require.NoError(t, err)

	id, err := r.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	require.NoError(t, r.Logout(ctx))
	_, err = r.UserID(ctx)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestResolver_LoginRejectsUndecodableToken(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, "userCookie")

	_, err := r.Login(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrAuth)

	_, err = store.Get(context.Background(), "userCookie")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecodeUserID(t *testing.T) {
	tests := map[string]struct {
		token   string
		want    int64
		wantErr bool
	}{
		"numeric claim":    {token: testutil.Token(t, 12), want: 12},
		"string claim":     {token: testutil.Token(t, "99"), want: 99},
		"fractional claim": {token: testutil.Token(t, 1.5), wantErr: true},
		"non numeric":      {token: testutil.Token(t, "abc"), wantErr: true},
		"zero":             {token: testutil.Token(t, 0), wantErr: true},
		"garbage":          {token: "a.b.c", wantErr: true},
		"empty":            {token: "", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeUserID(tc.token)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrAuth))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "userCookie")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "userCookie", "tok"))
	assert.True(t, mr.Exists("session:userCookie"))

	v, err := store.Get(ctx, "userCookie")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	require.NoError(t, store.Delete(ctx, "userCookie"))
	assert.False(t, mr.Exists("session:userCookie"))
}

func TestRedisStore_ResolverUsesTokenWrittenExternally(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("session:userCookie", testutil.Token(t, 5)))

	id, err := NewResolver(store, "userCookie").UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := NewResolver(store, "userCookie").Current(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAuth))
}
