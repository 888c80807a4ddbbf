package idempotency

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("3f2b8c1e-0d6a-4e8f-9a51-7c2d1e0b9f44"))
	assert.ErrorIs(t, ValidateKey(""), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey("has space"), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey(strings.Repeat("k", 129)), ErrInvalidKey)
}

func TestService_BeginCompleteReplay(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), time.Hour)

	cached, err := svc.Begin(ctx, "payments:7", "abc")
	require.NoError(t, err)
	assert.Nil(t, cached)

	_, err = svc.Begin(ctx, "payments:7", "abc")
	assert.ErrorIs(t, err, ErrInProgress)

	cached, err = svc.Begin(ctx, "payments:8", "abc")
	require.NoError(t, err)
	assert.Nil(t, cached, "keys are scoped")

	require.NoError(t, svc.Complete(ctx, "payments:7", "abc", 201, []byte(`{"week":1}`)))

	cached, err = svc.Begin(ctx, "payments:7", "abc")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 201, cached.StatusCode)
	assert.JSONEq(t, `{"week":1}`, string(cached.Body))
}

func TestService_Abandon(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), time.Hour)

	_, err := svc.Begin(ctx, "payments:1", "k1")
	require.NoError(t, err)
	require.NoError(t, svc.Abandon(ctx, "payments:1", "k1"))

	cached, err := svc.Begin(ctx, "payments:1", "k1")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	ok, err := store.SetNX(ctx, "k", []byte("v"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "k", []byte("w"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = store.SetNX(ctx, "k", []byte("w"), 0)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("w"), got)
}
