package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"locar-backend/internal/logger"
)

const maxKeyLength = 128

var (
	// ErrInProgress means another request with the same key has not finished.
	ErrInProgress = errors.New("a request with this idempotency key is still in progress")
	ErrInvalidKey = errors.New("idempotency key must be 1 to 128 printable characters")
)

// Response is the cached outcome of a completed request.
type Response struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	StoredAt   time.Time       `json:"stored_at"`
}

type record struct {
	Pending  bool      `json:"pending"`
	Response *Response `json:"response,omitempty"`
}

// Service guards write operations with client supplied idempotency keys.
type Service struct {
	store      Store
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{store: store, ttl: ttl, pendingTTL: time.Minute}
}

// ValidateKey accepts printable ASCII keys such as UUIDs.
func ValidateKey(key string) error {
	if key == "" || len(key) > maxKeyLength {
		return ErrInvalidKey
	}
	for _, c := range key {
		if c < 0x21 || c > 0x7e {
			return ErrInvalidKey
		}
	}
	return nil
}

func buildKey(scope, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, key)
}

// Begin claims key within scope. It returns the cached response when the
// request already completed, ErrInProgress when it is still running, and
// (nil, nil) when the caller now owns the key and must call Complete or
// Abandon.
func (s *Service) Begin(ctx context.Context, scope, key string) (*Response, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	storeKey := buildKey(scope, key)

	pending, _ := json.Marshal(record{Pending: true})
	claimed, err := s.store.SetNX(ctx, storeKey, pending, s.pendingTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed {
		logger.DebugContext(ctx, "Idempotency key claimed", "scope", scope, "key", key)
		return nil, nil
	}

	data, err := s.store.Get(ctx, storeKey)
	if errors.Is(err, ErrNotFound) {
		// expired between the two calls
		return s.Begin(ctx, scope, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	if rec.Pending || rec.Response == nil {
		return nil, ErrInProgress
	}
	logger.DebugContext(ctx, "Idempotency replay", "scope", scope, "key", key, "status", rec.Response.StatusCode)
	return rec.Response, nil
}

// Complete stores the final response for key.
func (s *Service) Complete(ctx context.Context, scope, key string, statusCode int, body []byte) error {
	rec := record{Response: &Response{StatusCode: statusCode, Body: body, StoredAt: time.Now().UTC()}}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	if err := s.store.Set(ctx, buildKey(scope, key), data, s.ttl); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// Abandon releases a claimed key so the client can retry.
func (s *Service) Abandon(ctx context.Context, scope, key string) error {
	if err := s.store.Delete(ctx, buildKey(scope, key)); err != nil {
		return fmt.Errorf("failed to delete idempotency key: %w", err)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
