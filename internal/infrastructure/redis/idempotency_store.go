package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	keyNamespace      = "sl"
	idempotencyPrefix = "idempotency"
	// pendingTTL tope de una reserva sin completar (proceso caído a mitad de la solicitud).
	pendingTTL = time.Minute
)

var _ repository.IdempotencyRepository = (*IdempotencyStore)(nil)

type cmdable interface {
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// IdempotencyStore implementación de repository.IdempotencyRepository sobre Redis.
type IdempotencyStore struct {
	store cmdable
	ttl   time.Duration
}

// NewIdempotencyStore ttl es la vigencia de una respuesta completada.
func NewIdempotencyStore(store cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{store: store, ttl: ttl}
}

// Key devuelve la llave con namespace: sl:idempotency:<scope>:<key>.
func (s *IdempotencyStore) Key(scope, key string) string {
	return strings.Join([]string{keyNamespace, idempotencyPrefix, scope, key}, ":")
}

// Reserve intenta SETNX de un registro pendiente; si la llave existe devuelve lo guardado.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key, requestHash string) (*repository.IdempotencyRecord, bool, error) {
	pending, err := json.Marshal(repository.IdempotencyRecord{Pending: true, RequestHash: requestHash})
	if err != nil {
		return nil, false, fmt.Errorf("marshal idempotency record: %w", err)
	}
	fullKey := s.Key(scope, key)
	ok, err := s.store.SetNX(ctx, fullKey, string(pending), pendingTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.store.Get(ctx, fullKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expiró entre SETNX y GET: se trata como en curso y el cliente reintenta.
		return &repository.IdempotencyRecord{Pending: true, RequestHash: requestHash}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get idempotency key: %w", err)
	}
	var record repository.IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &record, false, nil
}

// Complete sobrescribe la reserva con la respuesta final.
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key string, record repository.IdempotencyRecord) error {
	record.Pending = false
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := s.store.Set(ctx, s.Key(scope, key), string(payload), s.ttl).Err(); err != nil {
		return fmt.Errorf("persist idempotency record: %w", err)
	}
	return nil
}

// Release borra la reserva.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.store.Del(ctx, s.Key(scope, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
