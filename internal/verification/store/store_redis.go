package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"agegate/internal/verification/models"
	"agegate/pkg/domain"
	"agegate/pkg/platform/sentinel"
)

var (
	redisOpDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agegate_verification_store_duration_ms",
		Help:    "Latency of Redis verification store operations in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	}, []string{"op"})
)

const (
	pendingKeyPrefix  = "agegate:pending:"
	verifiedKeyPrefix = "agegate:verified:"
)

// RedisStore shares verification state between instances. Records are whole
// JSON values with a native TTL matching their ExpiresAt.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed store. The client lifecycle is managed
// by the caller.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Init(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Teardown(_ context.Context) error {
	return nil
}

func (s *RedisStore) SavePending(ctx context.Context, p *models.PendingAuthorization) error {
	defer observe("save_pending", time.Now())
	return s.set(ctx, pendingKey(p.CartID), p, time.Until(p.ExpiresAt))
}

func (s *RedisStore) FindPending(ctx context.Context, cartID domain.CartID, now time.Time) (*models.PendingAuthorization, error) {
	defer observe("find_pending", time.Now())
	var p models.PendingAuthorization
	if err := s.get(ctx, s.client, pendingKey(cartID), &p); err != nil {
		return nil, fmt.Errorf("pending authorization: %w", err)
	}
	if p.IsExpired(now) {
		_ = s.client.Del(ctx, pendingKey(cartID)).Err()
		return nil, fmt.Errorf("pending authorization expired: %w", sentinel.ErrExpired)
	}
	return &p, nil
}

// ConsumePending removes and returns the cart's pending authorization if
// validate accepts it. The key is watched between read and delete; if another
// client changes it first the transaction aborts with sentinel.ErrAlreadyUsed.
func (s *RedisStore) ConsumePending(ctx context.Context, cartID domain.CartID, now time.Time, validate func(*models.PendingAuthorization) error) (*models.PendingAuthorization, error) {
	defer observe("consume_pending", time.Now())
	key := pendingKey(cartID)
	var consumed *models.PendingAuthorization

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		var p models.PendingAuthorization
		if err := s.get(ctx, tx, key, &p); err != nil {
			return fmt.Errorf("pending authorization: %w", err)
		}
		if p.IsExpired(now) {
			_ = tx.Del(ctx, key).Err()
			return fmt.Errorf("pending authorization expired: %w", sentinel.ErrExpired)
		}
		if validate != nil {
			if err := validate(&p); err != nil {
				return err
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		consumed = &p
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("pending authorization consumed concurrently: %w", sentinel.ErrAlreadyUsed)
	}
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

func (s *RedisStore) DeletePending(ctx context.Context, cartID domain.CartID) error {
	defer observe("delete_pending", time.Now())
	return s.client.Del(ctx, pendingKey(cartID)).Err()
}

func (s *RedisStore) SaveResult(ctx context.Context, r *models.VerificationResult) error {
	defer observe("save_result", time.Now())
	return s.set(ctx, verifiedKey(r.CartID), r, time.Until(r.ExpiresAt))
}

func (s *RedisStore) FindResult(ctx context.Context, cartID domain.CartID, now time.Time) (*models.VerificationResult, error) {
	defer observe("find_result", time.Now())
	var r models.VerificationResult
	if err := s.get(ctx, s.client, verifiedKey(cartID), &r); err != nil {
		return nil, fmt.Errorf("verification result: %w", err)
	}
	if r.IsExpired(now) {
		_ = s.client.Del(ctx, verifiedKey(cartID)).Err()
		return nil, fmt.Errorf("verification result expired: %w", sentinel.ErrExpired)
	}
	return &r, nil
}

func (s *RedisStore) DeleteResult(ctx context.Context, cartID domain.CartID) error {
	defer observe("delete_result", time.Now())
	return s.client.Del(ctx, verifiedKey(cartID)).Err()
}

func (s *RedisStore) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; storing it would only be read back as absent.
		return s.client.Del(ctx, key).Err()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}

func (s *RedisStore) get(ctx context.Context, c redis.Cmdable, key string, v any) error {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, sentinel.ErrBadData)
	}
	return nil
}

func pendingKey(cartID domain.CartID) string  { return pendingKeyPrefix + string(cartID) }
func verifiedKey(cartID domain.CartID) string { return verifiedKeyPrefix + string(cartID) }

func observe(op string, start time.Time) {
	redisOpDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
