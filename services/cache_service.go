package services

import (
	"context"
	"encoding/json"
	"fmt"
	"proposal_server/config"
	"proposal_server/structs"
	"proposal_server/structs/tables"
	"strings"
	"sync"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// CacheService provides Redis caching with connection pooling and retry
// logic. The proposal flow uses it to memoize recipient lookups so that
// repeated action resolution for the same email stays cheap.
type CacheService struct {
	logger *gecho.Logger
	config *structs.Config
	client *redis.Client
}

func NewCacheService(logger *gecho.Logger, cfg *structs.Config) *CacheService {
	return &CacheService{
		logger: logger,
		config: cfg,
		client: getRedisClient(),
	}
}

// getRedisClient returns a singleton Redis client with proper connection pooling
func getRedisClient() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.GetConfig()
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Address,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,

			// Connection pool settings
			PoolSize:        cfg.Cache.PoolSize,
			MinIdleConns:    cfg.Cache.MinIdleConns,
			MaxIdleConns:    cfg.Cache.MaxIdleConns,
			PoolTimeout:     cfg.Cache.PoolTimeout,
			ConnMaxIdleTime: cfg.Cache.IdleTimeout,

			// Timeouts
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,

			// Retry settings
			MaxRetries:      cfg.Cache.MaxRetries,
			MinRetryBackoff: cfg.Cache.MinRetryBackoff,
			MaxRetryBackoff: cfg.Cache.MaxRetryBackoff,
		})
	})
	return redisClient
}

// Close closes the Redis connection pool
func (cs *CacheService) Close() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}

// Ping checks Redis connectivity for health reporting
func (cs *CacheService) Ping(ctx context.Context) error {
	return cs.client.Ping(ctx).Err()
}

// withRetry executes a Redis operation with bounded retries on transient errors
func (cs *CacheService) withRetry(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == maxRetries || !isTransientRedisError(err) {
			break
		}
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}

	return lastErr
}

// isTransientRedisError filters out logical errors like key-not-found
func isTransientRedisError(err error) bool {
	if err == nil || err == redis.Nil {
		return false
	}
	errStr := err.Error()
	for _, transient := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"broken pipe",
		"no such host",
		"network is unreachable",
	} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}

func recipientKey(email string) string {
	return fmt.Sprintf("recipient:user:%s", strings.ToLower(email))
}

// GetRecipient returns the cached user for an email. The second result
// distinguishes a cache miss from a cached negative ("no such user").
func (cs *CacheService) GetRecipient(ctx context.Context, email string) (*tables.User, bool, error) {
	var raw string
	err := cs.withRetry(func() error {
		val, err := cs.client.Get(ctx, recipientKey(email)).Result()
		if err != nil {
			return err
		}
		raw = val
		return nil
	}, cs.config.Cache.MaxRetries)

	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if raw == "" {
		// Cached negative lookup
		return nil, true, nil
	}

	var user tables.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		cs.logger.Warn("Discarding corrupt recipient cache entry", gecho.Field("email", email), gecho.Field("error", err))
		_ = cs.InvalidateRecipient(ctx, email)
		return nil, false, nil
	}
	return &user, true, nil
}

// SetRecipient caches the lookup result for an email; a nil user caches
// the negative so absent recipients do not hammer the database.
func (cs *CacheService) SetRecipient(ctx context.Context, email string, user *tables.User) error {
	payload := ""
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return err
		}
		payload = string(raw)
	}
	return cs.withRetry(func() error {
		return cs.client.Set(ctx, recipientKey(email), payload, cs.config.Cache.RecipientTTL).Err()
	}, cs.config.Cache.MaxRetries)
}

// InvalidateRecipient drops the cached lookup, typically after a user row
// for that email is created or removed.
func (cs *CacheService) InvalidateRecipient(ctx context.Context, email string) error {
	return cs.withRetry(func() error {
		return cs.client.Del(ctx, recipientKey(email)).Err()
	}, cs.config.Cache.MaxRetries)
}
