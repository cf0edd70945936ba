package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

var (
	// ErrSessionNotFound is returned when no live session matches a token
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned for a session past its expiry
	ErrSessionExpired = errors.New("session expired")
)

const (
	sessionKeyPrefix = "token:session:"
	statsKeyPrefix   = "hostel:stats:"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "6379"
	}
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logrus.Infof("Connected to Redis at %s", addr)
	return client, nil
}

// RedisSnapshotCache stores hostel stats snapshots as JSON
type RedisSnapshotCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisSnapshotCache creates a cache whose entries expire after ttl
func NewRedisSnapshotCache(client redis.Cmdable, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func statsKey(hostelID string) string {
	return statsKeyPrefix + hostelID
}

// GetSnapshot returns the cached snapshot, or nil on a miss
func (c *RedisSnapshotCache) GetSnapshot(ctx context.Context, hostelID string) (*models.HostelStats, error) {
	data, err := c.client.Get(ctx, statsKey(hostelID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats snapshot from Redis: %w", err)
	}

	var stats models.HostelStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats snapshot: %w", err)
	}
	return &stats, nil
}

// SetSnapshot stores a snapshot
func (c *RedisSnapshotCache) SetSnapshot(ctx context.Context, hostelID string, stats models.HostelStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats snapshot: %w", err)
	}
	return c.client.Set(ctx, statsKey(hostelID), data, c.ttl).Err()
}

// Invalidate drops a hostel's cached snapshot
func (c *RedisSnapshotCache) Invalidate(ctx context.Context, hostelID string) error {
	return c.client.Del(ctx, statsKey(hostelID)).Err()
}

// generateTokenHash creates a SHA256 hash of the access token for use as Redis key
func generateTokenHash(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func sessionKey(accessToken string) string {
	return sessionKeyPrefix + generateTokenHash(accessToken)
}

// RedisSessionStore keeps token sessions in Redis. The key is a hash of
// the access token; the token itself is never stored.
type RedisSessionStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisSessionStore creates a session store on client
func NewRedisSessionStore(client redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

// Create stores a new session for identity that lives for ttl
func (s *RedisSessionStore) Create(ctx context.Context, accessToken string, identity models.Identity, ttl time.Duration) (*models.TokenSession, error) {
	now := s.now().UTC()
	session := &models.TokenSession{
		Identity:   identity,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(ttl),
		SessionID:  uuid.New().String(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(accessToken), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return session, nil
}

// Get returns the live session for accessToken
func (s *RedisSessionStore) Get(ctx context.Context, accessToken string) (*models.TokenSession, error) {
	key := sessionKey(accessToken)
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session models.TokenSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.IsExpired(s.now()) {
		// Clean up expired session
		s.client.Del(ctx, key)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Revoke removes the session for accessToken
func (s *RedisSessionStore) Revoke(ctx context.Context, accessToken string) error {
	if err := s.client.Del(ctx, sessionKey(accessToken)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
