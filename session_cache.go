package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// RedisSessionCache keeps one JSON session snapshot per user id. A record
// in redis is what "logged in" means: logout deletes the key, refresh and
// profile updates overwrite it.
type RedisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger Logger
}

// NewRedisSessionCache creates a session cache on the given redis client.
// A zero ttl keeps sessions until logout deletes them.
func NewRedisSessionCache(client *redis.Client, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{
		client: client,
		ttl:    ttl,
		prefix: "session:",
		logger: defLogger{},
	}
}

// WithPrefix overrides the key prefix
func (s *RedisSessionCache) WithPrefix(prefix string) *RedisSessionCache {
	s.prefix = prefix
	return s
}

// WithLogger overrides the default logger
func (s *RedisSessionCache) WithLogger(logger Logger) *RedisSessionCache {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *RedisSessionCache) key(userID string) string {
	return s.prefix + userID
}

// Put serializes the snapshot and overwrites whatever session the user had.
func (s *RedisSessionCache) Put(ctx context.Context, userID string, snapshot *SessionSnapshot) error {
	if userID == "" {
		return errors.New("session cache requires a user id", errors.CategoryBadInput)
	}
	if snapshot == nil {
		return errors.New("session cache requires a snapshot", errors.CategoryBadInput)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to serialize session snapshot")
	}

	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to store session")
	}

	return nil
}

// Get returns the stored snapshot or nil when no session exists. Absence is
// not an error here, callers decide whether a missing session is fatal.
func (s *RedisSessionCache) Get(ctx context.Context, userID string) (*SessionSnapshot, error) {
	if userID == "" {
		return nil, errors.New("session cache requires a user id", errors.CategoryBadInput)
	}

	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read session")
	}

	snapshot := &SessionSnapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		// a corrupt record is as good as no session
		s.logger.Error("session cache found unreadable snapshot, dropping it: %v", err)
		if delErr := s.client.Del(ctx, s.key(userID)).Err(); delErr != nil {
			s.logger.Error("session cache failed to drop unreadable snapshot: %v", delErr)
		}
		return nil, nil
	}

	return snapshot, nil
}

// Delete removes the user's session. Deleting a missing session succeeds.
func (s *RedisSessionCache) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("session cache requires a user id", errors.CategoryBadInput)
	}

	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete session")
	}

	return nil
}

var _ SessionCache = (*RedisSessionCache)(nil)
