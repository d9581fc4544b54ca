package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefixes.
const (
	sessionKeyPrefix  = "session:"
	attemptsKeyPrefix = "login_attempts:"
)

var (
	_ SessionStore   = (*RedisSessions)(nil)
	_ AttemptCounter = (*RedisAttempts)(nil)
)

// RedisSessions stores sessions as JSON under session:<token> with a TTL.
type RedisSessions struct {
	rdb *redis.Client
}

// NewRedisSessions creates a session store on the given client.
func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

// Put stores the session and lets Redis expire it after ttl.
func (s *RedisSessions) Put(ctx context.Context, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+session.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("storing session in Redis: %w", err)
	}
	return nil
}

// Get returns the session for token, or CodeNoSession if it does not
// exist or has expired.
func (s *RedisSessions) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, newError(CodeNoSession, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from Redis: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	session.Token = token
	return &session, nil
}

// Delete removes the session.
func (s *RedisSessions) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session from Redis: %w", err)
	}
	return nil
}

// RedisAttempts counts failed sign-ins with INCR and a fixed-window EXPIRE
// set on the first failure.
type RedisAttempts struct {
	rdb *redis.Client
}

// NewRedisAttempts creates an attempt counter on the given client.
func NewRedisAttempts(rdb *redis.Client) *RedisAttempts {
	return &RedisAttempts{rdb: rdb}
}

// Failures returns the failure count in the current window.
func (a *RedisAttempts) Failures(ctx context.Context, email string) (int, error) {
	n, err := a.rdb.Get(ctx, attemptsKeyPrefix+email).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading attempts: %w", err)
	}
	return n, nil
}

// RecordFailure increments the counter, starting a window on first use.
func (a *RedisAttempts) RecordFailure(ctx context.Context, email string, window time.Duration) error {
	key := attemptsKeyPrefix + email
	n, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("incrementing attempts: %w", err)
	}
	if n == 1 {
		if err := a.rdb.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("setting attempts expiry: %w", err)
		}
	}
	return nil
}

// Reset clears the counter after a successful sign-in.
func (a *RedisAttempts) Reset(ctx context.Context, email string) error {
	if err := a.rdb.Del(ctx, attemptsKeyPrefix+email).Err(); err != nil {
		return fmt.Errorf("clearing attempts: %w", err)
	}
	return nil
}
