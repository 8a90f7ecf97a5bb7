package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix    = "bloodbridge:requestor-session:"
	accessCodeKeyPrefix = "bloodbridge:requestor-code:"
)

// SessionRepository tracks revocable requestor sessions and the one-time codes that open them.
type SessionRepository interface {
	Create(ctx context.Context, sessionID, email string, ttl time.Duration) error
	// Lookup returns the email bound to sessionID, or ok=false when missing or revoked.
	Lookup(ctx context.Context, sessionID string) (email string, ok bool, err error)
	Revoke(ctx context.Context, sessionID string) error
	// SaveAccessCode replaces any pending code for email.
	SaveAccessCode(ctx context.Context, email, code string, ttl time.Duration) error
	// ConsumeAccessCode removes the pending code for email and reports whether it matched.
	// A wrong guess burns the code.
	ConsumeAccessCode(ctx context.Context, email, code string) (bool, error)
}

type redisSessionRepository struct {
	client *redis.Client
}

// NewSessionRepository returns a Redis-backed implementation.
func NewSessionRepository(client *redis.Client) SessionRepository {
	return &redisSessionRepository{client: client}
}

func (r *redisSessionRepository) Create(ctx context.Context, sessionID, email string, ttl time.Duration) error {
	return r.client.Set(ctx, sessionKeyPrefix+sessionID, email, ttl).Err()
}

func (r *redisSessionRepository) Lookup(ctx context.Context, sessionID string) (string, bool, error) {
	email, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}

func (r *redisSessionRepository) Revoke(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

func (r *redisSessionRepository) SaveAccessCode(ctx context.Context, email, code string, ttl time.Duration) error {
	return r.client.Set(ctx, accessCodeKeyPrefix+email, code, ttl).Err()
}

func (r *redisSessionRepository) ConsumeAccessCode(ctx context.Context, email, code string) (bool, error) {
	stored, err := r.client.GetDel(ctx, accessCodeKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == code, nil
}
