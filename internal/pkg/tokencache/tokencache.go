package tokencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lostmahbles/listial-api/internal/model"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "listial:tokencache:"

// cachedUser is the subset of the user record the authorization gate needs.
type cachedUser struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// TokenResolver resolves an access token to its user, typically backed by the
// credential store.
type TokenResolver interface {
	ResolveByToken(ctx context.Context, token string) (*model.User, error)
}

// Resolver is a cache-aside decorator around a TokenResolver. Tokens are
// hashed with SHA-256 before being used as Redis keys so raw bearer
// credentials never land in the cache. Redis failures fall through to the
// inner resolver.
type Resolver struct {
	rdb    *redis.Client
	inner  TokenResolver
	ttl    time.Duration
	logger *slog.Logger
}

// NewResolver wraps inner with a Redis cache. A nil client disables caching.
func NewResolver(rdb *redis.Client, inner TokenResolver, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Resolver{rdb: rdb, inner: inner, ttl: ttl, logger: logger}
}

// ResolveByToken returns the cached user when present, otherwise asks the
// inner resolver and caches the positive answer. Failed lookups are never
// cached.
func (r *Resolver) ResolveByToken(ctx context.Context, token string) (*model.User, error) {
	if r.rdb == nil || token == "" {
		return r.inner.ResolveByToken(ctx, token)
	}

	key := keyPrefix + hashToken(token)
	raw, err := r.rdb.Get(ctx, key).Result()
	if err == nil && raw != "" {
		var cached cachedUser
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return &model.User{ID: cached.ID, Email: cached.Email, AccessToken: token}, nil
		}
	}

	user, err := r.inner.ResolveByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	payload, jsonErr := json.Marshal(cachedUser{ID: user.ID, Email: user.Email})
	if jsonErr == nil {
		if setErr := r.rdb.Set(ctx, key, payload, r.ttl).Err(); setErr != nil && r.logger != nil {
			r.logger.Warn("token cache set failed", slog.String("error", setErr.Error()))
		}
	}
	return user, nil
}

// Invalidate drops a token from the cache. Called when a profile update
// rotates the access token.
func (r *Resolver) Invalidate(ctx context.Context, token string) {
	if r.rdb == nil || token == "" {
		return
	}
	key := keyPrefix + hashToken(token)
	if err := r.rdb.Del(ctx, key).Err(); err != nil && r.logger != nil {
		r.logger.Warn("token cache invalidate failed", slog.String("error", err.Error()))
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
