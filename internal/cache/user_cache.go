package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contactsbook/contacts-api/internal/domain"
)

// DefaultUserTTL is how long a cached user projection lives.
const DefaultUserTTL = time.Hour

// CachedUser is the reduced user projection stored in Redis. It carries
// only the fields that are cheap to serve stale for up to the TTL; role
// and refresh token are deliberately excluded so they are always read
// from the store.
type CachedUser struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	IsActive   bool    `json:"is_active"`
	IsVerified bool    `json:"is_verified"`
	AvatarURL  *string `json:"avatar_url"`
}

// NewCachedUser derives the cache projection from a full user record.
func NewCachedUser(u *domain.User) *CachedUser {
	return &CachedUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		AvatarURL:  u.AvatarURL,
	}
}

// DecodeCachedUser parses a cached payload. The second return value is
// false when the payload is corrupted or does not match the projection
// shape; callers branch on it instead of inspecting an error.
func DecodeCachedUser(data []byte) (*CachedUser, bool) {
	var cu CachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		return nil, false
	}
	if cu.ID == 0 || cu.Email == "" {
		return nil, false
	}
	return &cu, true
}

// UserKey returns the Redis key for a user id.
func UserKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// RedisClient is the minimal command surface the user cache needs.
// Satisfied by *redis.Client.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// UserCache is a read-through cache of user projections in front of the
// user store. It is advisory only: resolution always re-validates
// against the store before trusting an entry.
type UserCache struct {
	rdb RedisClient
	ttl time.Duration
}

// NewUserCache creates a UserCache with the given TTL. A zero ttl uses
// DefaultUserTTL.
func NewUserCache(rdb RedisClient, ttl time.Duration) *UserCache {
	if ttl == 0 {
		ttl = DefaultUserTTL
	}
	return &UserCache{rdb: rdb, ttl: ttl}
}

// Get returns the raw cached payload for a user id, or nil on a miss.
func (c *UserCache) Get(ctx context.Context, userID int64) ([]byte, error) {
	data, err := c.rdb.Get(ctx, UserKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set stores the projection under its own id with the configured TTL.
func (c *UserCache) Set(ctx context.Context, user *CachedUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, UserKey(user.ID), data, c.ttl).Err()
}

// Delete evicts the entry for a user id. Deleting an absent key is a
// no-op.
func (c *UserCache) Delete(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, UserKey(userID)).Err()
}
