package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/memoapp/planner-backend/internal/logger"
)

// UserLocker serializes schedule generation, activation, and adaptation per
// user with a SET NX lock. The token guards release so an expired lock cannot be freed by
// a later holder.
type UserLocker struct {
	client *goredis.Client
	log    *logger.Logger
	ttl    time.Duration
}

func NewUserLocker(client *goredis.Client, baseLog *logger.Logger, ttl time.Duration) *UserLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &UserLocker{
		client: client,
		log:    baseLog.With("component", "UserLocker"),
		ttl:    ttl,
	}
}

var ErrLockHeld = fmt.Errorf("another planner operation for this user is in progress")

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// userLockKey is shared by every planner operation for a user so that
// generation, activation, and adaptation mutually exclude each other.
func userLockKey(userID uuid.UUID) string {
	return fmt.Sprintf("planner:lock:user:%s", userID)
}

// Acquire takes the per-user lock or returns ErrLockHeld. The scope only
// labels the holder for logging; it does not partition the lock. The
// returned release func is safe to call once, including after expiry.
func (l *UserLocker) Acquire(ctx context.Context, userID uuid.UUID, scope string) (func(), error) {
	key := userLockKey(userID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil && err != goredis.Nil {
			l.log.Warn("Failed to release lock", "key", key, "scope", scope, "error", err)
		}
	}
	return release, nil
}
