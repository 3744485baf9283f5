package redisdoc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/fitness-onboarding/internal/application"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Guard is a SavingGuard shared by every server instance. The TTL bounds how
// long a crashed request can hold a step.
type Guard struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewGuard(rdb redis.UniversalClient, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Guard{rdb: rdb, ttl: ttl}
}

func guardKey(id application.Identity, step string) string {
	return "profile:saving:" + id.String() + ":" + step
}

func (g *Guard) Acquire(ctx context.Context, id application.Identity, step string) (func(), bool, error) {
	key := guardKey(id, step)
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		// the caller's ctx may already be done
		_ = releaseScript.Run(context.Background(), g.rdb, []string{key}, token).Err()
	}, true, nil
}
