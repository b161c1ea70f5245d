package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	guardKeyPrefix = "todo-reminder:run:"
	guardTTL       = 25 * time.Hour
)

// RedisGuard claims a day with SET NX. The key outlives the day by an hour
// so a late tick on the same date still sees the claim.
type RedisGuard struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

var _ Guard = (*RedisGuard)(nil)

func NewRedisGuard(client *redis.Client) *RedisGuard {
	host, _ := os.Hostname()
	return &RedisGuard{
		client: client,
		owner:  fmt.Sprintf("%s/%s", host, uuid.NewString()),
		ttl:    guardTTL,
	}
}

// GuardKey is the Redis key for the calendar day of day.
func GuardKey(day time.Time) string {
	return guardKeyPrefix + day.Format("2006-01-02")
}

func (g *RedisGuard) Acquire(ctx context.Context, day time.Time) (bool, error) {
	ok, err := g.client.SetNX(ctx, GuardKey(day), g.owner, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim reminder day: %w", err)
	}
	return ok, nil
}
