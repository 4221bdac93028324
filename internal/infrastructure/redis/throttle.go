package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const resendKeyPrefix = "otp:res:"

// Throttle allows one code per e-mail address per window.
type Throttle struct {
	client *goredis.Client
	window time.Duration
}

func NewThrottle(client *goredis.Client, window time.Duration) *Throttle {
	return &Throttle{client: client, window: window}
}

// Acquire claims the window for email. When the window is already held it
// returns false and the time left.
func (t *Throttle) Acquire(ctx context.Context, email string) (bool, time.Duration, error) {
	key := resendKeyPrefix + email
	ok, err := t.client.SetNX(ctx, key, 1, t.window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("acquire resend window: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	ttl, err := t.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("check resend window: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return false, ttl, nil
}

// Release drops the window, used when the code could not be delivered.
func (t *Throttle) Release(ctx context.Context, email string) error {
	return t.client.Del(ctx, resendKeyPrefix+email).Err()
}
