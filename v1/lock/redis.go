package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/daliboradamec82/syncraft/v1/syncbus"
)

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// Redis implements Locker using a Redis backend.
type Redis struct {
	client *redis.Client
	bus    syncbus.Bus
}

// NewRedis returns a new Redis locker using the provided client. Lock
// and unlock transitions are announced on bus; a nil bus falls back to
// a process-local one.
func NewRedis(client *redis.Client, bus syncbus.Bus) *Redis {
	if bus == nil {
		bus = syncbus.NewInMemoryBus()
	}
	return &Redis{client: client, bus: bus}
}

// TryLock implements Locker.TryLock via SETNX with a fresh token.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	_ = r.bus.Publish(ctx, "lock:"+key)
	return token, nil
}

// Renew implements Locker.Renew with a token-checked PEXPIRE.
func (r *Redis) Renew(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if token == "" {
		return false, nil
	}
	res, err := extendScript.Run(ctx, r.client, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil && err != redis.Nil {
		return false, err
	}
	// res != 1 means the lease expired and the entry is gone or was
	// re-acquired by another holder
	return res == 1, nil
}

// Release implements Locker.Release with a token-checked DEL.
func (r *Redis) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	res, err := delScript.Run(ctx, r.client, []string{key}, token).Result()
	if err == redis.Nil {
		err = nil
	}
	if err != nil {
		return err
	}
	if n, ok := res.(int64); ok && n == 1 {
		_ = r.bus.Publish(ctx, "unlock:"+key)
	}
	return nil
}
