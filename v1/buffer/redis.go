package buffer

import (
	"context"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix prefixes the Redis hash holding a group's counters.
const DefaultKeyPrefix = "syncraft:acc:"

// drainScript reads the whole accumulator hash and deletes it in one
// atomic step, so increments arriving mid-drain land in the next
// period's hash instead of being silently dropped.
var drainScript = redis.NewScript(`
local entries = redis.call("HGETALL", KEYS[1])
redis.call("DEL", KEYS[1])
return entries
`)

// Redis implements Buffer on a single Redis hash per group.
type Redis struct {
	client *redis.Client
	key    string
}

// RedisOption configures a Redis buffer.
type RedisOption func(*redisOptions)

type redisOptions struct {
	keyPrefix string
}

// WithKeyPrefix overrides the accumulator key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) { o.keyPrefix = prefix }
}

// NewRedis returns a Redis buffer for the given instance group. All
// instances sharing the same group and Redis accumulate into the same
// hash.
func NewRedis(client *redis.Client, group string, opts ...RedisOption) *Redis {
	o := redisOptions{keyPrefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return &Redis{client: client, key: o.keyPrefix + group}
}

// Incr implements Buffer.Incr via HINCRBY.
func (r *Redis) Incr(ctx context.Context, key Key, delta int64) error {
	return r.client.HIncrBy(ctx, r.key, key.encode(), delta).Err()
}

// Drain implements Buffer.Drain.
func (r *Redis) Drain(ctx context.Context) (map[Key]int64, error) {
	reply, err := drainScript.Run(ctx, r.client, []string{r.key}).Slice()
	if err != nil {
		return nil, err
	}
	if len(reply)%2 != 0 {
		return nil, fmt.Errorf("odd HGETALL reply length %d", len(reply))
	}
	out := make(map[Key]int64, len(reply)/2)
	for i := 0; i < len(reply); i += 2 {
		field, ok := reply[i].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected field type %T", reply[i])
		}
		raw, ok := reply[i+1].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type %T", reply[i+1])
		}
		k, err := decodeKey(field)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse counter %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Len implements Buffer.Len.
func (r *Redis) Len(ctx context.Context) (int64, error) {
	return r.client.HLen(ctx, r.key).Result()
}
