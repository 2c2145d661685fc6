// Package presets offers ready-made wirings of the syncraft components
// for the common deployment shapes.
package presets

import (
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/daliboradamec82/syncraft/v1/buffer"
	"github.com/daliboradamec82/syncraft/v1/core"
	"github.com/daliboradamec82/syncraft/v1/lock"
	"github.com/daliboradamec82/syncraft/v1/sink"
	"github.com/daliboradamec82/syncraft/v1/syncbus"
)

// RedisOptions configures the connection to the shared Redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisMongo wires the canonical production shape: Redis buffers the
// increments and holds the flush lock, a MongoDB collection receives
// the bulk $inc batches.
func NewRedisMongo(ropts RedisOptions, coll *mongo.Collection, group string, interval time.Duration, opts ...core.Option) (*core.Counters, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     ropts.Addr,
		Password: ropts.Password,
		DB:       ropts.DB,
	})
	return core.New(sink.NewMongo(coll), client, group, interval, opts...)
}

// NewRedis wires a Redis buffer and lock around any sink.
func NewRedis(ropts RedisOptions, snk sink.Sink, group string, interval time.Duration, opts ...core.Option) (*core.Counters, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     ropts.Addr,
		Password: ropts.Password,
		DB:       ropts.DB,
	})
	return core.New(snk, client, group, interval, opts...)
}

// NewInMemoryStandalone runs entirely in-process with no external
// dependencies. Useful for local development and tests; coordination
// degenerates to the single-instance case.
func NewInMemoryStandalone(snk sink.Sink, group string, interval time.Duration, opts ...core.Option) (*core.Counters, error) {
	bus := syncbus.NewInMemoryBus()
	opts = append([]core.Option{
		core.WithBuffer(buffer.NewInMemory()),
		core.WithLocker(lock.NewInMemory(bus)),
		core.WithBus(bus),
	}, opts...)
	return core.New(snk, nil, group, interval, opts...)
}
