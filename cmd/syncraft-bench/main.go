// Command syncraft-bench measures buffered increment throughput against
// a real Redis and reports how the periodic flush consolidates the
// writes. The sink is in-memory so the numbers isolate the buffering
// path.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/daliboradamec82/syncraft/v1/config"
	"github.com/daliboradamec82/syncraft/v1/core"
	"github.com/daliboradamec82/syncraft/v1/presets"
	"github.com/daliboradamec82/syncraft/v1/sink"
)

var (
	redisAddr   = flag.String("redis-addr", "localhost:6379", "Redis address")
	configPath  = flag.String("config", "", "Optional YAML config file (overrides other flags)")
	concurrency = flag.Int("c", 50, "Concurrent writers")
	increments  = flag.Int("n", 100000, "Total increments")
	entities    = flag.Int("e", 100, "Distinct entities")
	group       = flag.String("group", "bench", "Instance group")
	interval    = flag.Duration("interval", time.Second, "Flush interval")
)

func main() {
	flag.Parse()

	ropts := presets.RedisOptions{Addr: *redisAddr}
	benchGroup, benchInterval := *group, *interval
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		ropts = presets.RedisOptions{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		benchGroup = cfg.Group
		benchInterval = cfg.FlushInterval.Std()
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	snk := sink.NewInMemory()
	for i := 0; i < *entities; i++ {
		snk.Seed(fmt.Sprintf("user-%d", i))
	}

	c, err := presets.NewRedis(ropts, snk, benchGroup, benchInterval, core.WithLogger(logger))
	if err != nil {
		log.Fatalf("wire counters: %v", err)
	}
	defer c.Destroy()

	ctx := context.Background()
	var done, failed atomic.Int64
	start := time.Now()

	var wg sync.WaitGroup
	per := *increments / *concurrency
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				entity := fmt.Sprintf("user-%d", (w*per+i)%*entities)
				if err := c.Increment(ctx, entity, "stats.totalCU", 1); err != nil {
					failed.Add(1)
					continue
				}
				done.Add(1)
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if err := c.Flush(ctx); err != nil {
		logger.Warn("final flush failed", zap.Error(err))
	}

	var persisted int64
	for i := 0; i < *entities; i++ {
		v, _ := snk.Value(fmt.Sprintf("user-%d", i), "stats.totalCU")
		persisted += v
	}

	fmt.Printf("| %-12s | %-12s | %-10s | %-10s | %-10s |\n",
		"Increments", "Ops/sec", "Failed", "Flushes", "Persisted")
	fmt.Println("|:---|:---|:---|:---|:---|")
	fmt.Printf("| %-12d | %-12.0f | %-10d | %-10d | %-10d |\n",
		done.Load(),
		float64(done.Load())/elapsed.Seconds(),
		failed.Load(),
		snk.Applies(),
		persisted)
}
