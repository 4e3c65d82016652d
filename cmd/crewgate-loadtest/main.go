// Command crewgate-loadtest drives the rate limiter and shift check-in paths
// against Redis (or embedded miniredis) and reports throughput plus latency
// percentiles. Useful for sizing the backend before a large event weekend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	crewgate "github.com/crewgate/crewgate"
)

func main() {
	var (
		workers     = flag.Int("workers", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (ratelimit + checkin)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		geofenceOff = flag.Bool("skip-geofence", true, "skip the location check during the check-in phase")
	)
	flag.Parse()

	if *workers <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "workers and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := crewgate.New().
		WithRedis(client).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	cfg := crewgate.AuthRateLimit()

	fmt.Printf("phase 1: %d rate-limit ops across %d workers\n", *ops, *workers)
	runPhase(ctx, *workers, *ops, func(ctx context.Context, i int) error {
		id := "user-" + strconv.Itoa(i%1024)
		if _, err := engine.RecordFailedAttempt(ctx, "login", cfg, id); err != nil {
			return err
		}
		engine.IsRateLimited(ctx, "login", cfg, id)
		if i%3 == 0 {
			return engine.ClearRateLimit(ctx, "login", id)
		}
		return nil
	})

	fmt.Printf("phase 2: %d check-in/out cycles across %d workers\n", *ops, *workers)
	venue := crewgate.Location{Latitude: -33.8688, Longitude: 151.2093}
	opts := crewgate.CheckInOptions{SkipLocationCheck: *geofenceOff}
	runPhase(ctx, *workers, *ops, func(ctx context.Context, i int) error {
		user := "crew-" + strconv.Itoa(i%2048)
		event := "evt-" + strconv.Itoa(i)
		if _, err := engine.CheckIn(ctx, user, event, venue, opts); err != nil {
			return err
		}
		_, err := engine.CheckOut(ctx, user, event)
		return err
	})

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("check-ins recorded: %d, lockouts tripped: %d\n",
		snapshot.Counters[crewgate.MetricCheckInSuccess],
		snapshot.Counters[crewgate.MetricRateLimitLocked])
}

func runPhase(ctx context.Context, workers, ops int, op func(context.Context, int) error) {
	var (
		next     atomic.Int64
		failures atomic.Int64
		mu       sync.Mutex
		samples  []time.Duration
		wg       sync.WaitGroup
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]time.Duration, 0, ops/workers+1)
			for {
				i := int(next.Add(1)) - 1
				if i >= ops {
					break
				}
				opStart := time.Now()
				if err := op(ctx, i); err != nil {
					failures.Add(1)
				}
				local = append(local, time.Since(opStart))
			}
			mu.Lock()
			samples = append(samples, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	fmt.Printf("  done in %s (%.0f ops/sec, %d failures)\n",
		elapsed.Round(time.Millisecond),
		float64(ops)/elapsed.Seconds(),
		failures.Load())
	if len(samples) > 0 {
		fmt.Printf("  latency p50=%s p95=%s p99=%s max=%s\n",
			percentile(samples, 0.50), percentile(samples, 0.95),
			percentile(samples, 0.99), samples[len(samples)-1])
	}
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}
