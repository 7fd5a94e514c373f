package display

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is what the Redis display publishes.
type Snapshot struct {
	Total   uint64
	Rate    uint64
	BitRate uint64
	Status  string
	Updated time.Time
}

// Redis publishes the latest counts to a Redis hash so a remote panel can
// show them. ShowCounts and ShowStatus only record the values; Run does
// the network I/O on its own goroutine.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	latest  Snapshot
	changed chan struct{}
}

func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{
		client:  client,
		key:     key,
		ttl:     ttl,
		now:     time.Now,
		changed: make(chan struct{}, 1),
	}
}

// Ping checks the connection once at startup.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *Redis) ShowCounts(total, rate, bitRate uint64) {
	r.mu.Lock()
	r.latest.Total = total
	r.latest.Rate = rate
	r.latest.BitRate = bitRate
	r.latest.Updated = r.now()
	r.mu.Unlock()
	r.notify()
}

func (r *Redis) ShowStatus(line string) {
	r.mu.Lock()
	if r.latest.Status == line {
		r.mu.Unlock()
		return
	}
	r.latest.Status = line
	r.latest.Updated = r.now()
	r.mu.Unlock()
	r.notify()
}

func (r *Redis) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Latest returns the values that the next publish will send.
func (r *Redis) Latest() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// Publish writes s to the hash and refreshes its TTL in one transaction.
func (r *Redis) Publish(ctx context.Context, s Snapshot) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key,
		"total", strconv.FormatUint(s.Total, 10),
		"rate", strconv.FormatUint(s.Rate, 10),
		"kbps", strconv.FormatUint(Kbps(s.BitRate), 10),
		"status", s.Status,
		"updated", s.Updated.UTC().Format(time.RFC3339),
	)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.key, err)
	}
	return nil
}

// Run publishes every change until ctx is done. Publish errors are logged
// and the next change is tried again.
func (r *Redis) Run(ctx context.Context) error {
	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.changed:
		}
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := r.Publish(pctx, r.Latest())
		cancel()
		if err != nil {
			if err.Error() != lastErr {
				log.Printf("display redis error: %v", err)
			}
			lastErr = err.Error()
			continue
		}
		lastErr = ""
	}
}
