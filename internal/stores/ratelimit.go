package stores

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitState is the stored view of one rate-limit key: the raw attempt
// timestamps plus the lock deadline, if one was tripped. Pruning against the
// window happens in the root package on every read and write.
type RateLimitState struct {
	Attempts    []time.Time `json:"attempts"`
	LockedUntil *time.Time  `json:"locked_until,omitempty"`
}

// RateLimits persists RateLimitState blobs under the rl: namespace.
type RateLimits struct {
	rdb redis.UniversalClient
}

// NewRateLimits creates the store on the given client.
func NewRateLimits(rdb redis.UniversalClient) *RateLimits {
	return &RateLimits{rdb: rdb}
}

func (s *RateLimits) key(id string) string {
	return "rl:" + id
}

// Get loads the state for id. A missing key returns ok=false and no error.
func (s *RateLimits) Get(ctx context.Context, id string) (RateLimitState, bool, error) {
	var state RateLimitState
	ok, err := getJSON(ctx, s.rdb, s.key(id), &state)
	return state, ok, err
}

// Put stores the state with a TTL so abandoned keys self-clean once both the
// window and any lockout have passed.
func (s *RateLimits) Put(ctx context.Context, id string, state RateLimitState, ttl time.Duration) error {
	return putJSON(ctx, s.rdb, s.key(id), state, ttl)
}

// Delete clears the state for id.
func (s *RateLimits) Delete(ctx context.Context, id string) error {
	return deleteKey(ctx, s.rdb, s.key(id))
}
