package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRateLimitStateRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRateLimits(rdb)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "login:alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("missing key reported present")
	}

	until := time.Date(2026, 3, 14, 9, 15, 0, 0, time.UTC)
	state := RateLimitState{
		Attempts:    []time.Time{until.Add(-10 * time.Minute), until.Add(-5 * time.Minute)},
		LockedUntil: &until,
	}
	if err := store.Put(ctx, "login:alice", state, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Get(ctx, "login:alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("stored key reported missing")
	}
	if len(got.Attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(got.Attempts))
	}
	if got.LockedUntil == nil || !got.LockedUntil.Equal(until) {
		t.Fatalf("LockedUntil = %v, want %v", got.LockedUntil, until)
	}

	if ttl := mr.TTL("rl:login:alice"); ttl != time.Hour {
		t.Fatalf("key TTL = %v, want 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, _ := store.Get(ctx, "login:alice"); ok {
		t.Fatal("key survived its TTL")
	}

	if err := store.Delete(ctx, "login:alice"); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
}

func TestTwoFactorRecordRoundTrip(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewTwoFactor(rdb)
	ctx := context.Background()

	record := TwoFactorRecord{
		Secret:           []byte{0x01, 0x02, 0x03},
		Enabled:          true,
		BackupCodeHashes: []string{"aa", "bb"},
		CreatedAt:        time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	if err := store.Put(ctx, "user-1", record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("stored record reported missing")
	}
	if !got.Enabled || len(got.Secret) != 3 || len(got.BackupCodeHashes) != 2 {
		t.Fatalf("round trip mangled record: %+v", got)
	}

	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "user-1"); ok {
		t.Fatal("record survived Delete")
	}
}

func TestShiftRecordKeying(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewShifts(rdb)
	ctx := context.Background()

	record := ShiftRecord{
		ID:          "shift-1",
		UserID:      "crew-1",
		EventID:     "evt-1",
		CheckedIn:   true,
		CheckInTime: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	if err := store.Put(ctx, record, 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Same user, different event: separate key.
	if _, ok, _ := store.Get(ctx, "crew-1", "evt-2"); ok {
		t.Fatal("record leaked across events")
	}
	if _, ok, _ := store.Get(ctx, "crew-2", "evt-1"); ok {
		t.Fatal("record leaked across users")
	}

	got, ok, err := store.Get(ctx, "crew-1", "evt-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || got.ID != "shift-1" {
		t.Fatalf("got %+v, want shift-1", got)
	}
}

func TestCorruptRecordSurfacesError(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRateLimits(rdb)

	if err := mr.Set("rl:bad", "{not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, _, err := store.Get(context.Background(), "bad")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
