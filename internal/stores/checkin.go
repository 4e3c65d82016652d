package stores

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CapturedLocation is the coordinate pair recorded at check-in when the
// geofence check ran.
type CapturedLocation struct {
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	AccuracyMeters float64 `json:"accuracy_m,omitempty"`
}

// ShiftBreak is one break interval. End is nil while the break is open.
type ShiftBreak struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// ShiftRecord is the full state of one user's shift at one event.
type ShiftRecord struct {
	ID                  string            `json:"id"`
	UserID              string            `json:"user_id"`
	EventID             string            `json:"event_id"`
	CheckedIn           bool              `json:"checked_in"`
	CheckInTime         time.Time         `json:"check_in_time"`
	CheckOutTime        *time.Time        `json:"check_out_time,omitempty"`
	Location            *CapturedLocation `json:"location,omitempty"`
	Breaks              []ShiftBreak      `json:"breaks,omitempty"`
	TotalWorkingMinutes int               `json:"total_working_minutes"`
}

// Shifts persists ShiftRecord blobs under the ci: namespace, one per
// user:event pair.
type Shifts struct {
	rdb redis.UniversalClient
}

// NewShifts creates the store on the given client.
func NewShifts(rdb redis.UniversalClient) *Shifts {
	return &Shifts{rdb: rdb}
}

func (s *Shifts) key(userID, eventID string) string {
	return "ci:" + userID + ":" + eventID
}

// Get loads the shift for the user:event pair. A missing record returns
// ok=false and no error.
func (s *Shifts) Get(ctx context.Context, userID, eventID string) (ShiftRecord, bool, error) {
	var rec ShiftRecord
	ok, err := getJSON(ctx, s.rdb, s.key(userID, eventID), &rec)
	return rec, ok, err
}

// Put stores the shift. Open shifts persist without expiry; callers pass a
// retention TTL when closing a shift so finished records self-clean.
func (s *Shifts) Put(ctx context.Context, rec ShiftRecord, ttl time.Duration) error {
	return putJSON(ctx, s.rdb, s.key(rec.UserID, rec.EventID), rec, ttl)
}

// Delete clears the shift record (debug/admin path).
func (s *Shifts) Delete(ctx context.Context, userID, eventID string) error {
	return deleteKey(ctx, s.rdb, s.key(userID, eventID))
}
