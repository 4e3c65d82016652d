package crewgate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/crewgate/crewgate/internal/geo"
	"github.com/crewgate/crewgate/internal/stores"
)

// GeofenceError rejects a check-in attempted too far from the venue. It
// carries the computed distance for user-facing messages and unwraps to
// [ErrOutsideGeofence] for errors.Is checks.
type GeofenceError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

// Error implements the error interface.
func (e *GeofenceError) Error() string {
	return fmt.Sprintf("check-in location is %.0fm from the venue (allowed %.0fm)", e.DistanceMeters, e.RadiusMeters)
}

// Unwrap supports errors.Is(err, ErrOutsideGeofence).
func (e *GeofenceError) Unwrap() error { return ErrOutsideGeofence }

// CheckIn opens a shift for the user at the event. Unless
// opts.SkipLocationCheck is set, the device position is taken from
// opts.Location or fetched from the configured [LocationProvider], and the
// check-in is rejected with a
// [GeofenceError] when the haversine distance to the venue exceeds the
// configured radius. A user already checked in to the event is rejected with
// [ErrAlreadyCheckedIn].
//
// Like all shift operations this FAILS CLOSED on storage errors.
func (e *Engine) CheckIn(ctx context.Context, userID, eventID string, venue Location, opts CheckInOptions) (*ShiftStatus, error) {
	if e == nil || e.shifts == nil {
		return nil, ErrEngineNotReady
	}

	existing, ok, err := e.shifts.Get(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}
	if ok && existing.CheckedIn {
		e.metricInc(MetricCheckInDenied)
		return nil, ErrAlreadyCheckedIn
	}

	var captured *stores.CapturedLocation
	if !opts.SkipLocationCheck {
		var device Location
		switch {
		case opts.Location != nil:
			device = *opts.Location
		case e.location != nil:
			device, err = e.location.CurrentLocation(ctx)
			if err != nil {
				e.metricInc(MetricCheckInDenied)
				e.emitAudit(ctx, auditEventCheckInDenied, false, userID, eventID, ErrLocationUnavailable, nil)
				return nil, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
			}
		default:
			return nil, ErrLocationUnavailable
		}

		radius := e.config.CheckIn.GeofenceRadiusMeters
		within, distance := geo.WithinRadius(
			geo.Point{Lat: venue.Latitude, Lon: venue.Longitude},
			geo.Point{Lat: device.Latitude, Lon: device.Longitude},
			radius,
		)
		if !within {
			gferr := &GeofenceError{DistanceMeters: distance, RadiusMeters: radius}
			e.metricInc(MetricCheckInDenied)
			e.emitAudit(ctx, auditEventCheckInDenied, false, userID, eventID, gferr, map[string]string{
				"distance_m": strconv.FormatFloat(distance, 'f', 0, 64),
			})
			return nil, gferr
		}

		captured = &stores.CapturedLocation{
			Latitude:       device.Latitude,
			Longitude:      device.Longitude,
			AccuracyMeters: device.AccuracyMeters,
		}
	}

	record := stores.ShiftRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		EventID:     eventID,
		CheckedIn:   true,
		CheckInTime: e.clock().UTC(),
		Location:    captured,
	}
	if err := e.shifts.Put(ctx, record, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}

	e.metricInc(MetricCheckInSuccess)
	e.emitAudit(ctx, auditEventCheckIn, true, userID, eventID, nil, nil)
	return shiftStatusFromRecord(record), nil
}

// CheckOut closes the user's open shift at the event and derives the total
// working minutes: elapsed time minus break durations, floored at zero and
// rounded to the nearest minute. A break still open at check-out is ended at
// the check-out instant so it counts fully.
func (e *Engine) CheckOut(ctx context.Context, userID, eventID string) (*ShiftStatus, error) {
	if e == nil || e.shifts == nil {
		return nil, ErrEngineNotReady
	}

	record, ok, err := e.shifts.Get(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}
	if !ok || !record.CheckedIn {
		return nil, ErrNotCheckedIn
	}

	now := e.clock().UTC()
	if n := len(record.Breaks); n > 0 && record.Breaks[n-1].End == nil {
		record.Breaks[n-1].End = &now
	}

	record.CheckedIn = false
	record.CheckOutTime = &now
	record.TotalWorkingMinutes = WorkingMinutes(record.CheckInTime, &now, breaksFromRecord(record.Breaks), now)

	if err := e.shifts.Put(ctx, record, e.config.CheckIn.ShiftRetention); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}

	e.metricInc(MetricCheckOut)
	e.emitAudit(ctx, auditEventCheckOut, true, userID, eventID, nil, map[string]string{
		"working_minutes": strconv.Itoa(record.TotalWorkingMinutes),
	})
	return shiftStatusFromRecord(record), nil
}

// StartBreak opens a break on the user's current shift. At most one break may
// be open at a time.
func (e *Engine) StartBreak(ctx context.Context, userID, eventID string) (*ShiftStatus, error) {
	if e == nil || e.shifts == nil {
		return nil, ErrEngineNotReady
	}

	record, ok, err := e.shifts.Get(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}
	if !ok || !record.CheckedIn {
		return nil, ErrNotCheckedIn
	}
	if n := len(record.Breaks); n > 0 && record.Breaks[n-1].End == nil {
		return nil, ErrBreakAlreadyActive
	}

	record.Breaks = append(record.Breaks, stores.ShiftBreak{Start: e.clock().UTC()})
	if err := e.shifts.Put(ctx, record, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}

	e.metricInc(MetricBreakStarted)
	e.emitAudit(ctx, auditEventBreakStarted, true, userID, eventID, nil, nil)
	return shiftStatusFromRecord(record), nil
}

// EndBreak closes the open break on the user's current shift.
func (e *Engine) EndBreak(ctx context.Context, userID, eventID string) (*ShiftStatus, error) {
	if e == nil || e.shifts == nil {
		return nil, ErrEngineNotReady
	}

	record, ok, err := e.shifts.Get(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}
	if !ok || !record.CheckedIn {
		return nil, ErrNotCheckedIn
	}
	n := len(record.Breaks)
	if n == 0 || record.Breaks[n-1].End != nil {
		return nil, ErrNoActiveBreak
	}

	now := e.clock().UTC()
	record.Breaks[n-1].End = &now
	if err := e.shifts.Put(ctx, record, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}

	e.metricInc(MetricBreakEnded)
	e.emitAudit(ctx, auditEventBreakEnded, true, userID, eventID, nil, nil)
	return shiftStatusFromRecord(record), nil
}

// Shift returns the current shift state, or nil when the user never checked
// in to the event.
func (e *Engine) Shift(ctx context.Context, userID, eventID string) (*ShiftStatus, error) {
	if e == nil || e.shifts == nil {
		return nil, ErrEngineNotReady
	}

	record, ok, err := e.shifts.Get(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}
	if !ok {
		return nil, nil
	}
	return shiftStatusFromRecord(record), nil
}

// ClearShift erases the shift record. Debug/admin path; normal flows never
// delete shifts.
func (e *Engine) ClearShift(ctx context.Context, userID, eventID string) error {
	if e == nil || e.shifts == nil {
		return ErrEngineNotReady
	}
	if err := e.shifts.Delete(ctx, userID, eventID); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckInUnavailable, err)
	}
	return nil
}

// WorkingMinutes derives net working time: check-in to check-out (or now for
// open shifts), minus every closed break, floored at zero and rounded to the
// nearest minute. Open breaks are ignored.
func WorkingMinutes(checkIn time.Time, checkOut *time.Time, breaks []BreakInterval, now time.Time) int {
	end := now
	if checkOut != nil {
		end = *checkOut
	}

	net := end.Sub(checkIn)
	for _, b := range breaks {
		if b.End == nil {
			continue
		}
		net -= b.End.Sub(b.Start)
	}
	if net < 0 {
		return 0
	}
	return int(math.Round(net.Minutes()))
}

func shiftStatusFromRecord(record stores.ShiftRecord) *ShiftStatus {
	status := &ShiftStatus{
		ShiftID:             record.ID,
		UserID:              record.UserID,
		EventID:             record.EventID,
		CheckedIn:           record.CheckedIn,
		CheckInTime:         record.CheckInTime,
		CheckOutTime:        record.CheckOutTime,
		Breaks:              breaksFromRecord(record.Breaks),
		TotalWorkingMinutes: record.TotalWorkingMinutes,
	}
	if record.Location != nil {
		status.Location = &Location{
			Latitude:       record.Location.Latitude,
			Longitude:      record.Location.Longitude,
			AccuracyMeters: record.Location.AccuracyMeters,
		}
	}
	return status
}

func breaksFromRecord(breaks []stores.ShiftBreak) []BreakInterval {
	if len(breaks) == 0 {
		return nil
	}
	out := make([]BreakInterval, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, BreakInterval{Start: b.Start, End: b.End})
	}
	return out
}
