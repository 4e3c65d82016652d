// Package crewgate provides the security and shift-tracking core for event-crew
// marketplace platforms: attempt-window rate limiting with lockout, TOTP-based
// two-factor authentication with single-use backup codes, trusted-device tokens,
// and geofenced shift check-in/check-out with break tracking.
//
// All persistent state lives in Redis, keyed per logical entity (one rate-limit
// action, one user's two-factor record, one user+event shift). Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// crewgate is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (RateLimitStatus, TwoFactorSetup, ShiftStatus, etc.). Store
// encodings and geodesic math live under internal/ and are never exported. The
// remote profile mirror is the one pluggable collaborator, defined in the
// profile subpackage.
//
// # What this package must NOT do
//
//   - Expose Redis clients, key layouts, or record encodings in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Panic across the public boundary: every method returns a value or an
//     error.
//
// # Failure policy
//
// The rate limiter fails open on storage reads (an unreachable backend never
// locks users out of login), while two-factor verification and check-in fail
// closed. Each affected method documents which side of the split it is on.
package crewgate
