// Package stores holds the Redis-backed state stores for the engine: rate
// limit state, two-factor records, and shift records. Each store owns one key
// namespace and one JSON record encoding.
//
// # Key namespaces
//
//   - rl:  — rate limit state, one blob per action[:identifier]
//   - tfa: — two-factor record, one blob per user
//   - ci:  — shift record, one blob per user:event
//
// # What this package must NOT do
//
//   - Implement policy (windows, geofences, code matching); that lives in the
//     root package.
//   - Be imported outside the crewgate module.
package stores
