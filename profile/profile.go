// Package profile defines the remote user-profile mirror: the document store
// where two-factor display state (enabled flag, remaining backup-code count)
// is reflected so other surfaces can render it without touching secure
// storage. The engine treats the mirror as best-effort metadata — secrets and
// code hashes never leave Redis.
package profile

import "context"

// Store mirrors two-factor display fields into the user's remote profile
// document. Implementations must support partial updates: only the named
// field and an updated-at timestamp may change.
type Store interface {
	// SetTwoFactorEnabled flips the profile's twoFactorEnabled flag.
	SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error
	// SetBackupCodeCount updates the profile's twoFactorBackupCodesCount.
	SetBackupCodeCount(ctx context.Context, userID string, count int) error
}

// NoOp discards all mirror updates. Useful for tests and deployments without
// a profile surface.
type NoOp struct{}

// SetTwoFactorEnabled implements [Store].
func (NoOp) SetTwoFactorEnabled(context.Context, string, bool) error { return nil }

// SetBackupCodeCount implements [Store].
func (NoOp) SetBackupCodeCount(context.Context, string, int) error { return nil }
