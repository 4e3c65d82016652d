package stores

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TwoFactorRecord is a user's two-factor material. A record with Enabled
// false is setup-pending: the secret and codes exist but the user has not yet
// confirmed a code. Backup codes are stored as hex SHA-256 digests only.
type TwoFactorRecord struct {
	Secret           []byte     `json:"secret"`
	Enabled          bool       `json:"enabled"`
	BackupCodeHashes []string   `json:"backup_code_hashes"`
	CreatedAt        time.Time  `json:"created_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
}

// TwoFactor persists TwoFactorRecord blobs under the tfa: namespace, one per
// user, with no expiry: the secret outlives sessions until explicit disable.
type TwoFactor struct {
	rdb redis.UniversalClient
}

// NewTwoFactor creates the store on the given client.
func NewTwoFactor(rdb redis.UniversalClient) *TwoFactor {
	return &TwoFactor{rdb: rdb}
}

func (s *TwoFactor) key(userID string) string {
	return "tfa:" + userID
}

// Get loads the record for userID. A missing record returns ok=false and no
// error.
func (s *TwoFactor) Get(ctx context.Context, userID string) (TwoFactorRecord, bool, error) {
	var rec TwoFactorRecord
	ok, err := getJSON(ctx, s.rdb, s.key(userID), &rec)
	return rec, ok, err
}

// Put stores the record for userID.
func (s *TwoFactor) Put(ctx context.Context, userID string, rec TwoFactorRecord) error {
	return putJSON(ctx, s.rdb, s.key(userID), rec, 0)
}

// Delete erases the user's two-factor material.
func (s *TwoFactor) Delete(ctx context.Context, userID string) error {
	return deleteKey(ctx, s.rdb, s.key(userID))
}
