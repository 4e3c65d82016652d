package crewgate

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
)

// backupCodeAlphabet drops 0/O/1/I to avoid transcription mistakes when users
// read codes off paper.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newBackupCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// formatBackupCode splits the raw code in half with a dash: ABCD2345 renders
// as ABCD-2345.
func formatBackupCode(code string) string {
	n := len(code)
	if n < 8 {
		return code
	}
	mid := n / 2
	return code[:mid] + "-" + code[mid:]
}

// canonicalizeBackupCode undoes user formatting before hashing: uppercase, no
// dashes, no spaces.
func canonicalizeBackupCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// backupCodeHash binds the digest to the user so identical codes issued to
// different users never collide in storage.
func backupCodeHash(userID, canonicalCode string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + canonicalCode))
	return hex.EncodeToString(sum[:])
}
