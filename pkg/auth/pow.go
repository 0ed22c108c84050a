// Package auth implements the lightweight trust layer: proof-of-work Sybil
// resistance, HMAC message authentication and the simulated validator
// committee.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// DefaultDifficulty is the number of leading hex zeros a PoW digest needs.
const DefaultDifficulty = 4

const ctxCheckInterval = 1 << 12

// PoWDigest returns hex(sha256("<nonce>||<identity>")).
func PoWDigest(identity string, nonce uint64) string {
	buf := strconv.AppendUint(make([]byte, 0, 20+2+len(identity)), nonce, 10)
	buf = append(buf, "||"...)
	buf = append(buf, identity...)
	sum := sha256.Sum256(buf)

	return hex.EncodeToString(sum[:])
}

// ComputePoW searches nonces from zero upwards until the digest has difficulty
// leading '0' characters. The search has no upper bound and only stops when
// ctx is done.
func ComputePoW(ctx context.Context, identity string, difficulty int) (uint64, error) {
	prefix := strings.Repeat("0", max(difficulty, 0))
	for nonce := uint64(0); ; nonce++ {
		if nonce%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if strings.HasPrefix(PoWDigest(identity, nonce), prefix) {
			return nonce, nil
		}
	}
}

func VerifyPoW(identity string, nonce uint64, difficulty int) bool {
	return strings.HasPrefix(PoWDigest(identity, nonce), strings.Repeat("0", max(difficulty, 0)))
}

// FormatNonce and ParseNonce convert nonces for the wire.
func FormatNonce(nonce uint64) string {
	return strconv.FormatUint(nonce, 10)
}

func ParseNonce(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
