package tenant

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// KeyPrefix is prepended to every issued API key for identification.
const KeyPrefix = "tbk_"

// APIKey is a server-issued credential bound to exactly one tenant.
type APIKey struct {
	ID        int64      `json:"id"`
	TenantID  int64      `json:"tenantId"`
	Prefix    string     `json:"prefix"`
	Hash      string     `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// IssuedKey is returned exactly once when a key is generated.
type IssuedKey struct {
	Key    APIKey `json:"key"`
	Secret string `json:"secret"`
}

// GenerateKey creates a new plaintext key ("tbk_<prefix>.<secret>") and its bcrypt hash.
func GenerateKey(cost int) (plain, prefix, hash string, err error) {
	prefix = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("read random: %w", err)
	}
	secret := hex.EncodeToString(b)

	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", "", "", fmt.Errorf("hash key: %w", err)
	}
	return KeyPrefix + prefix + "." + secret, prefix, string(h), nil
}

// SplitKey separates a presented key into prefix and secret.
func SplitKey(plain string) (prefix, secret string, ok bool) {
	rest, found := strings.CutPrefix(plain, KeyPrefix)
	if !found {
		return "", "", false
	}
	prefix, secret, ok = strings.Cut(rest, ".")
	if !ok || prefix == "" || secret == "" {
		return "", "", false
	}
	return prefix, secret, true
}

// Verify reports whether secret matches the stored hash and the key is not revoked.
func (k *APIKey) Verify(secret string) bool {
	if k.RevokedAt != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(secret)) == nil
}
