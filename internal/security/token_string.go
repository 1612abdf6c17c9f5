package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// tokenAlphabet is the character set for token prefixes and suffixes.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Token string dimensions.
const (
	// TokenSuffixLength is the length of the random token suffix.
	TokenSuffixLength = 15
	// TokenPrefixLength is the length of auto-generated prefixes.
	TokenPrefixLength = 4
)

// customPrefixPattern validates user-supplied prefixes.
var customPrefixPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,4}$`)

// TokenRand produces random strings over the token alphabet. Tokens are bearer
// credentials, so the default implementation reads crypto/rand; tests inject a
// deterministic source.
type TokenRand interface {
	AlphanumericString(length int) (string, error)
}

// cryptoTokenRand draws uniformly from the token alphabet using crypto/rand.
type cryptoTokenRand struct{}

// NewTokenRand returns the default cryptographically secure TokenRand.
func NewTokenRand() TokenRand {
	return cryptoTokenRand{}
}

// AlphanumericString returns a random string of the given length.
func (cryptoTokenRand) AlphanumericString(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("generate token string: invalid length %d", length)
	}
	max := big.NewInt(int64(len(tokenAlphabet)))
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token string: %w", err)
		}
		sb.WriteByte(tokenAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// ValidCustomPrefix reports whether a user-supplied prefix is acceptable:
// one to four alphanumeric characters.
func ValidCustomPrefix(prefix string) bool {
	return customPrefixPattern.MatchString(prefix)
}

// ProductTokenString formats a product token: {PREFIX}-{CREDITS}-{RANDOM15}.
func ProductTokenString(rnd TokenRand, prefix string, credits int64) (string, error) {
	suffix, err := rnd.AlphanumericString(TokenSuffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%s", prefix, credits, suffix), nil
}

// MasterTokenString formats a master token: {PREFIX}-{CREDITS}USD-{RANDOM15}.
func MasterTokenString(rnd TokenRand, prefix string, credits int64) (string, error) {
	suffix, err := rnd.AlphanumericString(TokenSuffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%dUSD-%s", prefix, credits, suffix), nil
}
