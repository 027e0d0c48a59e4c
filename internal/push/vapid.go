package push

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when an application server key cannot be decoded.
var ErrInvalidKey = errors.New("invalid application server key")

// DecodeApplicationServerKey turns a base64url VAPID public key, padded or not,
// into the raw bytes pushManager.subscribe expects.
func DecodeApplicationServerKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	std := strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if rem := len(std) % 4; rem != 0 {
		std += strings.Repeat("=", 4-rem)
	}
	b, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return b, nil
}

// EncodeApplicationServerKey is the inverse of DecodeApplicationServerKey and
// produces unpadded base64url.
func EncodeApplicationServerKey(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
