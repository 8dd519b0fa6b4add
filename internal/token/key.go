package token

import "fmt"

// MinKeyBytes is the minimum signing secret length: 384 bits, the HS384 MAC size.
const MinKeyBytes = 48

// Key holds the symmetric signing secret for the process lifetime. It is
// loaded once at startup and never mutated afterwards.
type Key struct {
	secret []byte
}

// LoadKey validates and wraps the signing secret. A secret shorter than 48
// bytes is a configuration error: the caller must treat it as fatal and
// refuse to start.
func LoadKey(secret string) (Key, error) {
	raw := []byte(secret)
	if len(raw) < MinKeyBytes {
		return Key{}, fmt.Errorf("signing secret must be at least %d bytes (384 bits) for HS384, got %d", MinKeyBytes, len(raw))
	}
	return Key{secret: raw}, nil
}

func (k Key) bytes() []byte {
	return k.secret
}
