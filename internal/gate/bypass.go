package gate

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"agegate/internal/platform/config"
)

// CodeBypass accepts codes matching one of the configured bcrypt hashes.
// With AllowAny set it accepts any non-empty code.
type CodeBypass struct {
	hashes   [][]byte
	allowAny bool
}

func NewCodeBypass(cfg config.BypassConfig) *CodeBypass {
	b := &CodeBypass{allowAny: cfg.AllowAny}
	for _, h := range cfg.CodeHashes {
		if h = strings.TrimSpace(h); h != "" {
			b.hashes = append(b.hashes, []byte(h))
		}
	}
	return b
}

// Enabled reports whether any code could ever be accepted.
func (b *CodeBypass) Enabled() bool {
	return b.allowAny || len(b.hashes) > 0
}

func (b *CodeBypass) Allow(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	if b.allowAny {
		return true
	}
	for _, h := range b.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(code)) == nil {
			return true
		}
	}
	return false
}
