// Package diagnostics keeps a summary of the most recent token exchange and
// runs informational checks over it for GET /logs. Raw tokens are not kept.
package diagnostics

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"agegate/internal/oidc"
	"agegate/pkg/requestcontext"
)

const ageClaim = "over18"

// Check is one named diagnostic outcome.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

type snapshot struct {
	recordedAt     time.Time
	hasIDToken     bool
	hasAccessToken bool
	claims         map[string]any
	issuer         string
	clientID       string
	expectedNonce  string
}

// Recorder holds the latest token set summary. It is safe for concurrent use.
type Recorder struct {
	mu   sync.RWMutex
	last *snapshot
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record replaces the stored summary with one built from set. nonce is the
// value the flow sent to the authorisation server.
func (r *Recorder) Record(ctx context.Context, set *oidc.TokenSet, nonce string) {
	if set == nil {
		return
	}
	snap := &snapshot{
		recordedAt:     requestcontext.Now(ctx),
		hasIDToken:     set.IDToken != "",
		hasAccessToken: set.AccessToken != "",
		claims:         maps.Clone(set.Claims),
		issuer:         set.Issuer,
		clientID:       set.ClientID,
		expectedNonce:  nonce,
	}

	r.mu.Lock()
	r.last = snap
	r.mu.Unlock()
}

// Checks evaluates the latest token set as of now. With nothing recorded
// every check fails.
func (r *Recorder) Checks(now time.Time) []Check {
	r.mu.RLock()
	snap := r.last
	r.mu.RUnlock()

	if snap == nil {
		names := []string{
			"id_token_present", "access_token_present", "nonce_matches", "over18_claim_present",
			"id_token_not_expired", "issuer_matches", "audience_contains_client",
		}
		checks := make([]Check, len(names))
		for i, name := range names {
			checks[i] = Check{Name: name, Detail: "no token set retrieved yet"}
		}
		return checks
	}

	return []Check{
		{Name: "id_token_present", Passed: snap.hasIDToken},
		{Name: "access_token_present", Passed: snap.hasAccessToken},
		checkNonce(snap),
		checkAgeClaim(snap),
		checkExpiry(snap, now),
		checkIssuer(snap),
		checkAudience(snap),
	}
}

func checkNonce(s *snapshot) Check {
	c := Check{Name: "nonce_matches"}
	got, _ := s.claims["nonce"].(string)
	if got == "" {
		c.Detail = "id_token has no nonce"
		return c
	}
	c.Passed = subtle.ConstantTimeCompare([]byte(got), []byte(s.expectedNonce)) == 1
	return c
}

func checkAgeClaim(s *snapshot) Check {
	_, ok := s.claims[ageClaim]
	c := Check{Name: "over18_claim_present", Passed: ok}
	if ok {
		c.Detail = fmt.Sprintf("%v", s.claims[ageClaim])
	}
	return c
}

func checkExpiry(s *snapshot, now time.Time) Check {
	c := Check{Name: "id_token_not_expired"}
	exp, ok := numericDate(s.claims["exp"])
	if !ok {
		c.Detail = "id_token has no exp"
		return c
	}
	c.Passed = now.Before(exp)
	c.Detail = "expires " + exp.UTC().Format(time.RFC3339)
	return c
}

func checkIssuer(s *snapshot) Check {
	iss, _ := s.claims["iss"].(string)
	c := Check{Name: "issuer_matches", Passed: iss != "" && iss == s.issuer}
	if !c.Passed {
		c.Detail = fmt.Sprintf("id_token iss %q, expected %q", iss, s.issuer)
	}
	return c
}

func checkAudience(s *snapshot) Check {
	var aud []string
	switch v := s.claims["aud"].(type) {
	case string:
		aud = []string{v}
	case []any:
		for _, a := range v {
			if str, ok := a.(string); ok {
				aud = append(aud, str)
			}
		}
	}
	return Check{Name: "audience_contains_client", Passed: s.clientID != "" && slices.Contains(aud, s.clientID)}
}

func numericDate(v any) (time.Time, bool) {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0), true
	case int64:
		return time.Unix(n, 0), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(i, 0), true
	default:
		return time.Time{}, false
	}
}
