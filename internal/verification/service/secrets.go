package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"

	"agegate/internal/verification/models"
)

const secretBytes = 32

// fillSecrets generates any secret the OIDC client did not supply.
func fillSecrets(in models.FlowSecrets) (models.FlowSecrets, error) {
	out := in
	var err error
	if out.State == "" {
		if out.State, err = randomSecret(); err != nil {
			return out, err
		}
	}
	if out.Nonce == "" {
		if out.Nonce, err = randomSecret(); err != nil {
			return out, err
		}
	}
	if out.CodeVerifier == "" {
		out.CodeVerifier = oauth2.GenerateVerifier()
	}
	return out, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
