package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
)

// Claims are carried by a verification session token. The subject is the
// cart the verification was completed for.
type Claims struct {
	AuthServerID string `json:"authorisation_server_id,omitempty"`
	jwt.RegisteredClaims
}

// CartID returns the cart the token is bound to.
func (c *Claims) CartID() domain.CartID {
	return domain.CartID(c.Subject)
}

// JWTService signs and validates session tokens with HS256.
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateSessionToken issues a token for cartID valid from issuedAt until expiresAt.
func (s *JWTService) GenerateSessionToken(
	cartID domain.CartID,
	authServerID domain.AuthServerID,
	issuedAt time.Time,
	expiresAt time.Time) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AuthServerID: string(authServerID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(cartID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken verifies signature, issuer and expiry as of now.
func (s *JWTService) ValidateToken(tokenString string, now time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeSessionMismatch, "session token has expired")
		}
		return nil, dErrors.New(dErrors.CodeSessionMismatch, "invalid session token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeSessionMismatch, "invalid session token")
	}

	return claims, nil
}
