package jwttoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	dErrors "custos/pkg/domain-errors"
	mwauth "custos/pkg/platform/middleware/auth"
)

// Claims represents the JWT claims the governance core consumes. Token
// issuance lives with the upstream identity provider; this service only
// validates.
type Claims struct {
	Subject string `json:"sub_id"`
	Actor   string `json:"actor_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService validates access tokens issued by the identity boundary.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// ValidateToken parses and verifies a token, returning the claims the
// middleware needs. Signing method is pinned to HMAC to reject algorithm
// confusion.
func (s *JWTService) ValidateToken(tokenString string) (*mwauth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing subject")
	}

	return &mwauth.Claims{Subject: claims.Subject, Actor: claims.Actor}, nil
}
