// Package auth verifies access tokens issued by the external identity provider.
package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
	"github.com/MrJamesThe3rd/helios/internal/profile"
)

// Audience is the audience Supabase stamps on signed-in user tokens.
const Audience = "authenticated"

// Claims are the fields Helios reads from a Supabase access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with the project's JWT secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(Audience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates token and returns the identity it asserts.
// Any failure is reported as ledger.ErrInvalidCredentials.
func (v *Verifier) Verify(token string) (profile.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return profile.Identity{}, fmt.Errorf("missing access token: %w", ledger.ErrInvalidCredentials)
	}

	var claims Claims

	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return profile.Identity{}, fmt.Errorf("%w: %w", ledger.ErrInvalidCredentials, err)
	}

	if claims.Subject == "" {
		return profile.Identity{}, fmt.Errorf("token has no subject: %w", ledger.ErrInvalidCredentials)
	}

	return profile.Identity{ExternalID: claims.Subject, Email: claims.Email}, nil
}
