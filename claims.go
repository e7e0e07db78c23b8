package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the claim set carried by every token this package signs,
// purpose tokens and sessions alike.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID     string `json:"uid,omitempty"`
	Purpose string `json:"prp,omitempty"`
}

// UserID returns the account the token is bound to.
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// TokenPurpose returns the purpose claim.
func (c *TokenClaims) TokenPurpose() TokenPurpose {
	return TokenPurpose(c.Purpose)
}

// Expires returns the expiration time, zero when absent.
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issuance time, zero when absent.
func (c *TokenClaims) Issued() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID guarantees a unique jti so otherwise identical tokens issued
// in the same second stay distinguishable.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
