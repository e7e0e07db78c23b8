package credentials

import (
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the principal handed back on a successful login.
type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

func sessionFromTokenClaims(claims *TokenClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrInvalidToken
	}

	session := &SessionObject{
		UserID:   claims.UserID(),
		Issuer:   claims.Issuer,
		Audience: claims.Audience,
	}

	if issued := claims.Issued(); !issued.IsZero() {
		session.IssuedAt = &issued
	}

	if expires := claims.Expires(); !expires.IsZero() {
		session.ExpirationDate = &expires
	}

	return session, nil
}
