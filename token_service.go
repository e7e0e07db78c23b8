package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface with HS256 signed
// claims. Purpose tokens are opaque to callers; only the service can bind
// a token back to its purpose and account.
type TokenServiceImpl struct {
	signingKey      []byte
	issuer          string
	audience        jwt.ClaimStrings
	sessionTTL      time.Duration
	confirmationTTL time.Duration
	resetTTL        time.Duration
	logger          Logger
	now             func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	return &TokenServiceImpl{
		signingKey:      []byte(cfg.GetSigningKey()),
		issuer:          cfg.GetIssuer(),
		audience:        cfg.GetAudience(),
		sessionTTL:      parsePattern(cfg.GetSessionDuration(), "72h"),
		confirmationTTL: parsePattern(cfg.GetConfirmationTokenDuration(), "24h"),
		resetTTL:        parsePattern(cfg.GetResetTokenDuration(), "1h"),
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (ts *TokenServiceImpl) WithClock(clock func() time.Time) *TokenServiceImpl {
	if clock != nil {
		ts.now = clock
	}
	return ts
}

// Issue signs a purpose token bound to the given account.
func (ts *TokenServiceImpl) Issue(purpose TokenPurpose, accountID uuid.UUID) (string, error) {
	ttl, err := ts.ttlFor(purpose)
	if err != nil {
		return "", err
	}

	return ts.sign(purpose, accountID.String(), ttl)
}

// Validate checks a presented token against its expected purpose and target
// account. Returns nil, ErrTokenExpired, or ErrInvalidToken.
func (ts *TokenServiceImpl) Validate(token string, purpose TokenPurpose, accountID uuid.UUID) error {
	claims, err := ts.parse(token)
	if err != nil {
		return err
	}

	if claims.TokenPurpose() != purpose {
		return ErrInvalidToken.Clone().WithMetadata(map[string]any{
			"reason": "purpose mismatch",
		})
	}

	if claims.UserID() != accountID.String() {
		return ErrInvalidToken.Clone().WithMetadata(map[string]any{
			"reason": "subject mismatch",
		})
	}

	return nil
}

// IssueSession signs a session principal for an authenticated account.
func (ts *TokenServiceImpl) IssueSession(account *Account) (string, error) {
	if account == nil {
		return "", goerrors.New("account must not be nil", goerrors.CategoryInternal)
	}

	return ts.sign(purposeSession, account.ID.String(), ts.sessionTTL)
}

// SessionFromToken validates a session token and rebuilds the principal.
func (ts *TokenServiceImpl) SessionFromToken(token string) (Session, error) {
	claims, err := ts.parse(token)
	if err != nil {
		return nil, err
	}

	if claims.TokenPurpose() != purposeSession {
		return nil, ErrInvalidToken.Clone().WithMetadata(map[string]any{
			"reason": "not a session token",
		})
	}

	return sessionFromTokenClaims(claims)
}

func (ts *TokenServiceImpl) ttlFor(purpose TokenPurpose) (time.Duration, error) {
	switch purpose {
	case PurposeEmailConfirmation:
		return ts.confirmationTTL, nil
	case PurposePasswordReset:
		return ts.resetTTL, nil
	default:
		return 0, goerrors.New("unknown token purpose", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"purpose": string(purpose)})
	}
}

func (ts *TokenServiceImpl) sign(purpose TokenPurpose, subject string, ttl time.Duration) (string, error) {
	now := ts.now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:     subject,
		Purpose: string(purpose),
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

func (ts *TokenServiceImpl) parse(tokenString string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(ts.now))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrInvalidToken.Category, ErrInvalidToken.Message).
			WithTextCode(ErrInvalidToken.TextCode)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrInvalidToken
}

var _ TokenService = (*TokenServiceImpl)(nil)
