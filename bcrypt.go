package credentials

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoEmptyString rejects empty passwords before they reach the hasher.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode("EMPTY_PASSWORD").
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the raw hash comparison failure. The
// manager maps it to ErrInvalidCredentials before it reaches a caller.
var ErrMismatchedHashAndPassword = goerrors.New("identity auth error, mismatched credentials", goerrors.CategoryAuth).
	WithTextCode("MISMATCHED_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
