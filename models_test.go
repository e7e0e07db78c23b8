package credentials_test

import (
	"testing"
	"time"

	credentials "github.com/goliatone/go-credentials"
	"github.com/stretchr/testify/assert"
)

func TestAccountIsLockedOut(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	tests := []struct {
		name    string
		account *credentials.Account
		want    bool
	}{
		{"nil account", nil, false},
		{"no lockout set", &credentials.Account{}, false},
		{"lockout in the future", &credentials.Account{LockedUntil: &future}, true},
		{"lockout elapsed", &credentials.Account{LockedUntil: &past}, false},
		{"lockout exactly now", &credentials.Account{LockedUntil: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.account.IsLockedOut(now))
		})
	}
}

func TestAccountClone(t *testing.T) {
	until := time.Now().Add(5 * time.Minute)
	account := &credentials.Account{
		Username:          "pepe",
		FailedAccessCount: 3,
		LockedUntil:       &until,
	}

	clone := account.Clone()
	clone.Username = "other"
	clone.FailedAccessCount = 0

	assert.Equal(t, "pepe", account.Username)
	assert.Equal(t, 3, account.FailedAccessCount)

	var nilAccount *credentials.Account
	assert.Nil(t, nilAccount.Clone())
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pepe.Rone@Example.com", "pepe.rone@example.com"},
		{"  pepe  ", "pepe"},
		{"PEPE", "pepe"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, credentials.NormalizeIdentifier(tt.in))
	}
}

func TestUsernameFromEmail(t *testing.T) {
	assert.Equal(t, "pepe", credentials.UsernameFromEmail("pepe", "other@example.com"))
	assert.Equal(t, "pepe.rone", credentials.UsernameFromEmail("", "pepe.rone@example.com"))
	assert.Equal(t, "", credentials.UsernameFromEmail("", "not-an-email"))
}
