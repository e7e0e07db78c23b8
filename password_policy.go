package credentials

import (
	"strings"
)

// PasswordValidator inspects a candidate password against the account it
// targets and returns zero or more rule violation descriptions. Validators
// compose by concatenation; a registration or reset fails when the combined
// list is non-empty, surfacing every violation in one response.
type PasswordValidator interface {
	ValidatePassword(candidate string, account *Account) []string
}

// PasswordValidatorFunc adapts a function into a PasswordValidator.
type PasswordValidatorFunc func(candidate string, account *Account) []string

// ValidatePassword satisfies the PasswordValidator interface.
func (f PasswordValidatorFunc) ValidatePassword(candidate string, account *Account) []string {
	if f == nil {
		return nil
	}
	return f(candidate, account)
}

// CompositeValidator runs validators in order and concatenates their
// violation lists.
type CompositeValidator struct {
	validators []PasswordValidator
}

// NewCompositeValidator filters nil validators and returns a composite.
func NewCompositeValidator(validators ...PasswordValidator) *CompositeValidator {
	filtered := make([]PasswordValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &CompositeValidator{validators: filtered}
}

// ValidatePassword satisfies the PasswordValidator interface.
func (c *CompositeValidator) ValidatePassword(candidate string, account *Account) []string {
	var violations []string
	for _, v := range c.validators {
		violations = append(violations, v.ValidatePassword(candidate, account)...)
	}
	return violations
}

// Append adds more validators to the chain.
func (c *CompositeValidator) Append(validators ...PasswordValidator) *CompositeValidator {
	for _, v := range validators {
		if v != nil {
			c.validators = append(c.validators, v)
		}
	}
	return c
}

// NotUsernameValidator rejects candidates equal to the account's username.
// Comparison is case-insensitive, consistent with the username policy.
func NotUsernameValidator() PasswordValidator {
	return PasswordValidatorFunc(func(candidate string, account *Account) []string {
		if account == nil || account.Username == "" {
			return nil
		}
		if NormalizeIdentifier(candidate) == NormalizeIdentifier(account.Username) {
			return []string{"password must not equal the username"}
		}
		return nil
	})
}

// NoLiteralPasswordValidator rejects candidates containing the substring
// "password", case-insensitive.
func NoLiteralPasswordValidator() PasswordValidator {
	return PasswordValidatorFunc(func(candidate string, _ *Account) []string {
		if strings.Contains(strings.ToLower(candidate), "password") {
			return []string{`password must not contain the word "password"`}
		}
		return nil
	})
}

// DefaultPasswordValidator is the built-in rule set.
func DefaultPasswordValidator() *CompositeValidator {
	return NewCompositeValidator(
		NotUsernameValidator(),
		NoLiteralPasswordValidator(),
	)
}

// checkPasswordPolicy turns violations into the WeakPassword error, carrying
// every violated rule description.
func checkPasswordPolicy(policy PasswordValidator, candidate string, account *Account) error {
	if policy == nil {
		return nil
	}

	violations := policy.ValidatePassword(candidate, account)
	if len(violations) == 0 {
		return nil
	}

	return ErrWeakPassword.Clone().WithMetadata(map[string]any{
		"violations": violations,
	})
}
