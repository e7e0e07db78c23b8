package credentials

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ValidateStringEquals builds an ozzo rule asserting the value matches str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}
