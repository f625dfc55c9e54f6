package security

import (
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordRule validates a single aspect of a candidate password.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordValidator applies an ordered set of rules and returns the
// first violation encountered.
type PasswordValidator struct {
	rules []PasswordRule
}

func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	return &PasswordValidator{rules: rules}
}

// DefaultPasswordValidator enforces the portal's signup policy.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule{Min: 8},
		MaxLengthRule{Max: 72},
		StrengthRule{MinScore: 2},
	)
}

func (v *PasswordValidator) Validate(password string) error {
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule rejects passwords shorter than Min characters.
type MinLengthRule struct {
	Min int
}

func (r MinLengthRule) Validate(password string) error {
	if len(password) < r.Min {
		return fmt.Errorf("password must be at least %d characters long", r.Min)
	}
	return nil
}

// MaxLengthRule rejects passwords longer than Max bytes. bcrypt truncates
// input past 72 bytes, so anything longer is silently weakened.
type MaxLengthRule struct {
	Max int
}

func (r MaxLengthRule) Validate(password string) error {
	if len(password) > r.Max {
		return fmt.Errorf("password must be at most %d characters long", r.Max)
	}
	return nil
}

// StrengthRule scores the password with zxcvbn and rejects scores below
// MinScore (0 weakest, 4 strongest).
type StrengthRule struct {
	MinScore int
}

func (r StrengthRule) Validate(password string) error {
	result := zxcvbn.PasswordStrength(password, nil)
	if result.Score < r.MinScore {
		return fmt.Errorf("password is too weak, add more words or symbols")
	}
	return nil
}
