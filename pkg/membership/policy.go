package membership

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// PasswordPolicy describes password requirements configured by the host.
// The engine stores and exposes the policy but never enforces it: callers run Check before
// CreateLocalAccount, ChangePassword or RedeemResetToken.
type PasswordPolicy struct {
	MinLength          int    `env:"MIN_LENGTH" envDefault:"6" validate:"min=0"`
	MinNonAlphanumeric int    `env:"MIN_NON_ALPHANUMERIC" envDefault:"0" validate:"min=0"`
	StrengthPattern    string `env:"STRENGTH_PATTERN"`
}

// DefaultPasswordPolicy requires six characters and nothing else.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 6}
}

// Check reports the first policy rule password violates.
// An invalid StrengthPattern is reported as ErrInvalidConfig.
func (p PasswordPolicy) Check(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return ErrPasswordTooShort
	}

	if p.MinNonAlphanumeric > 0 {
		symbols := 0
		for _, r := range password {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				symbols++
			}
		}
		if symbols < p.MinNonAlphanumeric {
			return ErrPasswordNeedsSymbols
		}
	}

	if p.StrengthPattern != "" {
		re, err := regexp.Compile(p.StrengthPattern)
		if err != nil {
			return ErrInvalidConfig
		}
		if !re.MatchString(password) {
			return ErrPasswordPatternMismatch
		}
	}

	return nil
}
