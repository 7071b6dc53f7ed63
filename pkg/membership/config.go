package membership

import (
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// maxApplicationNameLength mirrors the limit hosting frameworks put on provider application names.
const maxApplicationNameLength = 256

// Config holds engine settings consumed from the host. It is built once at startup and passed to the
// services; nothing in this package reads the environment on its own.
type Config struct {
	// ApplicationName is the default namespace; the CLI uses it as the database name when none is configured.
	ApplicationName  string         `env:"MEMBERSHIP_APP_NAME" envDefault:"membership" validate:"required,max=256"`
	BcryptCost       int            `env:"MEMBERSHIP_BCRYPT_COST" envDefault:"10" validate:"min=4,max=31"`
	OperationTimeout time.Duration  `env:"MEMBERSHIP_OPERATION_TIMEOUT" envDefault:"10s" validate:"min=0"`
	ResetTokenTTL    time.Duration  `env:"MEMBERSHIP_RESET_TOKEN_TTL" envDefault:"24h" validate:"gt=0"`
	Policy           PasswordPolicy `envPrefix:"MEMBERSHIP_PASSWORD_"`
}

// DefaultConfig returns the same values the env defaults produce.
func DefaultConfig() Config {
	return Config{
		ApplicationName:  "membership",
		BcryptCost:       bcrypt.DefaultCost,
		OperationTimeout: 10 * time.Second,
		ResetTokenTTL:    24 * time.Hour,
		Policy:           DefaultPasswordPolicy(),
	}
}

// Validate checks the settings that struct tags cannot express.
func (c Config) Validate() error {
	if c.ApplicationName == "" || len(c.ApplicationName) > maxApplicationNameLength {
		return fmt.Errorf("%w: application name must be 1..%d characters", ErrInvalidConfig, maxApplicationNameLength)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: bcrypt cost %d out of range", ErrInvalidConfig, c.BcryptCost)
	}
	if c.Policy.StrengthPattern != "" {
		if _, err := regexp.Compile(c.Policy.StrengthPattern); err != nil {
			return fmt.Errorf("%w: password strength pattern: %v", ErrInvalidConfig, err)
		}
	}
	if c.Policy.MinLength < 0 || c.Policy.MinNonAlphanumeric < 0 {
		return fmt.Errorf("%w: password policy values must not be negative", ErrInvalidConfig)
	}
	return nil
}
