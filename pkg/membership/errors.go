package membership

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of them with errors.Is.
var (
	ErrNotFound           = errors.New("membership: not found")
	ErrConflict           = errors.New("membership: conflict")
	ErrInvalidInput       = errors.New("membership: invalid input")
	ErrPreconditionFailed = errors.New("membership: precondition failed")
	ErrStorageUnavailable = errors.New("membership: storage unavailable")
	ErrNotSupported       = errors.New("membership: operation not supported")
	ErrCorruptRecord      = errors.New("membership: corrupt record")
)

// Not found
var (
	ErrAccountNotFound    = fmt.Errorf("%w: account", ErrNotFound)
	ErrRoleNotFound       = fmt.Errorf("%w: role", ErrNotFound)
	ErrOAuthLinkNotFound  = fmt.Errorf("%w: oauth link", ErrNotFound)
	ErrOAuthTokenNotFound = fmt.Errorf("%w: oauth token", ErrNotFound)
)

// Conflicts
var (
	ErrDuplicateUserName = fmt.Errorf("%w: user name already has a local account", ErrConflict)
	ErrDuplicateRole     = fmt.Errorf("%w: role already exists", ErrConflict)
	ErrRolePopulated     = fmt.Errorf("%w: role is assigned to accounts", ErrConflict)
	ErrDuplicateKey      = fmt.Errorf("%w: unique index violation", ErrConflict)
)

// Input validation
var (
	ErrEmptyUserName       = fmt.Errorf("%w: user name is required", ErrInvalidInput)
	ErrEmptyPassword       = fmt.Errorf("%w: password is required", ErrInvalidInput)
	ErrEmptyToken          = fmt.Errorf("%w: token is required", ErrInvalidInput)
	ErrEmptyRoleName       = fmt.Errorf("%w: role name is required", ErrInvalidInput)
	ErrEmptyProvider       = fmt.Errorf("%w: provider is required", ErrInvalidInput)
	ErrEmptyProviderUserID = fmt.Errorf("%w: provider user id is required", ErrInvalidInput)
	ErrEmptySecret         = fmt.Errorf("%w: token secret is required", ErrInvalidInput)
	ErrEmptyList           = fmt.Errorf("%w: at least one user and one role are required", ErrInvalidInput)
	ErrInvalidPattern      = fmt.Errorf("%w: invalid user name pattern", ErrInvalidInput)
	ErrInvalidPage         = fmt.Errorf("%w: page must be >= 0 and page size > 0", ErrInvalidInput)
	ErrInvalidTTL          = fmt.Errorf("%w: token ttl must be positive", ErrInvalidInput)
	ErrInvalidConfig       = fmt.Errorf("%w: configuration", ErrInvalidInput)
)

// Preconditions
var (
	ErrAccountNotConfirmed = fmt.Errorf("%w: account does not exist or is not confirmed", ErrPreconditionFailed)
)

// Password policy violations returned by PasswordPolicy.Check.
var (
	ErrPasswordTooShort        = fmt.Errorf("%w: password is too short", ErrInvalidInput)
	ErrPasswordNeedsSymbols    = fmt.Errorf("%w: password needs more non-alphanumeric characters", ErrInvalidInput)
	ErrPasswordPatternMismatch = fmt.Errorf("%w: password does not match the strength pattern", ErrInvalidInput)
)

// PartialError reports a multi-document operation that was applied to some accounts and failed for others.
// There are no multi-document transactions, so the applied part is not rolled back.
type PartialError struct {
	Op      string
	Applied []string
	Failed  []string
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("membership: %s partially applied (applied: [%s], failed: [%s]): %v",
		e.Op, strings.Join(e.Applied, ", "), strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
