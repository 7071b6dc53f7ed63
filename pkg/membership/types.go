package membership

import "time"

// Account is the identity record. Field names in the bson tags match documents written by earlier
// deployments of this store, so existing collections can be read as-is.
type Account struct {
	UserID         int64  `bson:"_id"`
	UserName       string `bson:"UserName"`
	UserNameLower  string `bson:"UserNameLower"`
	IsLocalAccount bool   `bson:"IsLocalAccount"`
	IsConfirmed    bool   `bson:"IsConfirmed"`

	ConfirmationToken string `bson:"ConfirmationToken,omitempty"`

	PasswordHash          string     `bson:"Password,omitempty"`
	PasswordSalt          string     `bson:"PasswordSalt,omitempty"`
	PasswordChangedAt     *time.Time `bson:"PasswordChangedDate"`
	PasswordFailureCount  int        `bson:"PasswordFailuresSinceLastSuccess"`
	LastPasswordFailureAt *time.Time `bson:"LastPasswordFailureDate"`

	PasswordResetToken          string     `bson:"PasswordVerificationToken,omitempty"`
	PasswordResetTokenExpiresAt *time.Time `bson:"PasswordVerificationTokenExpirationDate"`

	LastLoginAt *time.Time `bson:"LastLoginDate"`
	CreatedAt   time.Time  `bson:"CreateDate"`

	// Roles holds role names, not references. Stores always persist it as an array.
	Roles []string `bson:"Roles"`

	// ExtraData is an opaque caller payload stored and returned unchanged.
	ExtraData string `bson:"ExtraData,omitempty"`
}

// HasRole reports whether the account lists role.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// resetTokenValid reports whether the account holds a reset token that has not expired at now.
func (a *Account) resetTokenValid(now time.Time) bool {
	return a.PasswordResetToken != "" &&
		a.PasswordResetTokenExpiresAt != nil &&
		a.PasswordResetTokenExpiresAt.After(now)
}

// Role is a named security role.
type Role struct {
	RoleID   int64  `bson:"_id"`
	RoleName string `bson:"RoleName"`
}

// OAuthLink maps a third-party provider identity to a local user id.
type OAuthLink struct {
	ID             string `bson:"_id"`
	Provider       string `bson:"Provider"`
	ProviderUserID string `bson:"ProviderUserId"`
	UserID         int64  `bson:"UserId"`
}

// OAuthToken is an OAuth request or access token with its secret. Tokens are case-sensitive.
type OAuthToken struct {
	ID     string `bson:"_id"`
	Token  string `bson:"Token"`
	Secret string `bson:"Secret"`
}

// OAuthAccount identifies an external account linked to a user.
type OAuthAccount struct {
	Provider       string
	ProviderUserID string
}
