package mongostore

// Config names the collections used by the store.
type Config struct {
	AccountsCollection    string `env:"MEMBERSHIP_ACCOUNTS_COLLECTION" envDefault:"webpages_Membership" validate:"required"`
	RolesCollection       string `env:"MEMBERSHIP_ROLES_COLLECTION" envDefault:"webpages_Role" validate:"required"`
	OAuthTokensCollection string `env:"MEMBERSHIP_OAUTH_TOKENS_COLLECTION" envDefault:"webpages_OAuthToken" validate:"required"`
	OAuthLinksCollection  string `env:"MEMBERSHIP_OAUTH_LINKS_COLLECTION" envDefault:"webpages_OAuthMembership" validate:"required"`
	SequenceCollection    string `env:"MEMBERSHIP_SEQUENCE_COLLECTION" envDefault:"IDSequence" validate:"required"`
}

// DefaultConfig returns the collection names the env defaults produce.
func DefaultConfig() Config {
	return Config{
		AccountsCollection:    "webpages_Membership",
		RolesCollection:       "webpages_Role",
		OAuthTokensCollection: "webpages_OAuthToken",
		OAuthLinksCollection:  "webpages_OAuthMembership",
		SequenceCollection:    "IDSequence",
	}
}

// withDefaults fills empty names from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AccountsCollection == "" {
		c.AccountsCollection = d.AccountsCollection
	}
	if c.RolesCollection == "" {
		c.RolesCollection = d.RolesCollection
	}
	if c.OAuthTokensCollection == "" {
		c.OAuthTokensCollection = d.OAuthTokensCollection
	}
	if c.OAuthLinksCollection == "" {
		c.OAuthLinksCollection = d.OAuthLinksCollection
	}
	if c.SequenceCollection == "" {
		c.SequenceCollection = d.SequenceCollection
	}
	return c
}
