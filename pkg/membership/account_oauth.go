package membership

import (
	"context"
	"errors"
	"sort"

	"github.com/dmitrymomot/mongomembership/pkg/logger"
)

// LinkOrCreateOAuthAccount links the provider identity to userName. A missing account is created as a
// confirmed account without a password. An existing link for the identity is re-pointed at the user.
func (s *accountService) LinkOrCreateOAuthAccount(ctx context.Context, provider, providerUserID, userName string) error {
	if blank(provider) {
		return ErrEmptyProvider
	}
	if blank(providerUserID) {
		return ErrEmptyProviderUserID
	}
	if blank(userName) {
		return ErrEmptyUserName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.lookup(ctx, userName)
	if err != nil {
		return err
	}
	if account == nil {
		account = &Account{
			UserName:      userName,
			UserNameLower: NormalizeKey(userName),
			IsConfirmed:   true,
			CreatedAt:     s.clock(),
			Roles:         []string{},
		}
		if err := s.storage.UpsertAccount(ctx, account); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				return ErrDuplicateUserName
			}
			return err
		}
		s.logger.InfoContext(ctx, "oauth account created",
			logger.Component("oauth"),
			logger.UserID(account.UserID),
			logger.UserName(userName),
		)
	}

	link, err := s.storage.OAuthLinkByProvider(ctx, provider, providerUserID)
	switch {
	case errors.Is(err, ErrOAuthLinkNotFound):
		link = &OAuthLink{Provider: provider, ProviderUserID: providerUserID}
	case err != nil:
		return err
	}
	link.UserID = account.UserID

	if err := s.storage.UpsertOAuthLink(ctx, link); err != nil {
		return err
	}

	s.metrics.observe("link_oauth", resultOK)
	s.logger.InfoContext(ctx, "oauth account linked",
		logger.Component("oauth"),
		logger.UserID(account.UserID),
		logger.Provider(provider),
	)
	return nil
}

// DeleteOAuthAccount removes the link for the provider identity.
func (s *accountService) DeleteOAuthAccount(ctx context.Context, provider, providerUserID string) (bool, error) {
	if blank(provider) {
		return false, ErrEmptyProvider
	}
	if blank(providerUserID) {
		return false, ErrEmptyProviderUserID
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	link, err := s.storage.OAuthLinkByProvider(ctx, provider, providerUserID)
	if errors.Is(err, ErrOAuthLinkNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.storage.DeleteOAuthLink(ctx, link.ID)
}

// UserIDFromOAuth returns the user linked to the provider identity or ErrOAuthLinkNotFound.
func (s *accountService) UserIDFromOAuth(ctx context.Context, provider, providerUserID string) (int64, error) {
	if blank(provider) {
		return 0, ErrEmptyProvider
	}
	if blank(providerUserID) {
		return 0, ErrEmptyProviderUserID
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	link, err := s.storage.OAuthLinkByProvider(ctx, provider, providerUserID)
	if err != nil {
		return 0, err
	}
	return link.UserID, nil
}

// OAuthAccounts lists the identities linked to userName ordered by provider, then provider user id.
func (s *accountService) OAuthAccounts(ctx context.Context, userName string) ([]OAuthAccount, error) {
	if blank(userName) {
		return nil, ErrEmptyUserName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.storage.AccountByUserName(ctx, userName)
	if err != nil {
		return nil, err
	}
	links, err := s.storage.OAuthLinksByUser(ctx, account.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]OAuthAccount, 0, len(links))
	for _, l := range links {
		out = append(out, OAuthAccount{Provider: l.Provider, ProviderUserID: l.ProviderUserID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ProviderUserID < out[j].ProviderUserID
	})
	return out, nil
}

// StoreOAuthRequestToken saves a request token with its secret, replacing the secret of an existing token.
func (s *accountService) StoreOAuthRequestToken(ctx context.Context, token, secret string) error {
	if blank(token) {
		return ErrEmptyToken
	}
	if blank(secret) {
		return ErrEmptySecret
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, err := s.storage.OAuthTokenByToken(ctx, token)
	switch {
	case errors.Is(err, ErrOAuthTokenNotFound):
		record = &OAuthToken{Token: token}
	case err != nil:
		return err
	}
	record.Secret = secret

	return s.storage.UpsertOAuthToken(ctx, record)
}

// ReplaceOAuthRequestToken swaps a request token for the access token obtained with it.
// An unknown request token is a no-op.
func (s *accountService) ReplaceOAuthRequestToken(ctx context.Context, requestToken, accessToken, accessSecret string) error {
	if blank(requestToken) || blank(accessToken) {
		return ErrEmptyToken
	}
	if blank(accessSecret) {
		return ErrEmptySecret
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	request, err := s.storage.OAuthTokenByToken(ctx, requestToken)
	if errors.Is(err, ErrOAuthTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.storage.DeleteOAuthToken(ctx, request.ID); err != nil {
		return err
	}

	access, err := s.storage.OAuthTokenByToken(ctx, accessToken)
	switch {
	case errors.Is(err, ErrOAuthTokenNotFound):
		access = &OAuthToken{Token: accessToken}
	case err != nil:
		return err
	}
	access.Secret = accessSecret

	return s.storage.UpsertOAuthToken(ctx, access)
}

// OAuthTokenSecret returns the secret stored for token or ErrOAuthTokenNotFound.
func (s *accountService) OAuthTokenSecret(ctx context.Context, token string) (string, error) {
	if blank(token) {
		return "", ErrEmptyToken
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, err := s.storage.OAuthTokenByToken(ctx, token)
	if err != nil {
		return "", err
	}
	return record.Secret, nil
}

func (s *accountService) DeleteOAuthToken(ctx context.Context, token string) (bool, error) {
	if blank(token) {
		return false, ErrEmptyToken
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, err := s.storage.OAuthTokenByToken(ctx, token)
	if errors.Is(err, ErrOAuthTokenNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.storage.DeleteOAuthToken(ctx, record.ID)
}
