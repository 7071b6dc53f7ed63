package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
)

// linkDocument is the stored form of an OAuth link. The lower-cased copies of the provider
// identity back the unique index and case-insensitive lookups.
type linkDocument struct {
	membership.OAuthLink `bson:",inline"`

	ProviderLower       string `bson:"ProviderLower"`
	ProviderUserIDLower string `bson:"ProviderUserIdLower"`
}

func newLinkDocument(link membership.OAuthLink) linkDocument {
	return linkDocument{
		OAuthLink:           link,
		ProviderLower:       membership.NormalizeKey(link.Provider),
		ProviderUserIDLower: membership.NormalizeKey(link.ProviderUserID),
	}
}

func (s *Store) OAuthLinkByProvider(ctx context.Context, provider, providerUserID string) (*membership.OAuthLink, error) {
	res := s.links.FindOne(ctx, bson.D{
		{Key: "ProviderLower", Value: membership.NormalizeKey(provider)},
		{Key: "ProviderUserIdLower", Value: membership.NormalizeKey(providerUserID)},
	})
	if err := res.Err(); err != nil {
		return nil, mapError(err, membership.ErrOAuthLinkNotFound)
	}

	var doc linkDocument
	if err := res.Decode(&doc); err != nil {
		return nil, corrupt(s.cfg.OAuthLinksCollection, err)
	}
	return &doc.OAuthLink, nil
}

func (s *Store) OAuthLinksByUser(ctx context.Context, userID int64) ([]membership.OAuthLink, error) {
	cursor, err := s.links.Find(ctx, bson.D{{Key: "UserId", Value: userID}})
	if err != nil {
		return nil, mapError(err, nil)
	}
	defer cursor.Close(ctx)

	out := []membership.OAuthLink{}
	for cursor.Next(ctx) {
		var doc linkDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, corrupt(s.cfg.OAuthLinksCollection, err)
		}
		out = append(out, doc.OAuthLink)
	}
	if err := cursor.Err(); err != nil {
		return nil, mapError(err, nil)
	}
	return out, nil
}

func (s *Store) UpsertOAuthLink(ctx context.Context, link *membership.OAuthLink) error {
	if link.ID == "" {
		link.ID = bson.NewObjectID().Hex()
	}

	_, err := s.links.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: link.ID}},
		newLinkDocument(*link),
		options.Replace().SetUpsert(true),
	)
	return mapError(err, nil)
}

func (s *Store) DeleteOAuthLink(ctx context.Context, id string) (bool, error) {
	res, err := s.links.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, mapError(err, nil)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) DeleteOAuthLinksByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := s.links.DeleteMany(ctx, bson.D{{Key: "UserId", Value: userID}})
	if err != nil {
		return 0, mapError(err, nil)
	}
	return res.DeletedCount, nil
}

func (s *Store) OAuthTokenByToken(ctx context.Context, token string) (*membership.OAuthToken, error) {
	res := s.tokens.FindOne(ctx, bson.D{{Key: "Token", Value: token}})
	if err := res.Err(); err != nil {
		return nil, mapError(err, membership.ErrOAuthTokenNotFound)
	}

	var record membership.OAuthToken
	if err := res.Decode(&record); err != nil {
		return nil, corrupt(s.cfg.OAuthTokensCollection, err)
	}
	return &record, nil
}

func (s *Store) UpsertOAuthToken(ctx context.Context, token *membership.OAuthToken) error {
	if token.ID == "" {
		token.ID = bson.NewObjectID().Hex()
	}

	_, err := s.tokens.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: token.ID}},
		token,
		options.Replace().SetUpsert(true),
	)
	return mapError(err, nil)
}

func (s *Store) DeleteOAuthToken(ctx context.Context, id string) (bool, error) {
	res, err := s.tokens.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, mapError(err, nil)
	}
	return res.DeletedCount > 0, nil
}

var _ membership.OAuthStorage = (*Store)(nil)
