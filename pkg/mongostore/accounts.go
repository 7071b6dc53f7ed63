package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
	mongox "github.com/dmitrymomot/mongomembership/pkg/mongo"
)

func (s *Store) findAccount(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (*membership.Account, error) {
	res := s.accounts.FindOne(ctx, filter, opts...)
	if err := res.Err(); err != nil {
		return nil, mapError(err, membership.ErrAccountNotFound)
	}

	var account membership.Account
	if err := res.Decode(&account); err != nil {
		return nil, corrupt(s.cfg.AccountsCollection, err)
	}
	if account.Roles == nil {
		account.Roles = []string{}
	}
	return &account, nil
}

func (s *Store) findAccounts(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]membership.Account, error) {
	cursor, err := s.accounts.Find(ctx, filter, opts...)
	if err != nil {
		return nil, mapError(err, nil)
	}
	defer cursor.Close(ctx)

	out := []membership.Account{}
	for cursor.Next(ctx) {
		var account membership.Account
		if err := cursor.Decode(&account); err != nil {
			return nil, corrupt(s.cfg.AccountsCollection, err)
		}
		if account.Roles == nil {
			account.Roles = []string{}
		}
		out = append(out, account)
	}
	if err := cursor.Err(); err != nil {
		return nil, mapError(err, nil)
	}
	return out, nil
}

func (s *Store) AccountByID(ctx context.Context, id int64) (*membership.Account, error) {
	return s.findAccount(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) AccountByUserName(ctx context.Context, userName string) (*membership.Account, error) {
	return s.findAccount(ctx, bson.D{{Key: "UserNameLower", Value: membership.NormalizeKey(userName)}})
}

func (s *Store) AccountByConfirmationToken(ctx context.Context, token string) (*membership.Account, error) {
	return s.findAccount(ctx,
		bson.D{{Key: "ConfirmationToken", Value: token}},
		options.FindOne().SetCollation(mongox.CaseInsensitive),
	)
}

func (s *Store) AccountByResetToken(ctx context.Context, token string) (*membership.Account, error) {
	return s.findAccount(ctx,
		bson.D{{Key: "PasswordVerificationToken", Value: token}},
		options.FindOne().SetCollation(mongox.CaseInsensitive),
	)
}

func (s *Store) ListAccounts(ctx context.Context, offset, limit int) ([]membership.Account, error) {
	return s.findAccounts(ctx, bson.D{},
		options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetSkip(int64(offset)).
			SetLimit(int64(limit)),
	)
}

func (s *Store) CountAccounts(ctx context.Context) (int64, error) {
	n, err := s.accounts.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, mapError(err, nil)
	}
	return n, nil
}

func (s *Store) AccountsInRole(ctx context.Context, role, pattern string) ([]membership.Account, error) {
	filter := bson.D{{Key: "Roles", Value: role}}
	if pattern != "" {
		filter = append(filter, bson.E{
			Key:   "UserNameLower",
			Value: bson.Regex{Pattern: pattern, Options: "i"},
		})
	}
	return s.findAccounts(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) CountAccountsInRole(ctx context.Context, role string) (int64, error) {
	n, err := s.accounts.CountDocuments(ctx, bson.D{{Key: "Roles", Value: role}})
	if err != nil {
		return 0, mapError(err, nil)
	}
	return n, nil
}

// UpsertAccount replaces the account document by id, allocating an id first when it is zero.
func (s *Store) UpsertAccount(ctx context.Context, account *membership.Account) error {
	if account.UserID == 0 {
		id, err := s.nextID(ctx, s.accounts)
		if err != nil {
			return err
		}
		account.UserID = id
	}
	if account.Roles == nil {
		account.Roles = []string{}
	}

	_, err := s.accounts.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: account.UserID}},
		account,
		options.Replace().SetUpsert(true),
	)
	return mapError(err, nil)
}

func (s *Store) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	res, err := s.accounts.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, mapError(err, nil)
	}
	return res.DeletedCount > 0, nil
}

// updateAccount applies update to the account with id and fails with ErrAccountNotFound when none matched.
func (s *Store) updateAccount(ctx context.Context, id int64, update bson.D) error {
	res, err := s.accounts.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return mapError(err, nil)
	}
	if res.MatchedCount == 0 {
		return membership.ErrAccountNotFound
	}
	return nil
}

// ConvertToLocalAccount updates the account only while IsLocalAccount is false, so two concurrent
// conversions cannot both win.
func (s *Store) ConvertToLocalAccount(ctx context.Context, id int64, creds membership.LocalCredentials) error {
	set := bson.D{
		{Key: "IsLocalAccount", Value: true},
		{Key: "IsConfirmed", Value: creds.IsConfirmed},
		{Key: "Password", Value: creds.PasswordHash},
		{Key: "PasswordSalt", Value: creds.PasswordSalt},
		{Key: "PasswordChangedDate", Value: creds.ChangedAt},
		{Key: "PasswordFailuresSinceLastSuccess", Value: 0},
		{Key: "LastPasswordFailureDate", Value: nil},
	}
	if creds.ConfirmationToken != "" {
		set = append(set, bson.E{Key: "ConfirmationToken", Value: creds.ConfirmationToken})
	}
	if creds.ExtraData != "" {
		set = append(set, bson.E{Key: "ExtraData", Value: creds.ExtraData})
	}

	res, err := s.accounts.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "IsLocalAccount", Value: false},
		},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return mapError(err, nil)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	if _, err := s.AccountByID(ctx, id); err != nil {
		return err
	}
	return membership.ErrDuplicateUserName
}

func (s *Store) ConfirmAccount(ctx context.Context, id int64) error {
	return s.updateAccount(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "IsConfirmed", Value: true}}},
	})
}

func (s *Store) SetPassword(ctx context.Context, id int64, hash, salt string, at time.Time) error {
	return s.updateAccount(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "Password", Value: hash},
			{Key: "PasswordSalt", Value: salt},
			{Key: "PasswordChangedDate", Value: at},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "PasswordVerificationToken", Value: ""},
			{Key: "PasswordVerificationTokenExpirationDate", Value: ""},
		}},
	})
}

func (s *Store) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	return s.updateAccount(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "PasswordVerificationToken", Value: token},
			{Key: "PasswordVerificationTokenExpirationDate", Value: expiresAt},
		}},
	})
}

func (s *Store) RecordPasswordFailure(ctx context.Context, id int64, at time.Time) error {
	return s.updateAccount(ctx, id, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "PasswordFailuresSinceLastSuccess", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "LastPasswordFailureDate", Value: at}}},
	})
}

func (s *Store) RecordLoginSuccess(ctx context.Context, id int64, at time.Time) error {
	return s.updateAccount(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "PasswordFailuresSinceLastSuccess", Value: 0},
			{Key: "LastLoginDate", Value: at},
		}},
	})
}

func (s *Store) AddAccountRoles(ctx context.Context, id int64, roles []string) error {
	return s.updateAccount(ctx, id, bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "Roles", Value: bson.D{{Key: "$each", Value: roles}}}}},
	})
}

func (s *Store) RemoveAccountRoles(ctx context.Context, id int64, roles []string) error {
	return s.updateAccount(ctx, id, bson.D{
		{Key: "$pullAll", Value: bson.D{{Key: "Roles", Value: roles}}},
	})
}

func (s *Store) RemoveRoleFromAccounts(ctx context.Context, role string) (int64, error) {
	res, err := s.accounts.UpdateMany(ctx,
		bson.D{{Key: "Roles", Value: role}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "Roles", Value: role}}}},
	)
	if err != nil {
		return 0, mapError(err, nil)
	}
	return res.ModifiedCount, nil
}

var _ membership.AccountStorage = (*Store)(nil)
