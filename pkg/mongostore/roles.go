package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
)

func (s *Store) findRoles(ctx context.Context, filter bson.D) ([]membership.Role, error) {
	cursor, err := s.roles.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "RoleName", Value: 1}}))
	if err != nil {
		return nil, mapError(err, nil)
	}
	defer cursor.Close(ctx)

	out := []membership.Role{}
	for cursor.Next(ctx) {
		var role membership.Role
		if err := cursor.Decode(&role); err != nil {
			return nil, corrupt(s.cfg.RolesCollection, err)
		}
		out = append(out, role)
	}
	if err := cursor.Err(); err != nil {
		return nil, mapError(err, nil)
	}
	return out, nil
}

func (s *Store) RoleByName(ctx context.Context, name string) (*membership.Role, error) {
	res := s.roles.FindOne(ctx, bson.D{{Key: "RoleName", Value: name}})
	if err := res.Err(); err != nil {
		return nil, mapError(err, membership.ErrRoleNotFound)
	}

	var role membership.Role
	if err := res.Decode(&role); err != nil {
		return nil, corrupt(s.cfg.RolesCollection, err)
	}
	return &role, nil
}

func (s *Store) RolesByNames(ctx context.Context, names []string) ([]membership.Role, error) {
	return s.findRoles(ctx, bson.D{{Key: "RoleName", Value: bson.D{{Key: "$in", Value: names}}}})
}

func (s *Store) ListRoles(ctx context.Context) ([]membership.Role, error) {
	return s.findRoles(ctx, bson.D{})
}

func (s *Store) UpsertRole(ctx context.Context, role *membership.Role) error {
	if role.RoleID == 0 {
		id, err := s.nextID(ctx, s.roles)
		if err != nil {
			return err
		}
		role.RoleID = id
	}

	_, err := s.roles.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: role.RoleID}},
		role,
		options.Replace().SetUpsert(true),
	)
	return mapError(err, nil)
}

func (s *Store) DeleteRole(ctx context.Context, id int64) (bool, error) {
	res, err := s.roles.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, mapError(err, nil)
	}
	return res.DeletedCount > 0, nil
}

var _ membership.RoleStorage = (*Store)(nil)
