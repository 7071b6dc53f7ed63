package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Healthcheck returns a function that pings the server and checks that it accepts writes.
// Sequence counters are incremented in place, so a read-only replica is reported as unhealthy.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		role, err := client.Do(ctx, "ROLE").Slice()
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return checkRole(role)
	}
}

// checkRole inspects a ROLE reply, whose first element names the node role.
func checkRole(reply []any) error {
	if len(reply) == 0 {
		return fmt.Errorf("%w: empty ROLE reply", ErrHealthcheckFailed)
	}
	switch name, _ := reply[0].(string); name {
	case "master":
		return nil
	case "slave", "replica":
		return ErrReadOnlyReplica
	default:
		return fmt.Errorf("%w: unexpected role %q", ErrHealthcheckFailed, name)
	}
}
