package redis

import (
	"errors"
	"fmt"
)

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrReadOnlyReplica              = fmt.Errorf("%w: node is a read-only replica", ErrHealthcheckFailed)
)
