package provider

import (
	"fmt"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
)

// ErrNotSupported is returned by framework operations the store does not implement.
var ErrNotSupported = fmt.Errorf("%w: use the membership engine instead", membership.ErrNotSupported)
