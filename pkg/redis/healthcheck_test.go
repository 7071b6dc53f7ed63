package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply []any
		want  error
	}{
		{"primary", []any{"master", int64(0), []any{}}, nil},
		{"replica", []any{"slave", "10.0.0.1", int64(6379), "connected", int64(0)}, ErrReadOnlyReplica},
		{"sentinel", []any{"sentinel", []any{}}, ErrHealthcheckFailed},
		{"empty", nil, ErrHealthcheckFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := checkRole(tt.reply)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
