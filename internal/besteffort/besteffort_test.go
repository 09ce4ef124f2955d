package besteffort

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSwallowsTransient(t *testing.T) {
	err := Run(zerolog.Nop(), "insert", func() error {
		return fmt.Errorf("insert row: %w", ErrUnavailable)
	})
	require.NoError(t, err)
}

func TestRunReturnsUnexpected(t *testing.T) {
	bug := errors.New("nil pointer somewhere")
	err := Run(zerolog.Nop(), "insert", func() error { return bug })
	require.ErrorIs(t, err, bug)
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(ErrUnavailable))
	assert.True(t, Transient(context.DeadlineExceeded))
	assert.True(t, Transient(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)))
	assert.False(t, Transient(errors.New("constraint violation")))
	assert.False(t, Transient(nil))
}
