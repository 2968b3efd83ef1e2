package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnavailableError(t *testing.T) {
	cause := context.DeadlineExceeded
	err := Unavailable("recent", cause)

	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualError(t, err, "storage unavailable: recent: context deadline exceeded")

	var ue *UnavailableError
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &ue))
	require.Equal(t, "recent", ue.Op)

	require.NotErrorIs(t, errors.New("other"), ErrUnavailable)
}
