package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerIsDisabled(t *testing.T) {
	var l *Locker
	assert.Nil(t, NewLocker(nil))

	_, ok, err := l.TryLock(context.Background(), "account:table:4", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotConfigured)

	release, err := l.Acquire(context.Background(), "account:table:4", time.Second, time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
	require.NotNil(t, release)
	assert.NotPanics(t, release)

	assert.NoError(t, l.Release(context.Background(), "account:table:4", "token"))
}
