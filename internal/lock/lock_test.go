package lock

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/netinventory/internal/core"
)

func newMockLocker() (*Locker, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	l := New(db, "netinventory:import")
	l.value = "holder-1"
	return l, mock
}

func TestLocker_Lock(t *testing.T) {
	l, mock := newMockLocker()
	mock.ExpectSetNX("netinventory:import", "holder-1", time.Minute).SetVal(true)

	require.NoError(t, l.Lock(context.Background(), time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_LockHeldElsewhere(t *testing.T) {
	l, mock := newMockLocker()
	mock.ExpectSetNX("netinventory:import", "holder-1", time.Minute).SetVal(false)

	err := l.Lock(context.Background(), time.Minute)
	assert.ErrorIs(t, err, core.ErrImportInProgress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock(t *testing.T) {
	l, mock := newMockLocker()
	mock.ExpectEval(unlockScript, []string{"netinventory:import"}, "holder-1").SetVal(int64(1))
	require.NoError(t, l.Unlock(context.Background()))

	mock.ExpectEval(unlockScript, []string{"netinventory:import"}, "holder-1").SetVal(int64(0))
	assert.ErrorContains(t, l.Unlock(context.Background()), "not held")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_UniqueValues(t *testing.T) {
	db, _ := redismock.NewClientMock()
	assert.NotEqual(t, New(db, "k").value, New(db, "k").value)
	assert.Equal(t, "k", New(db, "k").Key())
}
