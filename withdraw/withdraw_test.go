package withdraw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/store"
	"jstz.dev/kernel/tezos"
)

func newStorage(t *testing.T, outboxCap int) *kv.Storage {
	t.Helper()
	return kv.NewStorage(store.NewMemStore(), outboxCap)
}

var (
	source   = tezos.MustParseAddress("tz1LggX2HUdvJ1tF4Fvv8fjsrzLeW4Jr9t2Q")
	receiver = tezos.MustParseAddress("tz2VN9n2C56xGLykHCjhNvZQqUeTVisrHjxA")
	ticketer = tezos.MustParseAddress("KT1GyeRktoGPEKsWpchWguyy8FAf3aNHkw2T")
)

func TestExecuteFailsOnInsufficientFunds(t *testing.T) {
	s := newStorage(t, 16)

	tx := s.Begin()
	require.NoError(t, account.AddBalance(tx, source, 10))
	require.NoError(t, tx.Commit())

	tx = s.Begin()
	w := Withdrawal{Amount: 11, Receiver: receiver}
	err := Execute(tx, source, w, ticketer)
	require.Error(t, err)
	kind, ok := jstzerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, jstzerr.InsufficientFunds, kind)
	require.NoError(t, tx.Commit())

	tx = s.Begin()
	bal, err := account.Balance(tx, source)
	require.NoError(t, err)
	assert.Equal(t, account.Amount(10), bal)
	assert.Empty(t, s.Outbox())
}

func TestExecuteSucceeds(t *testing.T) {
	s := newStorage(t, 16)

	tx := s.Begin()
	require.NoError(t, account.AddBalance(tx, source, 10))
	require.NoError(t, tx.Commit())

	tx = s.Begin()
	w := Withdrawal{Amount: 10, Receiver: receiver}
	require.NoError(t, Execute(tx, source, w, ticketer))
	require.NoError(t, tx.Commit())

	require.Len(t, s.Outbox(), 1)
	assert.Equal(t, receiver.String(), s.Outbox()[0].Receiver)
	assert.Equal(t, "burn", s.Outbox()[0].Entrypoint)

	tx = s.Begin()
	bal, err := account.Balance(tx, source)
	require.NoError(t, err)
	assert.Equal(t, account.Amount(0), bal)
}

func TestExecuteFailsWhenOutboxFull(t *testing.T) {
	s := newStorage(t, 1)

	tx := s.Begin()
	require.NoError(t, account.AddBalance(tx, source, 10))
	require.NoError(t, tx.Commit())

	tx = s.Begin()
	w := Withdrawal{Amount: 1, Receiver: receiver}
	require.NoError(t, Execute(tx, source, w, ticketer))
	require.NoError(t, tx.Commit())
	require.Len(t, s.Outbox(), 1)

	// The level's outbox is now at capacity: a second withdrawal is
	// rejected by Execute itself, before ever touching tx, so the
	// per-message transaction it was dispatched under still commits
	// cleanly with no partial effect.
	tx = s.Begin()
	w = Withdrawal{Amount: 1, Receiver: receiver}
	err := Execute(tx, source, w, ticketer)
	require.Error(t, err)
	kind, ok := jstzerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, jstzerr.OutboxFull, kind)
	require.NoError(t, tx.Commit())

	require.Len(t, s.Outbox(), 1)

	tx = s.Begin()
	bal, err := account.Balance(tx, source)
	require.NoError(t, err)
	assert.Equal(t, account.Amount(9), bal)
}
