package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/store"
	"jstz.dev/kernel/tezos"
)

func newStorage(t *testing.T) *kv.Storage {
	t.Helper()
	return kv.NewStorage(store.NewMemStore(), 16)
}

var (
	addrA = tezos.MustParseAddress("tz1LggX2HUdvJ1tF4Fvv8fjsrzLeW4Jr9t2Q")
	addrB = tezos.MustParseAddress("tz2VN9n2C56xGLykHCjhNvZQqUeTVisrHjxA")
)

func TestZeroBalanceForNewAccount(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	bal, err := Balance(tx, addrA)
	require.NoError(t, err)
	assert.Equal(t, Amount(0), bal)

	nonce, err := Nonce(tx, addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
}

func TestAddSubBalance(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	require.NoError(t, AddBalance(tx, addrA, 100))
	bal, err := Balance(tx, addrA)
	require.NoError(t, err)
	assert.Equal(t, Amount(100), bal)

	require.NoError(t, SubBalance(tx, addrA, 40))
	bal, err = Balance(tx, addrA)
	require.NoError(t, err)
	assert.Equal(t, Amount(60), bal)

	err = SubBalance(tx, addrA, 1000)
	kind, ok := jstzerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, jstzerr.InsufficientFunds, kind)
}

func TestBalanceOverflow(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	require.NoError(t, AddBalance(tx, addrA, ^uint64(0)))
	err := AddBalance(tx, addrA, 1)
	kind, ok := jstzerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, jstzerr.BalanceOverflow, kind)
}

func TestTransfer(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	require.NoError(t, AddBalance(tx, addrA, 100))
	require.NoError(t, Transfer(tx, addrA, addrB, 40))

	balA, err := Balance(tx, addrA)
	require.NoError(t, err)
	assert.Equal(t, Amount(60), balA)

	balB, err := Balance(tx, addrB)
	require.NoError(t, err)
	assert.Equal(t, Amount(40), balB)
}

func TestTransferInsufficientFundsRollsBack(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	require.NoError(t, AddBalance(tx, addrA, 10))
	err := Transfer(tx, addrA, addrB, 100)
	require.Error(t, err)

	balA, err := Balance(tx, addrA)
	require.NoError(t, err)
	assert.Equal(t, Amount(10), balA)

	balB, err := Balance(tx, addrB)
	require.NoError(t, err)
	assert.Equal(t, Amount(0), balB)
}

func TestIncrementNonce(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	require.NoError(t, IncrementNonce(tx, addrA))
	require.NoError(t, IncrementNonce(tx, addrA))

	n, err := Nonce(tx, addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestCreateSmartFunction(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	code := []byte("export default (req) => new Response('hi');")
	require.NoError(t, AddBalance(tx, addrA, 100))

	target, err := CreateSmartFunction(tx, addrA, 0, code, 30)
	require.NoError(t, err)
	assert.True(t, target.IsContract())

	gotCode, err := FunctionCode(tx, target)
	require.NoError(t, err)
	assert.Equal(t, code, gotCode)

	balTarget, err := Balance(tx, target)
	require.NoError(t, err)
	assert.Equal(t, Amount(30), balTarget)

	balSource, err := Balance(tx, addrA)
	require.NoError(t, err)
	assert.Equal(t, Amount(70), balSource)
}

func TestCreateSmartFunctionAlreadyExists(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	code := []byte("export default (req) => new Response('hi');")
	_, err := CreateSmartFunction(tx, addrA, 0, code, 0)
	require.NoError(t, err)

	_, err = CreateSmartFunction(tx, addrA, 0, code, 0)
	kind, ok := jstzerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, jstzerr.AccountExists, kind)
}

func TestTicketBalances(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()

	th := tezos.Hash{Type: tezos.HashTypePkhEd25519, Hash: make([]byte, 20)}

	require.NoError(t, AddTicket(tx, addrA, th, 50))
	bal, err := TicketBalance(tx, addrA, th)
	require.NoError(t, err)
	assert.Equal(t, Amount(50), bal)

	require.NoError(t, TransferTicket(tx, addrA, addrB, th, 20))

	balA, err := TicketBalance(tx, addrA, th)
	require.NoError(t, err)
	assert.Equal(t, Amount(30), balA)

	balB, err := TicketBalance(tx, addrB, th)
	require.NoError(t, err)
	assert.Equal(t, Amount(20), balB)

	err = SubTicket(tx, addrA, th, 1000)
	kind, ok := jstzerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, jstzerr.InsufficientFunds, kind)
}
