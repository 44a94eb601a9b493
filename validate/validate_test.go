package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/operation"
	"jstz.dev/kernel/runtime/fakeengine"
	"jstz.dev/kernel/store"
	"jstz.dev/kernel/tezos"
)

func newStorage(t *testing.T) *kv.Storage {
	t.Helper()
	return kv.NewStorage(store.NewMemStore(), 16)
}

var ticketer = tezos.MustParseAddress("KT1GyeRktoGPEKsWpchWguyy8FAf3aNHkw2T")
var injector = tezos.MustParseKey("edpkukK9ecWxib28zi52nvbXTdsYt8rYcvmt5bdH8KjipWXm8sH3Qi")

func sign(t *testing.T, sk tezos.PrivateKey, op operation.Operation) operation.SignedOperation {
	t.Helper()
	h := op.Hash()
	sig, err := sk.Sign(h[:])
	require.NoError(t, err)
	return operation.SignedOperation{PublicKey: sk.Public(), Signature: sig, Inner: op}
}

func newAccount(t *testing.T) (tezos.PrivateKey, tezos.Address) {
	t.Helper()
	sk, err := tezos.GenerateKey(tezos.KeyTypeEd25519)
	require.NoError(t, err)
	return sk, sk.Public().Address()
}

func TestExecuteDeployFunction(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()
	sk, source := newAccount(t)

	op := operation.Operation{
		Source: source,
		Nonce:  0,
		Content: operation.Content{DeployFunction: &operation.DeployFunction{
			FunctionCode:  []byte(`{"status":200}`),
			AccountCredit: 0,
		}},
	}
	signed := sign(t, sk, op)

	r := Execute(context.Background(), tx, signed, ticketer, injector, fakeengine.New(), nil, "req-1")
	require.NotNil(t, r.Result)
	require.NotNil(t, r.Result.DeployFunction)
	assert.False(t, r.Result.DeployFunction.Address.IsEOA())

	nonce, err := account.Nonce(tx, source)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
}

func TestExecuteRejectsBadSignature(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()
	_, source := newAccount(t)
	other, _ := tezos.GenerateKey(tezos.KeyTypeEd25519)

	op := operation.Operation{Source: source, Nonce: 0, Content: operation.Content{Withdraw: &operation.Withdraw{Amount: 1, Receiver: source}}}
	signed := sign(t, other, op)

	r := Execute(context.Background(), tx, signed, ticketer, injector, fakeengine.New(), nil, "req")
	require.NotNil(t, r.Err)
	assert.Equal(t, jstzerr.InvalidSignature, r.Err.Kind)
}

func TestExecuteRejectsBadNonce(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()
	sk, source := newAccount(t)

	op := operation.Operation{Source: source, Nonce: 5, Content: operation.Content{Withdraw: &operation.Withdraw{Amount: 1, Receiver: source}}}
	signed := sign(t, sk, op)

	r := Execute(context.Background(), tx, signed, ticketer, injector, fakeengine.New(), nil, "req")
	require.NotNil(t, r.Err)
	assert.Equal(t, jstzerr.InvalidNonce, r.Err.Kind)
}

func TestExecuteRunFunctionInvokesDeployedCode(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()
	sk, source := newAccount(t)

	deploy := operation.Operation{
		Source: source,
		Nonce:  0,
		Content: operation.Content{DeployFunction: &operation.DeployFunction{
			FunctionCode: []byte(`{"status":201,"body":"aGVsbG8="}`),
		}},
	}
	r := Execute(context.Background(), tx, sign(t, sk, deploy), ticketer, injector, fakeengine.New(), nil, "req-1")
	require.NotNil(t, r.Result)
	target := r.Result.DeployFunction.Address

	run := operation.Operation{
		Source: source,
		Nonce:  1,
		Content: operation.Content{RunFunction: &operation.RunFunction{
			URI:    "jstz://" + target.String() + "/",
			Method: "GET",
		}},
	}
	r2 := Execute(context.Background(), tx, sign(t, sk, run), ticketer, injector, fakeengine.New(), nil, "req-2")
	require.Nil(t, r2.Err)
	require.NotNil(t, r2.Result.RunFunction)
	assert.Equal(t, 201, r2.Result.RunFunction.StatusCode)
}

func TestExecuteRunFunctionMissingCodeFails(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()
	sk, source := newAccount(t)
	missing := tezos.MustParseAddress("KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton")

	run := operation.Operation{
		Source:  source,
		Nonce:   0,
		Content: operation.Content{RunFunction: &operation.RunFunction{URI: "jstz://" + missing.String() + "/"}},
	}
	r := Execute(context.Background(), tx, sign(t, sk, run), ticketer, injector, fakeengine.New(), nil, "req")
	require.NotNil(t, r.Err)
	assert.Equal(t, jstzerr.InvalidCode, r.Err.Kind)
}

func TestExecuteWithdrawSucceeds(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()
	sk, source := newAccount(t)
	require.NoError(t, account.AddBalance(tx, source, 100))

	op := operation.Operation{
		Source:  source,
		Nonce:   0,
		Content: operation.Content{Withdraw: &operation.Withdraw{Amount: 50, Receiver: source}},
	}
	r := Execute(context.Background(), tx, sign(t, sk, op), ticketer, injector, fakeengine.New(), nil, "req")
	require.Nil(t, r.Err)
	require.NotNil(t, r.Result.Withdraw)
	require.NoError(t, tx.Commit())

	require.Len(t, s.Outbox(), 1)
}

func TestExecuteWithdrawInsufficientFundsStillIncrementsNonce(t *testing.T) {
	s := newStorage(t)
	tx := s.Begin()
	sk, source := newAccount(t)

	op := operation.Operation{
		Source:  source,
		Nonce:   0,
		Content: operation.Content{Withdraw: &operation.Withdraw{Amount: 50, Receiver: source}},
	}
	r := Execute(context.Background(), tx, sign(t, sk, op), ticketer, injector, fakeengine.New(), nil, "req")
	require.NotNil(t, r.Err)
	assert.Equal(t, jstzerr.InsufficientFunds, r.Err.Kind)

	nonce, err := account.Nonce(tx, source)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
}
