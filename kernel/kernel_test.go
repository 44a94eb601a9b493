package kernel

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/inbox"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/operation"
	"jstz.dev/kernel/receipt"
	"jstz.dev/kernel/runtime/fakeengine"
	"jstz.dev/kernel/store"
	"jstz.dev/kernel/tezos"
)

var (
	ticketer      = tezos.MustParseAddress("KT1GyeRktoGPEKsWpchWguyy8FAf3aNHkw2T")
	injector      = tezos.MustParseKey("edpkukK9ecWxib28zi52nvbXTdsYt8rYcvmt5bdH8KjipWXm8sH3Qi")
	rollupAddress = tezos.MustParseAddress("KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton")
)

// fakeHost is a test double for Host: it replays a fixed queue of raw
// inbox messages and captures every WriteDebug line.
type fakeHost struct {
	queue  []inbox.RawMessage
	pos    int
	lines  []string
	reboot int
}

func (h *fakeHost) ReadInput() (inbox.RawMessage, bool, error) {
	if h.pos >= len(h.queue) {
		return inbox.RawMessage{}, false, nil
	}
	m := h.queue[h.pos]
	h.pos++
	return m, true, nil
}

func (h *fakeHost) WriteDebug(line string) { h.lines = append(h.lines, line) }
func (h *fakeHost) MarkForReboot()         { h.reboot++ }

func newStorage(t *testing.T) *kv.Storage {
	t.Helper()
	s := kv.NewStorage(store.NewMemStore(), 16)
	tx := s.Begin()
	tx.Insert(ticketerPath, []byte(ticketer.String()))
	tx.Insert(injectorPath, []byte(injector.String()))
	tx.Insert(rollupAddressPath, []byte(rollupAddress.String()))
	require.NoError(t, tx.Commit())
	return s
}

func depositPayload(receiver tezos.Address, amount uint64) []byte {
	creator, err := ticketer.MarshalBinary()
	if err != nil {
		panic(err)
	}
	dest, err := rollupAddress.MarshalBinary()
	if err != nil {
		panic(err)
	}
	recv, err := receiver.MarshalBinary()
	if err != nil {
		panic(err)
	}
	body := make([]byte, 0, 1+len(creator)+len(dest)+8+len(recv))
	body = append(body, tagDepositTag())
	body = append(body, creator...)
	body = append(body, dest...)
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], amount)
	body = append(body, amt[:]...)
	body = append(body, recv...)
	return body
}

// tagDepositTag mirrors inbox's unexported tagDeposit constant (3), kept
// local since the tag layout is inbox's own internal wire format.
func tagDepositTag() byte { return 3 }

func externalPayload(t *testing.T, signed operation.SignedOperation) []byte {
	t.Helper()
	raw, err := json.Marshal(signed)
	require.NoError(t, err)
	return raw
}

func sign(t *testing.T, sk tezos.PrivateKey, op operation.Operation) operation.SignedOperation {
	t.Helper()
	h := op.Hash()
	sig, err := sk.Sign(h[:])
	require.NoError(t, err)
	return operation.SignedOperation{PublicKey: sk.Public(), Signature: sig, Inner: op}
}

func TestRunAppliesDeposit(t *testing.T) {
	s := newStorage(t)
	_, receiver := newTestAccount(t)

	host := &fakeHost{queue: []inbox.RawMessage{
		{Level: 1, ID: 0, Kind: inbox.FrameInternal, Payload: depositPayload(receiver, 100)},
	}}

	Run(context.Background(), host, s, Config{Engine: fakeengine.New()})

	tx := s.Begin()
	bal, err := account.Balance(tx, receiver)
	require.NoError(t, err)
	assert.Equal(t, account.Amount(100), bal)
	assert.Equal(t, 1, host.reboot)
}

func TestRunExecutesExternalOperationAndWritesReceipt(t *testing.T) {
	s := newStorage(t)
	sk, source := newTestAccount(t)

	op := operation.Operation{
		Source: source,
		Nonce:  0,
		Content: operation.Content{DeployFunction: &operation.DeployFunction{
			FunctionCode: []byte(`{"status":200}`),
		}},
	}
	signed := sign(t, sk, op)

	host := &fakeHost{queue: []inbox.RawMessage{
		{Level: 1, ID: 0, Kind: inbox.FrameExternal, Payload: externalPayload(t, signed)},
	}}

	Run(context.Background(), host, s, Config{Engine: fakeengine.New()})

	tx := s.Begin()
	nonce, err := account.Nonce(tx, source)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)

	r, ok, err := receipt.Read(tx, signed.Hash())
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, r.Result)
	require.NotNil(t, r.Result.DeployFunction)

	require.NotEmpty(t, host.lines)
}

func TestRunDiscardsMalformedExternalMessage(t *testing.T) {
	s := newStorage(t)

	host := &fakeHost{queue: []inbox.RawMessage{
		{Level: 1, ID: 0, Kind: inbox.FrameExternal, Payload: []byte("not json")},
		{Level: 1, ID: 1, Kind: inbox.FrameInternal, Payload: nil},
	}}

	assert.NotPanics(t, func() {
		Run(context.Background(), host, s, Config{Engine: fakeengine.New()})
	})
}

func newTestAccount(t *testing.T) (tezos.PrivateKey, tezos.Address) {
	t.Helper()
	sk, err := tezos.GenerateKey(tezos.KeyTypeEd25519)
	require.NoError(t, err)
	return sk, sk.Public().Address()
}
