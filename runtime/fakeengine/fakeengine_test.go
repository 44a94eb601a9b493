package fakeengine

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/runtime"
	"jstz.dev/kernel/store"
	"jstz.dev/kernel/tezos"
)

var self = tezos.MustParseAddress("KT1GyeRktoGPEKsWpchWguyy8FAf3aNHkw2T")

type stubHost struct {
	self  tezos.Address
	tx    *kv.Transaction
	calls []tezos.Address
}

func (h *stubHost) SelfAddress() tezos.Address   { return h.self }
func (h *stubHost) Transaction() *kv.Transaction { return h.tx }
func (h *stubHost) Depth() int                   { return 0 }
func (h *stubHost) WriteDebug(string)            {}
func (h *stubHost) Call(ctx context.Context, target tezos.Address, req runtime.Request) (runtime.Response, error) {
	h.calls = append(h.calls, target)
	return runtime.Response{StatusCode: http.StatusOK}, nil
}

func newHost(t *testing.T) *stubHost {
	t.Helper()
	s := kv.NewStorage(store.NewMemStore(), 16)
	return &stubHost{self: self, tx: s.Begin()}
}

func TestInvokeReturnsScriptedResponse(t *testing.T) {
	e := New()
	script, _ := json.Marshal(Script{Status: 201, Body: []byte("hello")})
	host := newHost(t)

	resp, err := e.Invoke(context.Background(), script, runtime.Request{}, host)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, []byte("hello"), resp.Body)
}

func TestInvokeEchoesBody(t *testing.T) {
	e := New()
	script, _ := json.Marshal(Script{EchoBody: true})
	host := newHost(t)

	resp, err := e.Invoke(context.Background(), script, runtime.Request{Body: []byte("ping")}, host)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), resp.Body)
}

func TestInvokeScriptedFailure(t *testing.T) {
	e := New()
	script, _ := json.Marshal(Script{Fail: string(jstzerr.JsUncaught)})
	host := newHost(t)

	_, err := e.Invoke(context.Background(), script, runtime.Request{}, host)
	kind, ok := jstzerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, jstzerr.JsUncaught, kind)
}

func TestInvokePerformsTransfer(t *testing.T) {
	e := New()
	dst := tezos.MustParseAddress("tz1LggX2HUdvJ1tF4Fvv8fjsrzLeW4Jr9t2Q")
	host := newHost(t)
	require.NoError(t, account.AddBalance(host.tx, self, 100))

	script, _ := json.Marshal(Script{Transfer: &Transfer{To: dst.String(), Amount: 40}})
	_, err := e.Invoke(context.Background(), script, runtime.Request{}, host)
	require.NoError(t, err)

	bal, err := account.Balance(host.tx, dst)
	require.NoError(t, err)
	assert.Equal(t, account.Amount(40), bal)

	selfBal, err := account.Balance(host.tx, self)
	require.NoError(t, err)
	assert.Equal(t, account.Amount(60), selfBal)
}

func TestInvokePerformsReentrantCall(t *testing.T) {
	e := New()
	target := tezos.MustParseAddress("KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton")
	host := newHost(t)

	script, _ := json.Marshal(Script{Call: &Call{Target: target.String()}})
	_, err := e.Invoke(context.Background(), script, runtime.Request{}, host)
	require.NoError(t, err)
	require.Len(t, host.calls, 1)
	assert.True(t, host.calls[0].Equal(target))
}
