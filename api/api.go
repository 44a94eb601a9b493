// Package api implements the host API surface (C7): the capability
// objects a smart function's realm is given access to, each closed over
// the currently executing function's address and the open transaction.
// No global mutable state is reachable from JS — every capability is
// reached only through a Runtime value built fresh per invocation.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/runtime"
	"jstz.dev/kernel/tezos"
)

// MaxCallDepth bounds reentrant SmartFunction.call/fetch chains, per
// C7's stack-exhaustion guard.
const MaxCallDepth = 20

const kvPrefix = "/jstz_kv"
const consoleLogPrefix = "[JSTZ:SMART_FUNCTION:LOG]"

// CodeLoader loads the installed code for addr, as account.FunctionCode
// does; factored out so Runtime doesn't import an engine.
type CodeLoader func(tx *kv.Transaction, addr tezos.Address) ([]byte, error)

// DebugWriter is the rollup host's raw debug-log sink.
type DebugWriter interface {
	WriteDebug(line string)
}

// Runtime is the concrete runtime.HostAPI built fresh for each
// RunFunction/SmartFunction.call invocation. It is both the capability
// closure engines are handed and the home for the Ledger/Kv/
// SmartFunction/Console capability objects bound to it.
type Runtime struct {
	self       tezos.Address
	tx         *kv.Transaction
	debug      DebugWriter
	depth      int
	requestID  string
	engine     runtime.Engine
	loadCode   CodeLoader
}

// New builds the top-level Runtime for an externally-triggered
// RunFunction call.
func New(self tezos.Address, tx *kv.Transaction, debug DebugWriter, requestID string, engine runtime.Engine, loadCode CodeLoader) *Runtime {
	return &Runtime{self: self, tx: tx, debug: debug, requestID: requestID, engine: engine, loadCode: loadCode}
}

func (r *Runtime) SelfAddress() tezos.Address    { return r.self }
func (r *Runtime) Transaction() *kv.Transaction  { return r.tx }
func (r *Runtime) Depth() int                    { return r.depth }
func (r *Runtime) WriteDebug(line string) {
	if r.debug != nil {
		r.debug.WriteDebug(line)
	}
}

// child builds the nested Runtime a reentrant Call runs under: one call
// depth deeper, addressed at target, transacting in a child of tx.
func (r *Runtime) child(target tezos.Address, tx *kv.Transaction) *Runtime {
	return &Runtime{
		self:      target,
		tx:        tx,
		debug:     r.debug,
		depth:     r.depth + 1,
		requestID: r.requestID,
		engine:    r.engine,
		loadCode:  r.loadCode,
	}
}

// Call performs a reentrant invocation of target with req, per C7's
// SmartFunction.call/fetch policy: the referrer is forced to the
// caller's own address, the call runs in a child transaction committed
// only on success, and depth is bounded by MaxCallDepth.
func (r *Runtime) Call(ctx context.Context, target tezos.Address, req runtime.Request) (runtime.Response, error) {
	if r.depth+1 >= MaxCallDepth {
		return runtime.Response{}, jstzerr.New(jstzerr.CallDepthExceeded, "call depth %d exceeds maximum %d", r.depth+1, MaxCallDepth)
	}
	req.Referrer = r.self

	code, err := r.loadCode(r.tx, target)
	if err != nil {
		return runtime.Response{}, err
	}

	child := r.tx.EnterChild()
	nested := r.child(target, child)

	resp, err := r.engine.Invoke(ctx, code, req, nested)
	if err != nil {
		child.Rollback()
		return runtime.Response{}, err
	}
	if err := child.Commit(); err != nil {
		return runtime.Response{}, err
	}
	return resp, nil
}

// Ledger is the capability object exposing C3's account balance/transfer
// operations scoped to the currently executing function.
type Ledger struct{ rt *Runtime }

// NewLedger binds a Ledger capability to rt.
func NewLedger(rt *Runtime) *Ledger { return &Ledger{rt: rt} }

// SelfAddress returns the currently executing function's own address.
func (l *Ledger) SelfAddress() tezos.Address { return l.rt.self }

// Balance reads addr's XTZ balance.
func (l *Ledger) Balance(addr tezos.Address) (account.Amount, error) {
	return account.Balance(l.rt.tx, addr)
}

// Transfer moves amount from the executing function to dst, wrapped in
// its own child transaction so a failure leaves no partial effect.
func (l *Ledger) Transfer(dst tezos.Address, amount account.Amount) error {
	return account.Transfer(l.rt.tx, l.rt.self, dst, amount)
}

// Kv is the capability object exposing a smart function's private
// key-value namespace, rooted at /jstz_kv/<selfAddress>/.
type Kv struct{ rt *Runtime }

// NewKv binds a Kv capability to rt.
func NewKv(rt *Runtime) *Kv { return &Kv{rt: rt} }

func (k *Kv) path(key string) string {
	return fmt.Sprintf("%s/%s/%s", kvPrefix, k.rt.self, strings.TrimPrefix(key, "/"))
}

// Get reads the JSON value stored at key, if any.
func (k *Kv) Get(key string) (json.RawMessage, bool, error) {
	raw, ok, err := k.rt.tx.Get(k.path(key))
	if err != nil || !ok {
		return nil, ok, err
	}
	return json.RawMessage(raw), true, nil
}

// Set stores value (already-encoded JSON) at key.
func (k *Kv) Set(key string, value json.RawMessage) {
	k.rt.tx.Insert(k.path(key), value)
}

// Delete removes key.
func (k *Kv) Delete(key string) {
	k.rt.tx.Remove(k.path(key))
}

// Has reports whether key currently holds a value.
func (k *Kv) Has(key string) (bool, error) {
	return k.rt.tx.ContainsKey(k.path(key))
}

// SmartFunction is the capability object exposing C3's deployment
// operation and C7's reentrant call/fetch.
type SmartFunction struct{ rt *Runtime }

// NewSmartFunction binds a SmartFunction capability to rt.
func NewSmartFunction(rt *Runtime) *SmartFunction { return &SmartFunction{rt: rt} }

// Create deploys code as a new smart function owned by the executing
// function, crediting it with credit.
func (s *SmartFunction) Create(code []byte, credit account.Amount) (tezos.Address, error) {
	nonce, err := account.Nonce(s.rt.tx, s.rt.self)
	if err != nil {
		return tezos.Address{}, err
	}
	return account.CreateSmartFunction(s.rt.tx, s.rt.self, nonce, code, credit)
}

// Call performs a reentrant call to target, equivalent to fetch against
// "jstz://<target>/...".
func (s *SmartFunction) Call(ctx context.Context, target tezos.Address, req runtime.Request) (runtime.Response, error) {
	return s.rt.Call(ctx, target, req)
}

// Fetch resolves url's host as a smart function address and performs a
// reentrant call to it with the remainder of the request.
func (s *SmartFunction) Fetch(ctx context.Context, url string, req runtime.Request) (runtime.Response, error) {
	const scheme = "jstz://"
	if !strings.HasPrefix(url, scheme) {
		return runtime.Response{}, jstzerr.New(jstzerr.InvalidResponse, "fetch: unsupported scheme in %q", url)
	}
	rest := strings.TrimPrefix(url, scheme)
	host, _, _ := strings.Cut(rest, "/")
	target, err := tezos.ParseAddress(host)
	if err != nil {
		return runtime.Response{}, jstzerr.New(jstzerr.InvalidAddress, "fetch: invalid target address %q: %v", host, err)
	}
	req.URL = url
	return s.rt.Call(ctx, target, req)
}

// LogRecord is one structured console log entry.
type LogRecord struct {
	Address   tezos.Address `json:"address"`
	RequestID string        `json:"request_id"`
	Level     string        `json:"level"`
	Text      string        `json:"text"`
}

// Console is the capability object emitting structured debug-log lines
// on behalf of the executing function.
type Console struct{ rt *Runtime }

// NewConsole binds a Console capability to rt.
func NewConsole(rt *Runtime) *Console { return &Console{rt: rt} }

// Log emits one LogRecord at level, prefixed "[JSTZ:SMART_FUNCTION:LOG]".
func (c *Console) Log(level, text string) error {
	rec := LogRecord{Address: c.rt.self, RequestID: c.rt.requestID, Level: level, Text: text}
	raw, err := json.Marshal(rec)
	if err != nil {
		return jstzerr.New(jstzerr.StoreError, "encoding log record: %v", err)
	}
	c.rt.WriteDebug(consoleLogPrefix + string(raw))
	return nil
}

// ReservedRoute reports whether path matches one of C7's host-handled
// reserved prefixes, served by the kernel itself without loading user
// code.
func ReservedRoute(path string) bool {
	return strings.HasPrefix(path, "/balances/") || path == "/withdraw"
}

// HandleReserved serves a reserved route. Today it covers the read-only
// balance lookup; /withdraw is handled by validate's dispatch directly
// since it requires a signed Withdraw operation, not a bare fetch.
func HandleReserved(tx *kv.Transaction, req runtime.Request) (runtime.Response, error) {
	if !strings.HasPrefix(req.URL, "/balances/") && !strings.Contains(req.URL, "/balances/") {
		return runtime.Response{}, jstzerr.New(jstzerr.InvalidResponse, "unhandled reserved route %q", req.URL)
	}
	idx := strings.LastIndex(req.URL, "/balances/")
	addrStr := strings.TrimSuffix(req.URL[idx+len("/balances/"):], "/")
	addr, err := tezos.ParseAddress(addrStr)
	if err != nil {
		return runtime.Response{}, jstzerr.New(jstzerr.InvalidAddress, "invalid address %q: %v", addrStr, err)
	}
	bal, err := account.Balance(tx, addr)
	if err != nil {
		return runtime.Response{}, err
	}
	body, _ := json.Marshal(map[string]uint64{"balance": bal})
	return runtime.Response{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"application/json"}},
		Body:       body,
	}, nil
}
