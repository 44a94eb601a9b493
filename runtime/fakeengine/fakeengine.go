// Package fakeengine implements a deterministic, in-memory double of the
// C6 JS runtime adapter: "code" is not JavaScript but a small JSON
// script describing the response (and, optionally, one ledger transfer
// or one reentrant call) to produce. It exists only to drive the
// kernel's own tests end-to-end without depending on a concrete JS
// engine, the same role jstz_mock plays for the original's Rust tests.
package fakeengine

import (
	"context"
	"encoding/json"
	"net/http"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/runtime"
	"jstz.dev/kernel/tezos"
)

// Transfer describes a Ledger.transfer call a script performs before
// producing its response.
type Transfer struct {
	To     string         `json:"to"`
	Amount account.Amount `json:"amount"`
}

// Call describes a reentrant SmartFunction.call a script performs
// before producing its response; the nested call's own response is
// discarded, only whether it errored matters.
type Call struct {
	Target string `json:"target"`
}

// Script is the fake engine's entire "program": what Invoke does, in
// the order fail → transfer → call → respond.
type Script struct {
	// Fail, if set, names a jstzerr.Kind the invocation fails with
	// immediately, modeling an uncaught JS exception.
	Fail string `json:"fail,omitempty"`

	Transfer *Transfer `json:"transfer,omitempty"`
	Call     *Call     `json:"call,omitempty"`

	Status  int                 `json:"status"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    []byte              `json:"body,omitempty"`

	// EchoBody, if true, ignores Body and returns the incoming
	// request's body instead — handy for round-trip tests.
	EchoBody bool `json:"echo_body,omitempty"`
}

// Engine is the fake runtime.Engine: it decodes code as a Script and
// executes it against host.
type Engine struct{}

// New returns a ready-to-use fake Engine.
func New() *Engine { return &Engine{} }

func (e *Engine) Invoke(ctx context.Context, code []byte, req runtime.Request, host runtime.HostAPI) (runtime.Response, error) {
	var script Script
	if err := json.Unmarshal(code, &script); err != nil {
		return runtime.Response{}, jstzerr.New(jstzerr.InvalidCode, "fake engine: code is not a valid script: %v", err)
	}

	if script.Fail != "" {
		return runtime.Response{}, jstzerr.New(jstzerr.Kind(script.Fail), "fake engine: scripted failure")
	}

	if script.Transfer != nil {
		dst, err := tezos.ParseAddress(script.Transfer.To)
		if err != nil {
			return runtime.Response{}, jstzerr.New(jstzerr.InvalidAddress, "fake engine: invalid transfer target %q: %v", script.Transfer.To, err)
		}
		if err := account.Transfer(host.Transaction(), host.SelfAddress(), dst, script.Transfer.Amount); err != nil {
			return runtime.Response{}, err
		}
	}

	if script.Call != nil {
		target, err := tezos.ParseAddress(script.Call.Target)
		if err != nil {
			return runtime.Response{}, jstzerr.New(jstzerr.InvalidAddress, "fake engine: invalid call target %q: %v", script.Call.Target, err)
		}
		if _, err := host.Call(ctx, target, runtime.Request{Method: "GET"}); err != nil {
			return runtime.Response{}, err
		}
	}

	status := script.Status
	if status == 0 {
		status = http.StatusOK
	}
	body := script.Body
	if script.EchoBody {
		body = req.Body
	}
	headers := http.Header{}
	for k, vs := range script.Headers {
		headers[k] = vs
	}
	return runtime.Response{StatusCode: status, Headers: headers, Body: body}, nil
}
