// Package validate implements the operation validator and dispatcher
// (C5): the single entry point that turns one verified, nonce-checked
// SignedOperation into a Receipt, routing by its Content variant to the
// deploy, run, or withdraw executors.
package validate

import (
	"context"
	"net/http"
	"strings"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/api"
	"jstz.dev/kernel/internal/jlog"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/operation"
	"jstz.dev/kernel/receipt"
	"jstz.dev/kernel/runtime"
	"jstz.dev/kernel/tezos"
	"jstz.dev/kernel/withdraw"
)

// DebugWriter is the rollup host's raw debug-log sink, shared by the
// receipt emitter and the smart function's own Console output.
type DebugWriter interface {
	WriteDebug(line string)
}

// Execute verifies and dispatches signed, producing its Receipt. The
// caller is responsible for persisting the receipt (receipt.Write) and
// committing tx afterward: per §4.5, the outer per-message transaction
// commits regardless of whether the operation itself succeeded, so that
// the nonce increment and the receipt both persist even on failure.
//
// injector is the public key authorized to inject admin-only operations;
// it is accepted for signature parity with the kernel's dispatch entry
// point but unused today, since none of DeployFunction/RunFunction/
// Withdraw is admin-restricted.
func Execute(ctx context.Context, tx *kv.Transaction, signed operation.SignedOperation, ticketer tezos.Address, injector tezos.Key, engine runtime.Engine, debug DebugWriter, requestID string) receipt.Receipt {
	_ = injector
	hash := signed.Hash()

	op, err := signed.Verify()
	if err != nil {
		jlog.Infof("validate: rejecting %s: %v", hash, err)
		return receipt.Fail(hash, err)
	}

	current, err := account.Nonce(tx, op.Source)
	if err != nil {
		return receipt.Fail(hash, err)
	}
	if current != op.Nonce {
		return receipt.Fail(hash, jstzerr.New(jstzerr.InvalidNonce, "expected nonce %d, got %d", current, op.Nonce))
	}
	if err := account.IncrementNonce(tx, op.Source); err != nil {
		return receipt.Fail(hash, err)
	}

	child := tx.EnterChild()
	content, execErr := dispatch(ctx, child, op, ticketer, engine, debug, requestID)
	if execErr != nil {
		child.Rollback()
		return receipt.Fail(hash, execErr)
	}
	if err := child.Commit(); err != nil {
		return receipt.Fail(hash, err)
	}
	return receipt.Ok(hash, content)
}

func dispatch(ctx context.Context, tx *kv.Transaction, op operation.Operation, ticketer tezos.Address, engine runtime.Engine, debug DebugWriter, requestID string) (receipt.Content, error) {
	switch {
	case op.Content.DeployFunction != nil:
		return deployFunction(tx, op.Source, op.Content.DeployFunction)
	case op.Content.RunFunction != nil:
		return runFunction(ctx, tx, op.Source, op.Content.RunFunction, engine, debug, requestID)
	case op.Content.Withdraw != nil:
		return doWithdraw(tx, op.Source, op.Content.Withdraw, ticketer)
	default:
		return receipt.Content{}, jstzerr.New(jstzerr.InvalidCode, "operation carries no content")
	}
}

func deployFunction(tx *kv.Transaction, source tezos.Address, d *operation.DeployFunction) (receipt.Content, error) {
	nonce, err := account.Nonce(tx, source)
	if err != nil {
		return receipt.Content{}, err
	}
	addr, err := account.CreateSmartFunction(tx, source, nonce, d.FunctionCode, d.AccountCredit)
	if err != nil {
		return receipt.Content{}, err
	}
	return receipt.Content{DeployFunction: &receipt.DeployFunctionReceipt{Address: addr}}, nil
}

// loadCode is the api.CodeLoader backing every Runtime built here: a
// missing function_code is InvalidCode, since only a successfully
// deployed smart function address may be the target of a RunFunction
// or a reentrant call.
func loadCode(tx *kv.Transaction, addr tezos.Address) ([]byte, error) {
	code, err := account.FunctionCode(tx, addr)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, jstzerr.New(jstzerr.InvalidCode, "no function code installed at %s", addr)
	}
	return code, nil
}

func resolveTarget(uri string) (tezos.Address, error) {
	const scheme = "jstz://"
	if !strings.HasPrefix(uri, scheme) {
		return tezos.Address{}, jstzerr.New(jstzerr.InvalidResponse, "unsupported scheme in uri %q", uri)
	}
	host, _, _ := strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	addr, err := tezos.ParseAddress(host)
	if err != nil {
		return tezos.Address{}, jstzerr.New(jstzerr.InvalidAddress, "invalid target in uri %q: %v", uri, err)
	}
	return addr, nil
}

func runFunction(ctx context.Context, tx *kv.Transaction, source tezos.Address, r *operation.RunFunction, engine runtime.Engine, debug DebugWriter, requestID string) (receipt.Content, error) {
	if api.ReservedRoute(r.URI) {
		resp, err := api.HandleReserved(tx, runtime.Request{URL: r.URI})
		if err != nil {
			return receipt.Content{}, err
		}
		return toReceiptContent(resp), nil
	}

	target, err := resolveTarget(r.URI)
	if err != nil {
		return receipt.Content{}, err
	}
	code, err := loadCode(tx, target)
	if err != nil {
		return receipt.Content{}, err
	}

	rt := api.New(target, tx, asDebugWriter(debug), requestID, engine, loadCode)
	req := runtime.Request{
		URL:      r.URI,
		Method:   r.Method,
		Headers:  runtime.CanonicalizeHeaders(r.Headers),
		Body:     r.Body,
		Referrer: source,
	}
	resp, err := engine.Invoke(ctx, code, req, rt)
	if err != nil {
		return receipt.Content{}, err
	}
	return toReceiptContent(resp), nil
}

func toReceiptContent(resp runtime.Response) receipt.Content {
	headers := runtime.CanonicalizeHeaders(resp.Headers)
	if headers == nil {
		headers = http.Header{}
	}
	return receipt.Content{RunFunction: &receipt.RunFunctionReceipt{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       resp.Body,
	}}
}

func doWithdraw(tx *kv.Transaction, source tezos.Address, w *operation.Withdraw, ticketer tezos.Address) (receipt.Content, error) {
	if err := withdraw.Execute(tx, source, withdraw.Withdrawal{Amount: w.Amount, Receiver: w.Receiver}, ticketer); err != nil {
		return receipt.Content{}, err
	}
	return receipt.Content{Withdraw: &receipt.WithdrawReceipt{}}, nil
}

type debugWriterAdapter struct{ w DebugWriter }

func (a debugWriterAdapter) WriteDebug(line string) { a.w.WriteDebug(line) }

func asDebugWriter(w DebugWriter) api.DebugWriter {
	if w == nil {
		return nil
	}
	return debugWriterAdapter{w}
}
