// Package receipt implements the receipt emitter (C9): the durable,
// write-once record of what happened to one processed operation.
package receipt

import (
	"encoding/json"
	"fmt"
	"net/http"

	"jstz.dev/kernel/internal/jlog"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/operation"
	"jstz.dev/kernel/tezos"
)

const receiptsPath = "/jstz_receipt"

// DebugPrefix tags the optional off-chain-indexer debug-log line for a
// receipt, per the kernel's external-interfaces contract.
const DebugPrefix = "[JSTZ:RECEIPT]"

// DeployFunctionReceipt is the successful result of a DeployFunction
// operation: the deployed smart function's address.
type DeployFunctionReceipt struct {
	Address tezos.Address `json:"address"`
}

// RunFunctionReceipt is the successful result of a RunFunction
// operation: the synthesized Response's status, headers, and body.
type RunFunctionReceipt struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body,omitempty"`
}

// WithdrawReceipt is the successful result of a Withdraw operation.
type WithdrawReceipt struct{}

// Content is the tagged union of a receipt's successful outcome.
// Exactly one field is non-nil on a successful receipt.
type Content struct {
	DeployFunction *DeployFunctionReceipt `json:"DeployFunction,omitempty"`
	RunFunction    *RunFunctionReceipt    `json:"RunFunction,omitempty"`
	Withdraw       *WithdrawReceipt       `json:"Withdraw,omitempty"`
}

// Receipt is the durably recorded outcome of processing one operation,
// keyed by its operation hash. Exactly one of Result/Err is set.
type Receipt struct {
	Hash   operation.Hash `json:"hash"`
	Result *Content       `json:"result,omitempty"`
	Err    *jstzerr.Error `json:"err,omitempty"`
}

// Ok builds a successful receipt for hash.
func Ok(hash operation.Hash, content Content) Receipt {
	return Receipt{Hash: hash, Result: &content}
}

// Fail builds a failed receipt for hash carrying err's kind and
// message.
func Fail(hash operation.Hash, err error) Receipt {
	if kerr, ok := err.(*jstzerr.Error); ok {
		return Receipt{Hash: hash, Err: kerr}
	}
	return Receipt{Hash: hash, Err: jstzerr.New(jstzerr.JsUncaught, "%v", err)}
}

func path(hash operation.Hash) string {
	return fmt.Sprintf("%s/%s", receiptsPath, hash)
}

// Options controls optional receipt side effects, set once by the host
// embedding the kernel (see cmd/jstzkernel).
type Options struct {
	// WithDebugReceipts also writes the receipt to the debug log as
	// "[JSTZ:RECEIPT]<json>" for off-chain indexers, per §6.
	WithDebugReceipts bool
}

// DebugWriter is the rollup host's raw debug-log sink; satisfied by the
// same Runtime embedding passes to api.Console.
type DebugWriter interface {
	WriteDebug(line string)
}

// Write persists r at its canonical path, unconditionally: a
// pre-existing entry under the same key would imply an operation-hash
// collision (and therefore signature forgery), so Write never checks
// for one — per §4.10, the write is unconditional.
func Write(tx *kv.Transaction, w DebugWriter, opts Options, r Receipt) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return jstzerr.New(jstzerr.StoreError, "encoding receipt %s: %v", r.Hash, err)
	}
	tx.Insert(path(r.Hash), raw)
	jlog.Debugf("receipt: wrote %s ok=%v", r.Hash, r.Result != nil)

	if opts.WithDebugReceipts && w != nil {
		w.WriteDebug(DebugPrefix + string(raw))
	}
	return nil
}

// Read loads the receipt stored for hash, if any.
func Read(tx *kv.Transaction, hash operation.Hash) (Receipt, bool, error) {
	raw, ok, err := tx.Get(path(hash))
	if err != nil {
		return Receipt{}, false, err
	}
	if !ok {
		return Receipt{}, false, nil
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return Receipt{}, false, jstzerr.New(jstzerr.StoreError, "decoding receipt %s: %v", hash, err)
	}
	return r, true, nil
}
