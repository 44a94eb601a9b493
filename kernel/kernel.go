// Package kernel implements the reboot-driven inbox loop (C10): the
// top-level driver that reads one inbox message at a time, classifies
// it, dispatches it to the validator or the internal-deposit executor,
// and commits its effects atomically before moving to the next message.
package kernel

import (
	"context"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/inbox"
	"jstz.dev/kernel/internal/jlog"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/receipt"
	"jstz.dev/kernel/runtime"
	"jstz.dev/kernel/tezos"
	"jstz.dev/kernel/validate"
)

// ticketerPath, injectorPath, and rollupAddressPath are the fixed
// configuration paths the rollup originator seeds before the kernel
// ever processes a message.
const (
	ticketerPath      = "/ticketer"
	injectorPath      = "/injector"
	rollupAddressPath = "/rollup_address"
)

// Host is the rollup kernel SDK surface the loop drives. ReadInput
// returns ok=false once the current host invocation has no more inbox
// entries to offer, at which point the loop returns control to the
// host (which schedules the next invocation, possibly after a reboot).
type Host interface {
	ReadInput() (inbox.RawMessage, bool, error)
	WriteDebug(line string)
	MarkForReboot()
}

// Config bundles the loop's dependencies that do not change across
// messages: the JS engine double, and whether receipts are also
// mirrored to the debug log for off-chain indexers.
type Config struct {
	Engine   runtime.Engine
	Receipts receipt.Options
}

// ReadTicketer loads the ticketer address seeded at ticketerPath.
func ReadTicketer(tx *kv.Transaction) (tezos.Address, error) {
	raw, ok, err := tx.Get(ticketerPath)
	if err != nil {
		return tezos.Address{}, err
	}
	if !ok {
		return tezos.Address{}, jstzerr.New(jstzerr.StoreError, "ticketer not found at %s", ticketerPath)
	}
	return tezos.ParseAddress(string(raw))
}

// ReadInjector loads the admin-operation-authorizing public key seeded
// at injectorPath.
func ReadInjector(tx *kv.Transaction) (tezos.Key, error) {
	raw, ok, err := tx.Get(injectorPath)
	if err != nil {
		return tezos.Key{}, err
	}
	if !ok {
		return tezos.Key{}, jstzerr.New(jstzerr.StoreError, "injector not found at %s", injectorPath)
	}
	return tezos.ParseKey(string(raw))
}

// ReadRollupAddress loads this rollup instance's own address, seeded at
// rollupAddressPath — used to recognize deposits addressed to this
// rollup versus one destined elsewhere.
func ReadRollupAddress(tx *kv.Transaction) (tezos.Address, error) {
	raw, ok, err := tx.Get(rollupAddressPath)
	if err != nil {
		return tezos.Address{}, err
	}
	if !ok {
		return tezos.Address{}, jstzerr.New(jstzerr.StoreError, "rollup address not found at %s", rollupAddressPath)
	}
	return tezos.ParseAddress(string(raw))
}

// SeedConfig writes the fixed configuration paths ReadTicketer,
// ReadInjector, and ReadRollupAddress load — the one-time setup a rollup
// originator (or a devnet host, in cmd/jstzkernel) performs before the
// kernel ever processes a message.
func SeedConfig(tx *kv.Transaction, ticketer tezos.Address, injector tezos.Key, rollupAddress tezos.Address) {
	tx.Insert(ticketerPath, []byte(ticketer.String()))
	tx.Insert(injectorPath, []byte(injector.String()))
	tx.Insert(rollupAddressPath, []byte(rollupAddress.String()))
}

// Run drives one host invocation to completion: it processes inbox
// messages until the host reports none remain, then returns. The host
// is expected to call Run again on its next invocation (after a reboot
// if the tick budget was exhausted mid-loop).
func Run(ctx context.Context, host Host, storage *kv.Storage, cfg Config) {
	for {
		raw, ok, err := host.ReadInput()
		if err != nil {
			jlog.Infof("kernel: read_input error: %v", err)
			continue
		}
		if !ok {
			return
		}

		host.MarkForReboot()

		tx := storage.Begin()
		ticketer, err := ReadTicketer(tx)
		if err != nil {
			jlog.Infof("kernel: %v", err)
			continue
		}
		injector, err := ReadInjector(tx)
		if err != nil {
			jlog.Infof("kernel: %v", err)
			continue
		}
		rollupAddress, err := ReadRollupAddress(tx)
		if err != nil {
			jlog.Infof("kernel: %v", err)
			continue
		}

		msg, err := inbox.Parse(raw, ticketer, rollupAddress)
		if err != nil {
			jlog.Infof("kernel: discarding malformed message: %v", err)
			continue
		}

		switch {
		case msg.LevelInfo != nil:
			continue
		case msg.Deposit != nil, msg.FaDeposit != nil:
			if err := executeInternal(tx, msg); err != nil {
				jlog.Infof("kernel: internal message failed: %v", err)
			}
		case msg.External != nil:
			requestID := msg.External.Hash().String()
			r := validate.Execute(ctx, tx, *msg.External, ticketer, injector, cfg.Engine, host, requestID)
			publishReceipt(host, r)
			if err := receipt.Write(tx, host, cfg.Receipts, r); err != nil {
				jlog.Infof("kernel: failed to write receipt: %v", err)
			}
		default:
			continue
		}

		if err := tx.Commit(); err != nil {
			jlog.Infof("kernel: commit failed: %v", err)
			continue
		}
	}
}

// executeInternal applies an internal ledger effect (a native deposit
// or an FA ticket deposit) directly, with no signature or nonce to
// check: the rollup's inbox machinery is itself the trust boundary for
// these messages.
func executeInternal(tx *kv.Transaction, msg inbox.Message) error {
	switch {
	case msg.Deposit != nil:
		return account.AddBalance(tx, msg.Deposit.Receiver, msg.Deposit.Amount)
	case msg.FaDeposit != nil:
		return account.AddTicket(tx, msg.FaDeposit.Receiver, msg.FaDeposit.TicketHash, msg.FaDeposit.Amount)
	default:
		return nil
	}
}

// publishReceipt writes a single "Receipt: <operation hash>" debug-log
// line for an externally-triggered operation. The line carries only the
// hash; the outcome itself appears in the richer "[JSTZ:RECEIPT]"-prefixed
// line receipt.Write emits when debug receipts are enabled.
func publishReceipt(host Host, r receipt.Receipt) {
	host.WriteDebug("Receipt: " + r.Hash.String())
}
