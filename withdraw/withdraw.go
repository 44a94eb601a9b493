// Package withdraw implements the native XTZ withdrawal executor (C8):
// burning a source's balance and queuing the matching outbox message
// that releases the backing ticket on L1.
package withdraw

import (
	"jstz.dev/kernel/account"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/tezos"
)

// burnEntrypoint is the L1 ticketer contract's entrypoint that receives
// the withdrawn ticket and burns it, releasing the underlying XTZ.
const burnEntrypoint = "burn"

// Withdrawal is the parsed body of an operation.Withdraw content.
type Withdrawal struct {
	Amount   account.Amount
	Receiver tezos.Address
}

// createOutboxMessage builds the withdrawal outbox message for amount,
// addressed to receiver and redeemable against ticketer's burn
// entrypoint. The ticket payload itself is just the raw amount, mirroring
// how a plain XTZ ticket carries no richer content than its quantity.
func createOutboxMessage(amount account.Amount, receiver, ticketer tezos.Address) kv.OutboxMessage {
	return kv.OutboxMessage{
		Receiver:   receiver.String(),
		Ticketer:   ticketer.String(),
		Entrypoint: burnEntrypoint,
		Ticket:     encodeAmount(amount),
	}
}

// encodeAmount renders amount as a Michelson nat: the FA2.1 ticket an
// outbox withdrawal redeems on L1 carries its quantity zarith-encoded,
// the same variable-length unsigned encoding tezos.N implements.
func encodeAmount(amount account.Amount) []byte {
	n := tezos.NewN(int64(amount))
	b, _ := n.MarshalBinary()
	return b
}

// Execute processes a withdrawal: deduct source's balance and queue the
// outbox message, atomically. Both steps happen inside a nested
// transaction so a failure (insufficient funds, or the level's outbox
// already at capacity) leaves no partial effect; the caller's enclosing
// transaction is untouched either way. Checking capacity here, rather
// than leaving it to the eventual root commit, keeps an over-capacity
// withdrawal an ordinary execution error: the per-message transaction
// still commits with the nonce increment and an Err(OutboxFull) receipt,
// instead of the whole message's commit failing and silently dropping
// both.
func Execute(tx *kv.Transaction, source tezos.Address, w Withdrawal, ticketer tezos.Address) error {
	if tx.OutboxRemaining() < 1 {
		return jstzerr.New(jstzerr.OutboxFull, "outbox capacity exceeded")
	}

	child := tx.EnterChild()

	if err := account.SubBalance(child, source, w.Amount); err != nil {
		child.Rollback()
		return err
	}

	child.AppendOutbox(createOutboxMessage(w.Amount, w.Receiver, ticketer))

	return child.Commit()
}
