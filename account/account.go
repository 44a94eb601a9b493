// Package account implements the ledger (C3): accounts, nonces,
// balances, function code, and ticket balances, all read and written
// through a kv.Transaction. Every operation here is a pure function of
// a transaction and an address; none hold state of their own.
package account

import (
	"encoding/json"
	"fmt"
	"math/bits"

	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/tezos"
)

// accountsPath is the root of the account subtree; an individual
// account lives at accountsPath/<address>.
const accountsPath = "/jstz_account"

// ticketTablePath is the root of the ticket-balance subtree; an
// individual entry lives at ticketTablePath/<address>/<ticket_hash>.
const ticketTablePath = "/jstz_ticket_table"

// Amount is a balance or transfer quantity, denominated in µxtz for the
// native ledger and in ticket-defined units for ticket balances.
type Amount = uint64

// Account is the per-address ledger record. FunctionCode is nil for a
// user address and set exactly once, at deployment, for a smart
// function address.
type Account struct {
	Nonce        uint64 `json:"nonce"`
	Balance      Amount `json:"balance"`
	FunctionCode []byte `json:"function_code,omitempty"`
}

func path(addr tezos.Address) string {
	return fmt.Sprintf("%s/%s", accountsPath, addr)
}

func ticketPath(addr tezos.Address, ticketHash tezos.Hash) string {
	return fmt.Sprintf("%s/%s/%x", ticketTablePath, addr, ticketHash.Hash)
}

// get loads the account at addr, returning the zero-value Account
// (zero balance, zero nonce, no function code) if it does not exist.
func get(tx *kv.Transaction, addr tezos.Address) (Account, error) {
	raw, ok, err := tx.Get(path(addr))
	if err != nil {
		return Account{}, err
	}
	if !ok {
		return Account{}, nil
	}
	var a Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return Account{}, jstzerr.New(jstzerr.StoreError, "decoding account %s: %v", addr, err)
	}
	return a, nil
}

func put(tx *kv.Transaction, addr tezos.Address, a Account) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return jstzerr.New(jstzerr.StoreError, "encoding account %s: %v", addr, err)
	}
	tx.Insert(path(addr), raw)
	return nil
}

// Exists reports whether addr has a stored account record.
func Exists(tx *kv.Transaction, addr tezos.Address) (bool, error) {
	return tx.ContainsKey(path(addr))
}

// Balance returns 0 with no side effect if the account does not exist.
func Balance(tx *kv.Transaction, addr tezos.Address) (Amount, error) {
	a, err := get(tx, addr)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// Nonce returns the next nonce this address is expected to present on
// its following operation.
func Nonce(tx *kv.Transaction, addr tezos.Address) (uint64, error) {
	a, err := get(tx, addr)
	if err != nil {
		return 0, err
	}
	return a.Nonce, nil
}

// IncrementNonce advances addr's stored nonce by one. Called by the
// validator after a successful nonce check, never before.
func IncrementNonce(tx *kv.Transaction, addr tezos.Address) error {
	a, err := get(tx, addr)
	if err != nil {
		return err
	}
	a.Nonce++
	return put(tx, addr, a)
}

// AddBalance credits addr by n, failing with BalanceOverflow rather
// than wrapping around.
func AddBalance(tx *kv.Transaction, addr tezos.Address, n Amount) error {
	a, err := get(tx, addr)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(a.Balance, n, 0)
	if carry != 0 {
		return jstzerr.New(jstzerr.BalanceOverflow, "balance overflow crediting %s by %d", addr, n)
	}
	a.Balance = sum
	return put(tx, addr, a)
}

// SubBalance debits addr by n, failing with InsufficientFunds if the
// balance is less than n.
func SubBalance(tx *kv.Transaction, addr tezos.Address, n Amount) error {
	a, err := get(tx, addr)
	if err != nil {
		return err
	}
	if a.Balance < n {
		return jstzerr.New(jstzerr.InsufficientFunds, "%s has %d, needs %d", addr, a.Balance, n)
	}
	a.Balance -= n
	return put(tx, addr, a)
}

// Transfer atomically debits src and credits dst within a child
// transaction, so a failure on either leg rolls back with no visible
// effect.
func Transfer(parent *kv.Transaction, src, dst tezos.Address, n Amount) error {
	child := parent.EnterChild()
	if err := SubBalance(child, src, n); err != nil {
		child.Rollback()
		return err
	}
	if err := AddBalance(child, dst, n); err != nil {
		child.Rollback()
		return err
	}
	return child.Commit()
}

// FunctionCode returns the installed module code for addr, or nil if
// none is installed.
func FunctionCode(tx *kv.Transaction, addr tezos.Address) ([]byte, error) {
	a, err := get(tx, addr)
	if err != nil {
		return nil, err
	}
	return a.FunctionCode, nil
}

// CreateSmartFunction derives a KT1 address from source, its current
// nonce, and code, then installs a fresh zero-balance account there
// before transferring credit from source to it — the nonce increment
// performed by the caller (the operation validator) makes each deploy
// from a given source derive a distinct address. Fails with
// AccountExists if the derived address is already populated.
func CreateSmartFunction(parent *kv.Transaction, source tezos.Address, nonce uint64, code []byte, credit Amount) (tezos.Address, error) {
	target, err := tezos.NewContractAddress(source, nonce, code)
	if err != nil {
		return tezos.Address{}, err
	}

	child := parent.EnterChild()

	exists, err := Exists(child, target)
	if err != nil {
		child.Rollback()
		return tezos.Address{}, err
	}
	if exists {
		child.Rollback()
		return tezos.Address{}, jstzerr.New(jstzerr.AccountExists, "smart function %s already exists", target)
	}

	if err := put(child, target, Account{FunctionCode: code}); err != nil {
		child.Rollback()
		return tezos.Address{}, err
	}

	if credit > 0 {
		if err := Transfer(child, source, target, credit); err != nil {
			child.Rollback()
			return tezos.Address{}, err
		}
	}

	if err := child.Commit(); err != nil {
		return tezos.Address{}, err
	}
	return target, nil
}

// ticketEntry is the stored balance for one (owner, ticket_hash) pair.
type ticketEntry struct {
	Balance Amount `json:"balance"`
}

func getTicket(tx *kv.Transaction, addr tezos.Address, ticketHash tezos.Hash) (Amount, error) {
	raw, ok, err := tx.Get(ticketPath(addr, ticketHash))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	var e ticketEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return 0, jstzerr.New(jstzerr.StoreError, "decoding ticket balance: %v", err)
	}
	return e.Balance, nil
}

func putTicket(tx *kv.Transaction, addr tezos.Address, ticketHash tezos.Hash, balance Amount) error {
	raw, err := json.Marshal(ticketEntry{Balance: balance})
	if err != nil {
		return jstzerr.New(jstzerr.StoreError, "encoding ticket balance: %v", err)
	}
	tx.Insert(ticketPath(addr, ticketHash), raw)
	return nil
}

// TicketBalance returns the ticket balance held by addr for ticketHash,
// 0 if none is recorded.
func TicketBalance(tx *kv.Transaction, addr tezos.Address, ticketHash tezos.Hash) (Amount, error) {
	return getTicket(tx, addr, ticketHash)
}

// AddTicket credits addr's balance for ticketHash by n.
func AddTicket(tx *kv.Transaction, addr tezos.Address, ticketHash tezos.Hash, n Amount) error {
	bal, err := getTicket(tx, addr, ticketHash)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(bal, n, 0)
	if carry != 0 {
		return jstzerr.New(jstzerr.BalanceOverflow, "ticket balance overflow for %s", addr)
	}
	return putTicket(tx, addr, ticketHash, sum)
}

// SubTicket debits addr's balance for ticketHash by n, failing with
// InsufficientFunds if the balance is less than n.
func SubTicket(tx *kv.Transaction, addr tezos.Address, ticketHash tezos.Hash, n Amount) error {
	bal, err := getTicket(tx, addr, ticketHash)
	if err != nil {
		return err
	}
	if bal < n {
		return jstzerr.New(jstzerr.InsufficientFunds, "%s has %d of ticket %x, needs %d", addr, bal, ticketHash.Hash, n)
	}
	return putTicket(tx, addr, ticketHash, bal-n)
}

// TransferTicket atomically moves n units of ticketHash from src to
// dst within a child transaction.
func TransferTicket(parent *kv.Transaction, src, dst tezos.Address, ticketHash tezos.Hash, n Amount) error {
	child := parent.EnterChild()
	if err := SubTicket(child, src, ticketHash, n); err != nil {
		child.Rollback()
		return err
	}
	if err := AddTicket(child, dst, ticketHash, n); err != nil {
		child.Rollback()
		return err
	}
	return child.Commit()
}
