// Package operation defines the wire-level Operation, Content and
// SignedOperation types (C5's input) and the deterministic operation
// hash formula that is both the signed message and the receipt key.
package operation

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"jstz.dev/kernel/account"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/tezos"
)

// Hash is an operation's blake2b-256 digest.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalJSON renders h as a lowercase hex string, matching how
// operation hashes appear in receipts and client-facing responses.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON parses h from a lowercase or uppercase hex string.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("operation: decoding hash: %w", err)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("operation: decoding hash hex: %w", err)
	}
	if len(b) != len(h) {
		return fmt.Errorf("operation: hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return nil
}

// DeployFunction installs FunctionCode as a new smart function, crediting
// it AccountCredit from the source's balance atomically with creation.
type DeployFunction struct {
	FunctionCode  []byte
	AccountCredit account.Amount
}

// RunFunction invokes the smart function addressed by URI's host with a
// synthesized Request built from the remaining fields.
type RunFunction struct {
	URI      string
	Method   string
	Headers  http.Header
	Body     []byte
	GasLimit uint64
}

// Withdraw burns Amount from the operation's source and queues an
// outbox withdrawal message addressed to Receiver.
type Withdraw struct {
	Amount   account.Amount
	Receiver tezos.Address
}

// Content is the tagged union of what an external operation may
// request. Exactly one field is non-nil.
type Content struct {
	DeployFunction *DeployFunction
	RunFunction    *RunFunction
	Withdraw       *Withdraw
}

// Kind names Content's active variant, for logging and receipts.
func (c Content) Kind() string {
	switch {
	case c.DeployFunction != nil:
		return "DeployFunction"
	case c.RunFunction != nil:
		return "RunFunction"
	case c.Withdraw != nil:
		return "Withdraw"
	default:
		return "Unknown"
	}
}

// Operation is the user-authored request, from Source at Nonce.
type Operation struct {
	Source  tezos.Address
	Nonce   uint64
	Content Content
}

// Hash computes the operation hash as a textual blake2b-256 digest of
// the operation's fields, deterministic in field order — this is the
// message the client signs and the key a receipt is stored under.
func (op Operation) Hash() Hash {
	switch {
	case op.Content.DeployFunction != nil:
		d := op.Content.DeployFunction
		text := fmt.Sprintf("%s%d%s%d", op.Source, op.Nonce, d.FunctionCode, d.AccountCredit)
		return Hash(tezos.Digest([]byte(text)))
	case op.Content.RunFunction != nil:
		r := op.Content.RunFunction
		text := fmt.Sprintf("%s%d%s%s%v%v", op.Source, op.Nonce, r.URI, r.Method, r.Headers, r.Body)
		return Hash(tezos.Digest([]byte(text)))
	case op.Content.Withdraw != nil:
		w := op.Content.Withdraw
		text := fmt.Sprintf("%s%d%s%d", op.Source, op.Nonce, w.Receiver, w.Amount)
		return Hash(tezos.Digest([]byte(text)))
	default:
		return Hash{}
	}
}

// SignedOperation is an Operation plus the signature and public key it
// claims to be signed by — the shape an external inbox message decodes
// into.
type SignedOperation struct {
	PublicKey tezos.Key
	Signature tezos.Signature
	Inner     Operation
}

// Hash forwards to the inner operation's hash.
func (s SignedOperation) Hash() Hash { return s.Inner.Hash() }

// Verify checks the signature against the inner operation's hash, and
// that the public key hashes to the operation's claimed source when
// that source is an implicit account, returning the verified Operation.
// It performs no state mutation.
func (s SignedOperation) Verify() (Operation, error) {
	h := s.Inner.Hash()
	if err := s.PublicKey.Verify(h[:], s.Signature); err != nil {
		return Operation{}, jstzerr.New(jstzerr.InvalidSignature, "%v", err)
	}
	if s.Inner.Source.IsEOA() {
		want := s.PublicKey.Address()
		if !addrEqualConstantTime(want, s.Inner.Source) {
			return Operation{}, jstzerr.New(jstzerr.InvalidSignature,
				"public key hashes to %s, not source %s", want, s.Inner.Source)
		}
	}
	return s.Inner, nil
}

func addrEqualConstantTime(a, b tezos.Address) bool {
	return a.Type == b.Type && subtle.ConstantTimeCompare(a.Hash, b.Hash) == 1
}
