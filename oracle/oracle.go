// Package oracle implements the oracle request/response bridge (the
// optional edge named in §4.8): an in-kernel registry of pending
// fetch-over-HTTPS requests too privileged to run inside the rollup
// itself, and the event-log channel an off-chain relay tails to service
// them.
package oracle

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"jstz.dev/kernel/internal/jlog"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/tezos"
)

// jstzPrefix tags the single debug-log line an event is published as:
// "[JSTZ]<json payload>".
const jstzPrefix = "[JSTZ]"

const requestsPath = "/jstz_oracle/requests"
const publicKeyPath = "/jstz_oracle/public_key"

// RequestID identifies one in-flight oracle request, assigned in
// strictly increasing order starting at zero.
type RequestID uint64

// Request is the subset of an HTTP request an oracle relay needs to
// replay it against the outside world.
type Request struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers http.Header `json:"headers,omitempty"`
	Body    []byte      `json:"body,omitempty"`
}

// OracleRequest is a smart function's request for an off-chain relay to
// perform a fetch on its behalf and sign the result back in.
type OracleRequest struct {
	ID        RequestID     `json:"id"`
	Caller    tezos.Address `json:"caller"`
	GasLimit  uint64        `json:"gas_limit"`
	Timeout   uint64        `json:"timeout"`
	Request   Request       `json:"request"`
}

// Event is the tagged union of kernel-produced events published to the
// debug log. OracleRequest is the only variant today; the union leaves
// room for future event kinds without changing the wire prefix.
type Event struct {
	OracleRequest *OracleRequest `json:"OracleRequest,omitempty"`
}

// DebugWriter is the rollup host's raw debug-log sink.
type DebugWriter interface {
	WriteDebug(line string)
}

// Publish emits event as a single "[JSTZ]<json>" debug-log line.
func Publish(w DebugWriter, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return jstzerr.New(jstzerr.StoreError, "encoding event: %v", err)
	}
	w.WriteDebug(jstzPrefix + string(raw))
	return nil
}

// DecodeLine strips the "[JSTZ]" prefix from line and decodes the
// remaining JSON as an Event. It is the inverse of Publish, used by
// off-chain relays (and by tests) to parse a tailed debug log.
func DecodeLine(line string) (Event, error) {
	rest, ok := strings.CutPrefix(line, jstzPrefix)
	if !ok {
		return Event{}, fmt.Errorf("oracle: line missing %q prefix", jstzPrefix)
	}
	var ev Event
	if err := json.Unmarshal([]byte(rest), &ev); err != nil {
		return Event{}, fmt.Errorf("oracle: decoding event: %w", err)
	}
	return ev, nil
}

// Oracle holds the relay-facing public key. The next request id is not
// kept here: Register reads and advances a durable counter (see
// nextRequestID).
type Oracle struct {
	PublicKey tezos.Key
}

// New loads the oracle's registered public key from tx. The public key
// must have been provisioned during kernel setup; a missing key is a
// configuration error, not a per-request failure.
func New(tx *kv.Transaction) (*Oracle, error) {
	raw, ok, err := tx.Get(publicKeyPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, jstzerr.New(jstzerr.InvalidAddress, "oracle public key not found at %s", publicKeyPath)
	}
	key, err := tezos.ParseKey(string(raw))
	if err != nil {
		return nil, jstzerr.New(jstzerr.InvalidAddress, "oracle public key malformed: %v", err)
	}
	return &Oracle{PublicKey: key}, nil
}

// SetPublicKey provisions the oracle's relay-facing public key.
func SetPublicKey(tx *kv.Transaction, key tezos.Key) {
	tx.Insert(publicKeyPath, []byte(key.String()))
}

func requestPath(id RequestID) string {
	return fmt.Sprintf("%s/%d", requestsPath, id)
}

// nextRequestIDPath stores the monotonically increasing request-id
// counter, so that IDs remain unique and strictly increasing across
// reboots within the same rollup instance.
const nextRequestIDPath = "/jstz_oracle/next_request_id"

func nextRequestID(tx *kv.Transaction) (RequestID, error) {
	raw, ok, err := tx.Get(nextRequestIDPath)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	var id RequestID
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, jstzerr.New(jstzerr.StoreError, "decoding oracle request counter: %v", err)
	}
	return id, nil
}

// Register allocates a fresh RequestID, durably records req under it,
// and publishes the matching OracleRequest event for relays to pick up.
func Register(tx *kv.Transaction, w DebugWriter, caller tezos.Address, gasLimit, timeout uint64, req Request) (RequestID, error) {
	id, err := nextRequestID(tx)
	if err != nil {
		return 0, err
	}

	encodedID, err := json.Marshal(id + 1)
	if err != nil {
		return 0, jstzerr.New(jstzerr.StoreError, "encoding oracle request counter: %v", err)
	}
	tx.Insert(nextRequestIDPath, encodedID)

	oreq := OracleRequest{ID: id, Caller: caller, GasLimit: gasLimit, Timeout: timeout, Request: req}
	raw, err := json.Marshal(oreq)
	if err != nil {
		return 0, jstzerr.New(jstzerr.StoreError, "encoding oracle request %d: %v", id, err)
	}
	tx.Insert(requestPath(id), raw)

	if w != nil {
		if err := Publish(w, Event{OracleRequest: &oreq}); err != nil {
			return 0, err
		}
	}
	jlog.Debugf("oracle: registered request %d for %s", id, caller)
	return id, nil
}

// Resolve removes a pending request once its relay response has been
// delivered and applied, freeing its storage slot.
func Resolve(tx *kv.Transaction, id RequestID) {
	tx.Remove(requestPath(id))
}

// Get loads the pending request stored under id, if any.
func Get(tx *kv.Transaction, id RequestID) (OracleRequest, bool, error) {
	raw, ok, err := tx.Get(requestPath(id))
	if err != nil {
		return OracleRequest{}, false, err
	}
	if !ok {
		return OracleRequest{}, false, nil
	}
	var req OracleRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return OracleRequest{}, false, jstzerr.New(jstzerr.StoreError, "decoding oracle request %d: %v", id, err)
	}
	return req, true, nil
}
