package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"jstz.dev/kernel/inbox"
	"jstz.dev/kernel/tezos"
)

// fileHost is a local stand-in for the rollup kernel SDK's host: it
// replays a fixed inbox recorded as newline-delimited JSON records and
// prints every debug line to stdout, the way a node operator would watch
// a real rollup's debug log. It never reboots mid-batch — every message
// in the file is offered in one kernel_run before ReadInput reports
// exhaustion.
type fileHost struct {
	messages []inbox.RawMessage
	pos      int
}

func (h *fileHost) ReadInput() (inbox.RawMessage, bool, error) {
	if h.pos >= len(h.messages) {
		return inbox.RawMessage{}, false, nil
	}
	m := h.messages[h.pos]
	h.pos++
	return m, true, nil
}

func (h *fileHost) WriteDebug(line string) { fmt.Println(line) }
func (h *fileHost) MarkForReboot()         {}

// inboxRecord is one line of a devnet inbox file.
type inboxRecord struct {
	Level    int32           `json:"level"`
	ID       uint32          `json:"id"`
	Kind     string          `json:"kind"`
	External json.RawMessage `json:"external,omitempty"`
	Deposit  *depositRecord  `json:"deposit,omitempty"`
}

type depositRecord struct {
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
}

// internal transfer tags, mirroring inbox.go's own (unexported) wire
// layout: a devnet inbox file has to speak the same tagged binary
// framing a real rollup node would deliver.
const (
	tagDeposit byte = 3
)

func loadInbox(path string, ticketer, rollupAddress tezos.Address) ([]inbox.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening inbox file")
	}
	defer f.Close()

	var out []inbox.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec inboxRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, errors.Wrap(err, "decoding inbox record")
		}
		msg, err := encodeRecord(rec, ticketer, rollupAddress)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning inbox file")
	}
	return out, nil
}

func encodeRecord(rec inboxRecord, ticketer, rollupAddress tezos.Address) (inbox.RawMessage, error) {
	switch rec.Kind {
	case "external":
		return inbox.RawMessage{Level: rec.Level, ID: rec.ID, Kind: inbox.FrameExternal, Payload: rec.External}, nil
	case "deposit":
		if rec.Deposit == nil {
			return inbox.RawMessage{}, errors.New("inbox record: deposit kind missing deposit body")
		}
		receiver, err := tezos.ParseAddress(rec.Deposit.Receiver)
		if err != nil {
			return inbox.RawMessage{}, errors.Wrap(err, "inbox record: invalid deposit receiver")
		}
		payload, err := encodeDeposit(ticketer, rollupAddress, receiver, rec.Deposit.Amount)
		if err != nil {
			return inbox.RawMessage{}, err
		}
		return inbox.RawMessage{Level: rec.Level, ID: rec.ID, Kind: inbox.FrameInternal, Payload: payload}, nil
	default:
		return inbox.RawMessage{}, errors.Errorf("inbox record: unknown kind %q", rec.Kind)
	}
}

// encodeDeposit builds the fixed-layout internal deposit payload
// inbox.Parse expects: tag, 22-byte creator, 22-byte destination,
// 8-byte big-endian amount, 22-byte receiver.
func encodeDeposit(ticketer, rollupAddress, receiver tezos.Address, amount uint64) ([]byte, error) {
	creator, err := ticketer.MarshalBinary()
	if err != nil {
		return nil, err
	}
	dest, err := rollupAddress.MarshalBinary()
	if err != nil {
		return nil, err
	}
	recv, err := receiver.MarshalBinary()
	if err != nil {
		return nil, err
	}
	body := make([]byte, 0, 1+len(creator)+len(dest)+8+len(recv))
	body = append(body, tagDeposit)
	body = append(body, creator...)
	body = append(body, dest...)
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], amount)
	body = append(body, amt[:]...)
	body = append(body, recv...)
	return body, nil
}
