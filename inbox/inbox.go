// Package inbox implements the inbox parser (C4): classifying one raw
// rollup inbox entry into a LevelInfo marker, an internal ledger effect
// (deposit or FA deposit), or an external signed operation.
package inbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"jstz.dev/kernel/internal/jlog"
	"jstz.dev/kernel/operation"
	"jstz.dev/kernel/tezos"
)

// FrameKind is the host-level framing of one inbox entry, as delivered
// by the rollup kernel SDK's input reader, before any payload decoding.
type FrameKind byte

const (
	FrameInternal FrameKind = iota
	FrameExternal
)

// RawMessage is what the host delivers for a single inbox entry: its
// level and within-level id (the latter doubles as the FaDeposit
// nonce), the host-level framing, and the undecoded payload.
type RawMessage struct {
	Level   int32
	ID      uint32
	Kind    FrameKind
	Payload []byte
}

// internal transfer tags, the first byte of an internal payload.
const (
	tagLevelStart byte = iota
	tagLevelInfo
	tagLevelEnd
	tagDeposit
	tagFaDeposit
)

// LevelInfo marks a start-of-level, info-per-level, or end-of-level
// internal message. These carry no ledger effect; the executor ignores
// them.
type LevelInfo struct {
	Kind string // "start" | "info" | "end"
}

// Deposit is a native XTZ ticket transfer into the rollup, returned by
// Parse only if its ticket creator matches the configured ticketer and
// its destination matches the rollup's own address.
type Deposit struct {
	Amount   uint64
	Receiver tezos.Address
}

// FaDeposit is an FA2.1 ticket transfer into the rollup. InboxID is the
// message's inbox position, which doubles as its replay-proof nonce
// since FA deposits have no source-side nonce of their own.
type FaDeposit struct {
	InboxID            uint32
	Amount             uint64
	Receiver           tezos.Address
	ProxySmartFunction *tezos.Address
	TicketHash         tezos.Hash
}

// Message is the tagged union C4 classifies a RawMessage into. At most
// one field is non-nil; all are nil when Parse drops a deposit whose
// creator or destination does not match.
type Message struct {
	LevelInfo *LevelInfo
	Deposit   *Deposit
	FaDeposit *FaDeposit
	External  *operation.SignedOperation
}

// Parse classifies raw into a Message. Malformed messages are reported
// via the returned error; a deposit with a non-matching creator or
// destination is dropped, returning an empty Message and a nil error.
// Neither is fatal to the caller: per §4.4, the kernel loop logs and
// discards them rather than treating the inbox as rejectable.
func Parse(raw RawMessage, ticketer, rollupAddress tezos.Address) (Message, error) {
	switch raw.Kind {
	case FrameExternal:
		return parseExternal(raw.Payload)
	default:
		return parseInternal(raw, ticketer, rollupAddress)
	}
}

func parseExternal(payload []byte) (Message, error) {
	if !gjson.ValidBytes(payload) {
		return Message{}, fmt.Errorf("inbox: external payload is not valid JSON")
	}
	if !gjson.GetBytes(payload, "public_key").Exists() || !gjson.GetBytes(payload, "signature").Exists() {
		return Message{}, fmt.Errorf("inbox: external payload missing public_key/signature")
	}
	var signed operation.SignedOperation
	if err := json.Unmarshal(payload, &signed); err != nil {
		return Message{}, fmt.Errorf("inbox: decoding signed operation: %w", err)
	}
	return Message{External: &signed}, nil
}

func parseInternal(raw RawMessage, ticketer, rollupAddress tezos.Address) (Message, error) {
	if len(raw.Payload) == 0 {
		return Message{}, fmt.Errorf("inbox: empty internal payload")
	}
	tag, body := raw.Payload[0], raw.Payload[1:]
	switch tag {
	case tagLevelStart:
		return Message{LevelInfo: &LevelInfo{Kind: "start"}}, nil
	case tagLevelInfo:
		return Message{LevelInfo: &LevelInfo{Kind: "info"}}, nil
	case tagLevelEnd:
		return Message{LevelInfo: &LevelInfo{Kind: "end"}}, nil
	case tagDeposit:
		return parseDeposit(body, ticketer, rollupAddress)
	case tagFaDeposit:
		return parseFaDeposit(raw.ID, body, ticketer)
	default:
		return Message{}, fmt.Errorf("inbox: unknown internal tag %d", tag)
	}
}

// parseDeposit reads a fixed-layout internal transfer: 22-byte creator
// address, 22-byte destination address, 8-byte big-endian amount. The
// deposit is only accepted if the creator matches the configured
// ticketer and the destination matches the rollup's own address; any
// mismatch is silently ignored, mirroring §4.4's "L1 guarantees no way
// to reject" contract.
func parseDeposit(body []byte, ticketer, rollupAddress tezos.Address) (Message, error) {
	if len(body) < 22+22+8 {
		return Message{}, fmt.Errorf("inbox: deposit payload too short")
	}
	var creator, destination tezos.Address
	if err := creator.UnmarshalBinary(body[0:22]); err != nil {
		return Message{}, fmt.Errorf("inbox: decoding deposit creator: %w", err)
	}
	if err := destination.UnmarshalBinary(body[22:44]); err != nil {
		return Message{}, fmt.Errorf("inbox: decoding deposit destination: %w", err)
	}
	amount := binary.BigEndian.Uint64(body[44:52])

	if !creator.Equal(ticketer) {
		jlog.Infof("inbox: dropping deposit from non-ticketer creator %s", creator)
		return Message{}, nil
	}
	if !destination.Equal(rollupAddress) {
		jlog.Infof("inbox: dropping deposit to foreign destination %s", destination)
		return Message{}, nil
	}

	if len(body) < 52+22 {
		return Message{}, fmt.Errorf("inbox: deposit payload missing receiver")
	}
	var receiver tezos.Address
	if err := receiver.UnmarshalBinary(body[52:74]); err != nil {
		return Message{}, fmt.Errorf("inbox: decoding deposit receiver: %w", err)
	}
	return Message{Deposit: &Deposit{Amount: amount, Receiver: receiver}}, nil
}

// parseFaDeposit reads a fixed-layout FA ticket transfer: creator (22),
// receiver (22), a 1-byte proxy presence flag followed by 22 bytes if
// set, an 8-byte amount, then the remaining bytes as the ticket's
// content blob. ticket_hash is tezos.NewTicketHash(creator, content):
// blake2b-256 of the creator's tagged address bytes concatenated with
// the content blob.
func parseFaDeposit(inboxID uint32, body []byte, ticketer tezos.Address) (Message, error) {
	const headerLen = 22 + 22 + 1
	if len(body) < headerLen {
		return Message{}, fmt.Errorf("inbox: fa deposit payload too short")
	}
	var creator, receiver tezos.Address
	if err := creator.UnmarshalBinary(body[0:22]); err != nil {
		return Message{}, fmt.Errorf("inbox: decoding fa deposit creator: %w", err)
	}
	if err := receiver.UnmarshalBinary(body[22:44]); err != nil {
		return Message{}, fmt.Errorf("inbox: decoding fa deposit receiver: %w", err)
	}
	offset := 44
	var proxy *tezos.Address
	hasProxy := body[offset]
	offset++
	if hasProxy != 0 {
		if len(body) < offset+22 {
			return Message{}, fmt.Errorf("inbox: fa deposit payload missing proxy")
		}
		var p tezos.Address
		if err := p.UnmarshalBinary(body[offset : offset+22]); err != nil {
			return Message{}, fmt.Errorf("inbox: decoding fa deposit proxy: %w", err)
		}
		proxy = &p
		offset += 22
	}
	if len(body) < offset+8 {
		return Message{}, fmt.Errorf("inbox: fa deposit payload missing amount")
	}
	amount := binary.BigEndian.Uint64(body[offset : offset+8])
	offset += 8
	content := body[offset:]

	ticketHash := tezos.NewTicketHash(creator, content)

	return Message{FaDeposit: &FaDeposit{
		InboxID:            inboxID,
		Amount:             amount,
		Receiver:           receiver,
		ProxySmartFunction: proxy,
		TicketHash:         ticketHash,
	}}, nil
}
