// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tezos

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"jstz.dev/kernel/base58"
)

var (
	// ErrChecksumMismatch describes an error where decoding failed due
	// to a bad checksum.
	ErrChecksumMismatch = errors.New("tezos: checksum mismatch")

	// ErrUnknownAddressType describes an error where an address can not
	// decoded as a specific address type due to the string encoding
	// begining with an identifier byte unknown to any standard or
	// registered (via Register) network.
	ErrUnknownAddressType = errors.New("tezos: unknown address type")

	// InvalidAddress is an empty invalid address
	InvalidAddress = Address{Type: AddressTypeInvalid, Hash: nil}

	// ZeroAddress is a tz1 address with all bytes zero
	ZeroAddress = Address{Type: AddressTypeEd25519, Hash: make([]byte, HashTypePkhEd25519.Len())}
)

// AddressType represents the signature scheme (or contract origination)
// behind a Tezos address. jstz only ever sees implicit accounts signed
// with one of the three curves plus originated KT1 smart function
// addresses; the other historical Tezos address kinds (blinded
// commitments, sapling shielded pools, BLS aggregate keys, other
// rollups) never appear in an inbox message or account entry and are
// not represented here.
type AddressType byte

const (
	AddressTypeInvalid AddressType = iota
	AddressTypeEd25519
	AddressTypeSecp256k1
	AddressTypeP256
	AddressTypeContract
)

func ParseAddressType(s string) AddressType {
	switch s {
	case "ed25519", ED25519_PUBLIC_KEY_HASH_PREFIX:
		return AddressTypeEd25519
	case "secp256k1", SECP256K1_PUBLIC_KEY_HASH_PREFIX:
		return AddressTypeSecp256k1
	case "p256", P256_PUBLIC_KEY_HASH_PREFIX:
		return AddressTypeP256
	case "contract", NOCURVE_PUBLIC_KEY_HASH_PREFIX:
		return AddressTypeContract
	default:
		return AddressTypeInvalid
	}
}

func (t AddressType) IsValid() bool {
	return t != AddressTypeInvalid
}

func (t AddressType) String() string {
	switch t {
	case AddressTypeEd25519:
		return "ed25519"
	case AddressTypeSecp256k1:
		return "secp256k1"
	case AddressTypeP256:
		return "p256"
	case AddressTypeContract:
		return "contract"
	default:
		return "invalid"
	}
}

func (t AddressType) Prefix() string {
	switch t {
	case AddressTypeEd25519:
		return ED25519_PUBLIC_KEY_HASH_PREFIX
	case AddressTypeSecp256k1:
		return SECP256K1_PUBLIC_KEY_HASH_PREFIX
	case AddressTypeP256:
		return P256_PUBLIC_KEY_HASH_PREFIX
	case AddressTypeContract:
		return NOCURVE_PUBLIC_KEY_HASH_PREFIX
	default:
		return ""
	}
}

func (t AddressType) Tag() byte {
	switch t {
	case AddressTypeEd25519:
		return 0
	case AddressTypeSecp256k1:
		return 1
	case AddressTypeP256:
		return 2
	default:
		return 255
	}
}

func ParseAddressTag(b byte) AddressType {
	switch b {
	case 0:
		return AddressTypeEd25519
	case 1:
		return AddressTypeSecp256k1
	case 2:
		return AddressTypeP256
	default:
		return AddressTypeInvalid
	}
}

func (t *AddressType) UnmarshalText(data []byte) error {
	typ := ParseAddressType(string(data))
	if !typ.IsValid() {
		return ErrUnknownAddressType
	}
	*t = typ
	return nil
}

func (t AddressType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func HasAddressPrefix(s string) bool {
	for _, prefix := range []string{
		ED25519_PUBLIC_KEY_HASH_PREFIX,
		SECP256K1_PUBLIC_KEY_HASH_PREFIX,
		P256_PUBLIC_KEY_HASH_PREFIX,
		NOCURVE_PUBLIC_KEY_HASH_PREFIX,
	} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func (t AddressType) HashType() HashType {
	switch t {
	case AddressTypeEd25519:
		return HashTypePkhEd25519
	case AddressTypeSecp256k1:
		return HashTypePkhSecp256k1
	case AddressTypeP256:
		return HashTypePkhP256
	case AddressTypeContract:
		return HashTypePkhNocurve
	default:
		return HashTypeInvalid
	}
}

func (t AddressType) KeyType() KeyType {
	switch t {
	case AddressTypeEd25519:
		return KeyTypeEd25519
	case AddressTypeSecp256k1:
		return KeyTypeSecp256k1
	case AddressTypeP256:
		return KeyTypeP256
	default:
		return KeyTypeInvalid
	}
}

// Address is a tagged-union Tezos address: either an implicit account
// (tz1/tz2/tz3, keyed to one of the three signature schemes) or an
// originated smart function (KT1). Hash is always the 20-byte
// blake2b digest identifying the account within its type.
type Address struct {
	Type AddressType
	Hash []byte
}

func NewAddress(typ AddressType, hash []byte) Address {
	a := Address{
		Type: typ,
		Hash: make([]byte, len(hash)),
	}
	copy(a.Hash, hash)
	return a
}

func (a Address) IsValid() bool {
	return a.Type != AddressTypeInvalid && len(a.Hash) == a.Type.HashType().Len()
}

func (a Address) IsEOA() bool {
	switch a.Type {
	case AddressTypeEd25519, AddressTypeSecp256k1, AddressTypeP256:
		return true
	default:
		return false
	}
}

func (a Address) IsContract() bool {
	return a.Type == AddressTypeContract
}

func (a Address) Equal(b Address) bool {
	return a.Type == b.Type && bytes.Equal(a.Hash, b.Hash)
}

func (a Address) Clone() Address {
	x := Address{
		Type: a.Type,
		Hash: make([]byte, len(a.Hash)),
	}
	copy(x.Hash, a.Hash)
	return x
}

// String returns the string encoding of the address.
func (a Address) String() string {
	s, _ := EncodeAddress(a.Type, a.Hash)
	return s
}

func (a Address) Short() string {
	s := a.String()
	if len(s) < 12 {
		return s
	}
	return s[:8] + "..." + s[len(s)-4:]
}

func (a *Address) UnmarshalText(data []byte) error {
	astr := strings.Split(string(data), "%")[0]
	addr, err := ParseAddress(astr)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Bytes returns the 21 byte tagged binary hash value of the address: a
// one-byte tag (the key type's tag for implicit accounts, 01 for
// contracts) followed by the 20-byte hash, as hashed by
// NewContractAddress and NewTicketHash.
func (a Address) Bytes() []byte {
	switch a.Type {
	case AddressTypeInvalid:
		return nil
	case AddressTypeContract:
		return append([]byte{01}, a.Hash...)
	default:
		return append([]byte{a.Type.Tag()}, a.Hash...)
	}
}

// Bytes22 returns the 22 byte tagged and padded binary encoding used by
// Micheline `address` typed values: for implicit accounts a leading
// 0-byte, the tag, then the 20-byte hash; for contracts the tag 01, the
// 20-byte hash, then a trailing 0-byte.
func (a Address) Bytes22() []byte {
	switch a.Type {
	case AddressTypeInvalid:
		return nil
	case AddressTypeContract:
		buf := append([]byte{01}, a.Hash...)
		buf = append(buf, byte(0))
		return buf
	default:
		return append([]byte{00, a.Type.Tag()}, a.Hash...)
	}
}

// MarshalBinary always output the 22 byte version for contracts and EOAs.
func (a Address) MarshalBinary() ([]byte, error) {
	if a.Type == AddressTypeInvalid {
		return nil, ErrUnknownAddressType
	}
	return a.Bytes22(), nil
}

// UnmarshalBinary reads a 21 byte or 22 byte address versions and is
// resilient to longer byte strings that contain extra padding or a suffix
// (e.g. an entrypoint suffix as found in smart function calldata).
func (a *Address) UnmarshalBinary(b []byte) error {
	switch {
	case len(b) >= 22 && (b[0] == 0 || b[0] == 1):
		switch b[0] {
		case 0:
			a.Type = ParseAddressTag(b[1])
			b = b[2:22]
		case 1:
			a.Type = AddressTypeContract
			b = b[1:21]
		}
	case len(b) >= 21:
		a.Type = ParseAddressTag(b[0])
		b = b[1:21]
	default:
		return fmt.Errorf("tezos: invalid binary address length %d", len(b))
	}
	if !a.Type.IsValid() {
		return ErrUnknownAddressType
	}
	if cap(a.Hash) < 20 {
		a.Hash = make([]byte, 20)
	} else {
		a.Hash = a.Hash[:20]
	}
	copy(a.Hash, b)
	return nil
}

// IsAddressBytes checks whether a buffer likely contains a binary encoded address.
func IsAddressBytes(b []byte) bool {
	switch {
	case len(b) == 22 && (b[0] == 0 || b[0] == 1):
		return true
	case len(b) == 21:
		return ParseAddressTag(b[0]) != AddressTypeInvalid
	default:
		return false
	}
}

// ContractAddress returns the string encoding of the address when used
// as an originated smart function.
func (a Address) ContractAddress() string {
	s, _ := EncodeAddress(AddressTypeContract, a.Hash)
	return s
}

// NewTicketHash computes the ticket-table key for an FA ticket:
// blake2b-256 of the ticket's creator address bytes concatenated with
// its canonically-encoded content, as used by inbox FA-deposit parsing
// and the ticket table.
func NewTicketHash(creator Address, content []byte) Hash {
	digest := Digest(append(append([]byte{}, creator.Bytes()...), content...))
	return Hash{Type: HashTypeTicket, Hash: digest[:]}
}

// NewContractAddress deterministically derives the KT1 address of a
// smart function deployed by source at nonce with the given code,
// hashing source||nonce||code with a 20-byte blake2b digest — the same
// construction tezos/key.go uses to derive a public-key-hash address
// from a public key.
func NewContractAddress(source Address, nonce uint64, code []byte) (Address, error) {
	h, err := blake2b.New(20, nil)
	if err != nil {
		return Address{}, err
	}
	h.Write(source.Bytes())
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], nonce)
	h.Write(nb[:])
	h.Write(code)
	return Address{Type: AddressTypeContract, Hash: h.Sum(nil)}, nil
}

func MustParseAddress(addr string) Address {
	a, err := ParseAddress(addr)
	if err != nil {
		panic(err)
	}
	return a
}

func ParseAddress(addr string) (Address, error) {
	if len(addr) == 0 {
		return InvalidAddress, nil
	}
	a := Address{}
	decoded, version, err := base58.CheckDecode(addr, 3, nil)
	if err != nil {
		if err == base58.ErrChecksum {
			return a, ErrChecksumMismatch
		}
		return a, fmt.Errorf("tezos: decoded address is of unknown format: %w", err)
	}
	if len(decoded) != 20 {
		return a, errors.New("tezos: decoded address hash is of invalid length")
	}
	switch {
	case bytes.Equal(version, ED25519_PUBLIC_KEY_HASH_ID):
		return Address{Type: AddressTypeEd25519, Hash: decoded}, nil
	case bytes.Equal(version, SECP256K1_PUBLIC_KEY_HASH_ID):
		return Address{Type: AddressTypeSecp256k1, Hash: decoded}, nil
	case bytes.Equal(version, P256_PUBLIC_KEY_HASH_ID):
		return Address{Type: AddressTypeP256, Hash: decoded}, nil
	case bytes.Equal(version, NOCURVE_PUBLIC_KEY_HASH_ID):
		return Address{Type: AddressTypeContract, Hash: decoded}, nil
	default:
		return a, fmt.Errorf("tezos: decoded address %s is of unknown type %x", addr, version)
	}
}

func EncodeAddress(typ AddressType, addrhash []byte) (string, error) {
	if len(addrhash) != 20 {
		return "", fmt.Errorf("tezos: invalid address hash")
	}
	switch typ {
	case AddressTypeEd25519:
		return base58.CheckEncode(addrhash, ED25519_PUBLIC_KEY_HASH_ID), nil
	case AddressTypeSecp256k1:
		return base58.CheckEncode(addrhash, SECP256K1_PUBLIC_KEY_HASH_ID), nil
	case AddressTypeP256:
		return base58.CheckEncode(addrhash, P256_PUBLIC_KEY_HASH_ID), nil
	case AddressTypeContract:
		return base58.CheckEncode(addrhash, NOCURVE_PUBLIC_KEY_HASH_ID), nil
	default:
		return "", fmt.Errorf("tezos: unknown address type %s for hash=%x", typ, addrhash)
	}
}
