// Copyright (c) 2020-2021 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tezos

import (
	"bytes"
	"errors"
)

var (
	// ErrUnknownHashType describes an error where a hash can not
	// decoded as a specific hash type because the string encoding
	// starts with an unknown identifier.
	ErrUnknownHashType = errors.New("tezos: unknown hash type")

	// InvalidHash represents an empty invalid hash type
	InvalidHash = Hash{Type: HashTypeInvalid, Hash: nil}
)

// HashType enumerates the fixed-length hash kinds jstz's crypto layer
// works with: public key hashes (used as implicit account addresses),
// raw public/secret key digests, and signature kinds. Tezos defines a
// much larger family (block hashes, operation hashes, sapling and
// BLS12-381 variants, other rollups' address kinds, ...); none of those
// ever appear inside a signed operation, an account, or a ticket, so
// they are not modeled here.
type HashType byte

const (
	HashTypeInvalid HashType = iota
	HashTypePkhEd25519
	HashTypePkhSecp256k1
	HashTypePkhP256
	HashTypePkhNocurve
	HashTypePkEd25519
	HashTypeSkEd25519
	HashTypePkSecp256k1
	HashTypeSkSecp256k1
	HashTypePkP256
	HashTypeSkP256
	HashTypeSigEd25519
	HashTypeSigSecp256k1
	HashTypeSigP256
	HashTypeSigGeneric
	// HashTypeTicket is a generic blake2b-256 digest identifying an FA
	// ticket by its creator and content, as used by the ticket table and
	// inbox's FA-deposit parsing. It has no base58 prefix of its own —
	// it never appears as a user-facing string, only as a raw key.
	HashTypeTicket
)

func (t HashType) IsValid() bool {
	return t != HashTypeInvalid
}

func (t HashType) String() string {
	switch t {
	case HashTypePkhEd25519:
		return "pkhed25519"
	case HashTypePkhSecp256k1:
		return "pkhsecp256k1"
	case HashTypePkhP256:
		return "pkhp256"
	case HashTypePkhNocurve:
		return "pkhnocurve"
	case HashTypePkEd25519:
		return "pked25519"
	case HashTypeSkEd25519:
		return "sked25519"
	case HashTypePkSecp256k1:
		return "pksecp256k1"
	case HashTypeSkSecp256k1:
		return "sksecp256k1"
	case HashTypePkP256:
		return "pkp256"
	case HashTypeSkP256:
		return "skp256"
	case HashTypeSigEd25519:
		return "siged25519"
	case HashTypeSigSecp256k1:
		return "sigsecp256k1"
	case HashTypeSigP256:
		return "sigp256"
	case HashTypeSigGeneric:
		return "siggeneric"
	case HashTypeTicket:
		return "ticket"
	default:
		return "invalid"
	}
}

func (t HashType) Prefix() string {
	switch t {
	case HashTypePkhEd25519:
		return ED25519_PUBLIC_KEY_HASH_PREFIX
	case HashTypePkhSecp256k1:
		return SECP256K1_PUBLIC_KEY_HASH_PREFIX
	case HashTypePkhP256:
		return P256_PUBLIC_KEY_HASH_PREFIX
	case HashTypePkhNocurve:
		return NOCURVE_PUBLIC_KEY_HASH_PREFIX
	case HashTypePkEd25519:
		return ED25519_PUBLIC_KEY_PREFIX
	case HashTypeSkEd25519:
		return ED25519_SEED_PREFIX
	case HashTypePkSecp256k1:
		return SECP256K1_PUBLIC_KEY_PREFIX
	case HashTypeSkSecp256k1:
		return SECP256K1_SECRET_KEY_PREFIX
	case HashTypePkP256:
		return P256_PUBLIC_KEY_PREFIX
	case HashTypeSkP256:
		return P256_SECRET_KEY_PREFIX
	case HashTypeSigEd25519:
		return ED25519_SIGNATURE_PREFIX
	case HashTypeSigSecp256k1:
		return SECP256K1_SIGNATURE_PREFIX
	case HashTypeSigP256:
		return P256_SIGNATURE_PREFIX
	case HashTypeSigGeneric:
		return GENERIC_SIGNATURE_PREFIX
	default:
		return ""
	}
}

func (t HashType) PrefixBytes() []byte {
	switch t {
	case HashTypePkhEd25519:
		return ED25519_PUBLIC_KEY_HASH_ID
	case HashTypePkhSecp256k1:
		return SECP256K1_PUBLIC_KEY_HASH_ID
	case HashTypePkhP256:
		return P256_PUBLIC_KEY_HASH_ID
	case HashTypePkhNocurve:
		return NOCURVE_PUBLIC_KEY_HASH_ID
	case HashTypePkEd25519:
		return ED25519_PUBLIC_KEY_ID
	case HashTypeSkEd25519:
		return ED25519_SEED_ID
	case HashTypePkSecp256k1:
		return SECP256K1_PUBLIC_KEY_ID
	case HashTypeSkSecp256k1:
		return SECP256K1_SECRET_KEY_ID
	case HashTypePkP256:
		return P256_PUBLIC_KEY_ID
	case HashTypeSkP256:
		return P256_SECRET_KEY_ID
	case HashTypeSigEd25519:
		return ED25519_SIGNATURE_ID
	case HashTypeSigSecp256k1:
		return SECP256K1_SIGNATURE_ID
	case HashTypeSigP256:
		return P256_SIGNATURE_ID
	case HashTypeSigGeneric:
		return GENERIC_SIGNATURE_ID
	default:
		return nil
	}
}

// Len returns the raw (decoded) byte length for the hash kind.
func (t HashType) Len() int {
	switch t {
	case HashTypePkhEd25519, HashTypePkhSecp256k1, HashTypePkhP256, HashTypePkhNocurve:
		return 20
	case HashTypePkEd25519:
		return 32
	case HashTypePkSecp256k1, HashTypePkP256:
		return 33
	case HashTypeSkSecp256k1, HashTypeSkP256:
		return 32
	// HashTypeSkEd25519 sizes the in-memory PrivateKey.Data for the
	// Ed25519 case, which stores the full 64-byte expanded key (seed ||
	// public key), not the 32-byte seed used by the edsk string encoding.
	case HashTypeSkEd25519, HashTypeSigEd25519, HashTypeSigSecp256k1, HashTypeSigP256, HashTypeSigGeneric:
		return 64
	case HashTypeTicket:
		return 32
	default:
		return 0
	}
}

// Hash is a generic fixed-length, base58check-encodable digest used for
// the pieces of the crypto layer that don't need the richer Address or
// Key wrapper (notably, raw signature bytes before they're classified
// into a Signature's scheme).
type Hash struct {
	Type HashType
	Hash []byte
}

func (h Hash) IsValid() bool {
	return h.Type != HashTypeInvalid && len(h.Hash) == h.Type.Len()
}

func (h Hash) IsEmpty() bool {
	return len(h.Hash) == 0
}

func (h Hash) Equal(h2 Hash) bool {
	return h.Type == h2.Type && bytes.Equal(h.Hash, h2.Hash)
}

func (h Hash) Clone() Hash {
	x := Hash{Type: h.Type, Hash: make([]byte, len(h.Hash))}
	copy(x.Hash, h.Hash)
	return x
}

func (h Hash) Bytes() []byte {
	return h.Hash
}
