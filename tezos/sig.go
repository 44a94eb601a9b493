// Copyright (c) 2020-2021 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tezos

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"jstz.dev/kernel/base58"
)

var (
	// ErrUnknownSignatureType describes an error where a type for a
	// signature is undefined.
	ErrUnknownSignatureType = errors.New("unknown signature type")

	// ErrSignature is returned when signature verification fails
	ErrSignature = errors.New("signature mismatch")

	// InvalidSignature represents an empty invalid signature
	InvalidSignature = Signature{Type: SignatureTypeInvalid, Data: nil}
)

// SignatureType represents the signature scheme behind a Tezos
// signature: the three curves an implicit account may sign with, plus
// the untagged "generic" encoding any of them can be re-exported as.
// BLS12-381 (and its aggregate form) never appears in a signed
// operation jstz accepts and is not represented here.
type SignatureType byte

const (
	SignatureTypeEd25519 SignatureType = iota
	SignatureTypeSecp256k1
	SignatureTypeP256
	SignatureTypeGeneric
	SignatureTypeInvalid
)

func (t SignatureType) IsValid() bool {
	return t < SignatureTypeInvalid
}

func (t SignatureType) HashType() HashType {
	switch t {
	case SignatureTypeEd25519:
		return HashTypeSigEd25519
	case SignatureTypeSecp256k1:
		return HashTypeSigSecp256k1
	case SignatureTypeP256:
		return HashTypeSigP256
	case SignatureTypeGeneric:
		return HashTypeSigGeneric
	default:
		return HashTypeInvalid
	}
}

func (t SignatureType) PrefixBytes() []byte {
	switch t {
	case SignatureTypeEd25519:
		return ED25519_SIGNATURE_ID
	case SignatureTypeSecp256k1:
		return SECP256K1_SIGNATURE_ID
	case SignatureTypeP256:
		return P256_SIGNATURE_ID
	case SignatureTypeGeneric:
		return GENERIC_SIGNATURE_ID
	default:
		return nil
	}
}

func (t SignatureType) Prefix() string {
	switch t {
	case SignatureTypeEd25519:
		return ED25519_SIGNATURE_PREFIX
	case SignatureTypeSecp256k1:
		return SECP256K1_SIGNATURE_PREFIX
	case SignatureTypeP256:
		return P256_SIGNATURE_PREFIX
	case SignatureTypeGeneric:
		return GENERIC_SIGNATURE_PREFIX
	default:
		return ""
	}
}

func (t SignatureType) String() string {
	return t.Prefix()
}

func (t SignatureType) Tag() byte {
	switch t {
	case SignatureTypeEd25519:
		return 0
	case SignatureTypeSecp256k1:
		return 1
	case SignatureTypeP256:
		return 2
	default:
		return 255
	}
}

func ParseSignatureTag(b byte) SignatureType {
	switch b {
	case 0:
		return SignatureTypeEd25519
	case 1:
		return SignatureTypeSecp256k1
	case 2:
		return SignatureTypeP256
	default:
		return SignatureTypeGeneric
	}
}

func HasSignaturePrefix(s string) bool {
	for _, prefix := range []string{
		ED25519_SIGNATURE_PREFIX,
		SECP256K1_SIGNATURE_PREFIX,
		P256_SIGNATURE_PREFIX,
		GENERIC_SIGNATURE_PREFIX,
	} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func (t SignatureType) Len() int {
	if t == SignatureTypeInvalid {
		return 0
	}
	return 64
}

func IsSignature(s string) bool {
	return HasSignaturePrefix(s)
}

// Signature represents a typed Tezos signature.
type Signature struct {
	Type SignatureType
	Data []byte
}

func NewSignature(typ SignatureType, data []byte) Signature {
	return Signature{
		Type: typ,
		Data: data,
	}
}

func (s Signature) IsValid() bool {
	return s.Type.IsValid() && s.Type.Len() == len(s.Data)
}

func (s Signature) Equal(s2 Signature) bool {
	return s.Type == s2.Type && bytes.Equal(s.Data, s2.Data)
}

func (s Signature) Clone() Signature {
	buf := make([]byte, len(s.Data))
	copy(buf, s.Data)
	return Signature{
		Type: s.Type,
		Data: buf,
	}
}

// Generic converts a typed Tezos signature into the untagged generic
// signature encoding, as used wherever a scheme-agnostic signature
// string is expected.
func (s Signature) Generic() string {
	if !s.IsValid() {
		return ""
	}
	return base58.CheckEncode(s.Data, GENERIC_SIGNATURE_ID)
}

func (s Signature) String() string {
	if !s.IsValid() {
		return ""
	}
	return base58.CheckEncode(s.Data, s.Type.PrefixBytes())
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(data []byte) error {
	sig, err := ParseSignature(string(data))
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

func (s Signature) Bytes() []byte {
	tag := s.Type.Tag()
	if tag == 255 {
		return s.Data
	}
	return append([]byte{tag}, s.Data...)
}

func (s Signature) MarshalBinary() ([]byte, error) {
	if !s.Type.IsValid() {
		return nil, ErrUnknownSignatureType
	}
	return s.Bytes(), nil
}

func (s *Signature) UnmarshalBinary(b []byte) error {
	switch len(b) {
	case 64:
		s.Type = SignatureTypeGeneric
	case 65:
		typ := ParseSignatureTag(b[0])
		if !typ.IsValid() {
			return fmt.Errorf("tezos: invalid binary signature type %x", b[0])
		}
		s.Type = typ
		b = b[1:]
	default:
		return fmt.Errorf("tezos: invalid binary signature length %d", len(b))
	}
	if cap(s.Data) < s.Type.Len() {
		s.Data = make([]byte, s.Type.Len())
	} else {
		s.Data = s.Data[:s.Type.Len()]
	}
	copy(s.Data, b)
	return nil
}

func ParseSignature(s string) (sig Signature, err error) {
	var (
		dec, ver []byte
		typ      SignatureType
	)
	switch {
	case strings.HasPrefix(s, ED25519_SIGNATURE_PREFIX):
		dec, ver, err = base58.CheckDecode(s, 5, nil)
		typ = SignatureTypeEd25519

	case strings.HasPrefix(s, SECP256K1_SIGNATURE_PREFIX):
		dec, ver, err = base58.CheckDecode(s, 5, nil)
		typ = SignatureTypeSecp256k1

	case strings.HasPrefix(s, P256_SIGNATURE_PREFIX):
		dec, ver, err = base58.CheckDecode(s, 4, nil)
		typ = SignatureTypeP256

	case strings.HasPrefix(s, GENERIC_SIGNATURE_PREFIX):
		dec, ver, err = base58.CheckDecode(s, 3, nil)
		typ = SignatureTypeGeneric

	default:
		err = fmt.Errorf("tezos: unknown signature prefix %s", s)
		return
	}

	if err != nil {
		if err == base58.ErrChecksum {
			err = ErrChecksumMismatch
			return
		}
		err = fmt.Errorf("tezos: unknown signature format: %w", err)
		return
	}

	if !bytes.Equal(ver, typ.PrefixBytes()) {
		err = fmt.Errorf("tezos: invalid signature type %x for %s", ver, typ.Prefix())
		return
	}

	if l := len(dec); l < typ.Len() {
		err = fmt.Errorf("tezos: invalid length %d for %s signature data", l, typ.Prefix())
		return
	}

	sig.Type = typ
	sig.Data = dec[:typ.Len()]
	return
}

func MustParseSignature(s string) Signature {
	sig, err := ParseSignature(s)
	if err != nil {
		panic(err)
	}
	return sig
}
