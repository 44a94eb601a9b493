// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package base58 implements Tezos-style base58check encoding: base58 over
// a version-prefixed payload with a 4-byte double-SHA256 checksum. Unlike
// Bitcoin's single-byte version, Tezos prefixes vary in length (3-5 bytes)
// depending on hash kind, so CheckDecode takes the expected prefix length
// explicitly rather than inferring it from a lookup table.
package base58

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"math/big"
)

// ErrChecksum indicates that the checksum of a check-encoded string does
// not verify against the checksum.
var ErrChecksum = errors.New("base58: checksum mismatch")

// ErrInvalidFormat indicates that the check-encoded string has an invalid
// format.
var ErrInvalidFormat = errors.New("base58: invalid format")

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	bigRadix = big.NewInt(58)
	bigZero  = big.NewInt(0)
)

// Encode encodes a byte slice to a base58-encoded string.
func Encode(b []byte) string {
	x := new(big.Int)
	x.SetBytes(b)

	answer := make([]byte, 0, len(b)*136/100+1)
	mod := new(big.Int)
	for x.Cmp(bigZero) > 0 {
		x.DivMod(x, bigRadix, mod)
		answer = append(answer, alphabet[mod.Int64()])
	}

	// leading zero bytes become leading '1's
	for _, i := range b {
		if i != 0 {
			break
		}
		answer = append(answer, alphabet[0])
	}

	// reverse
	for i, j := 0, len(answer)-1; i < j; i, j = i+1, j-1 {
		answer[i], answer[j] = answer[j], answer[i]
	}
	return string(answer)
}

var decodeTable [256]int8

func init() {
	for i := range decodeTable {
		decodeTable[i] = -1
	}
	for i, c := range alphabet {
		decodeTable[c] = int8(i)
	}
}

// Decode decodes a base58-encoded string into a byte slice. buf is
// reserved for forward-compatible call sites and is currently unused.
func Decode(s string, buf []byte) ([]byte, error) {
	answer := big.NewInt(0)
	scratch := new(big.Int)
	for i := 0; i < len(s); i++ {
		d := decodeTable[s[i]]
		if d < 0 {
			return nil, ErrInvalidFormat
		}
		answer.Mul(answer, bigRadix)
		scratch.SetInt64(int64(d))
		answer.Add(answer, scratch)
	}

	decoded := answer.Bytes()
	// restore leading zero bytes for each leading '1' in s
	nLeading := 0
	for nLeading < len(s) && s[nLeading] == alphabet[0] {
		nLeading++
	}
	if nLeading == 0 {
		return decoded, nil
	}
	out := make([]byte, nLeading+len(decoded))
	copy(out[nLeading:], decoded)
	return out, nil
}

func checksum(payload []byte) (cksum [4]byte) {
	h1 := sha256.Sum256(payload)
	h2 := sha256.Sum256(h1[:])
	copy(cksum[:], h2[:4])
	return
}

// CheckEncode prepends a version prefix to input, appends a 4-byte
// double-SHA256 checksum, and base58-encodes the result.
func CheckEncode(input []byte, version []byte) string {
	payload := make([]byte, 0, len(version)+len(input)+4)
	payload = append(payload, version...)
	payload = append(payload, input...)
	cksum := checksum(payload)
	payload = append(payload, cksum[:]...)
	return Encode(payload)
}

// CheckDecode decodes a base58check string, validating its checksum and
// splitting off a version prefix of versionSize bytes. buf is reserved
// for forward-compatible call sites and is currently unused.
func CheckDecode(input string, versionSize int, buf []byte) (decoded []byte, version []byte, err error) {
	raw, err := Decode(input, nil)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) < versionSize+4 {
		return nil, nil, ErrInvalidFormat
	}
	payload := raw[:len(raw)-4]
	cksum := raw[len(raw)-4:]
	expected := checksum(payload)
	if !bytes.Equal(cksum, expected[:]) {
		return nil, nil, ErrChecksum
	}
	return payload[versionSize:], payload[:versionSize], nil
}
