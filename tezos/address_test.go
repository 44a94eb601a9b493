// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tezos

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func MustDecodeString(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestAddress(t *testing.T) {
	type testcase struct {
		Name    string
		String  string
		HashHex string
		Type    AddressType
	}

	cases := []testcase{
		{
			Name:    "tz1",
			String:  "tz1LggX2HUdvJ1tF4Fvv8fjsrzLeW4Jr9t2Q",
			HashHex: "0b78887fdd0cd3bfbe75a717655728e0205bb958",
			Type:    AddressTypeEd25519,
		},
		{
			Name:    "tz2",
			String:  "tz2VN9n2C56xGLykHCjhNvZQqUeTVisrHjxA",
			HashHex: "e6e7cfd00186c29ede318bef62ac85ddec8a50d5",
			Type:    AddressTypeSecp256k1,
		},
		{
			Name:    "tz3",
			String:  "tz3Qa3kjWa6B3XgvZcVe24gTfjkc5WZRz59Q",
			HashHex: "2e8671595e32ddd3c1e3f229898e9bec727eca90",
			Type:    AddressTypeP256,
		},
	}

	for _, c := range cases {
		want, err := hex.DecodeString(c.HashHex)
		if err != nil {
			t.Fatalf("%s: bad test fixture: %v", c.Name, err)
		}

		addr, err := ParseAddress(c.String)
		if err != nil {
			t.Fatalf("%s: parsing address %s: %v", c.Name, c.String, err)
		}
		if addr.Type != c.Type {
			t.Errorf("%s: mismatched type got=%s want=%s", c.Name, addr.Type, c.Type)
		}
		if !bytes.Equal(addr.Hash, want) {
			t.Errorf("%s: mismatched hash got=%x want=%x", c.Name, addr.Hash, want)
		}
		if got := addr.String(); got != c.String {
			t.Errorf("%s: mismatched text encoding got=%s want=%s", c.Name, got, c.String)
		}
		if !addr.IsValid() {
			t.Errorf("%s: expected valid address", c.Name)
		}

		// binary round-trip
		bin, err := addr.MarshalBinary()
		if err != nil {
			t.Fatalf("%s: marshal binary: %v", c.Name, err)
		}
		var addr2 Address
		if err := addr2.UnmarshalBinary(bin); err != nil {
			t.Fatalf("%s: unmarshal binary: %v", c.Name, err)
		}
		if !addr2.Equal(addr) {
			t.Errorf("%s: binary round-trip mismatch got=%s want=%s", c.Name, addr2, addr)
		}
	}
}

func TestContractAddress(t *testing.T) {
	const s = "KT1GyeRktoGPEKsWpchWguyy8FAf3aNHkw2T"
	want := MustDecodeString("5c149d65c5ca113bc2bc3c861ef6ea8030d71553")

	addr, err := ParseAddress(s)
	if err != nil {
		t.Fatalf("parsing contract address: %v", err)
	}
	if addr.Type != AddressTypeContract {
		t.Errorf("expected contract type, got %s", addr.Type)
	}
	if !bytes.Equal(addr.Hash, want) {
		t.Errorf("mismatched hash got=%x want=%x", addr.Hash, want)
	}
	if !addr.IsContract() {
		t.Errorf("expected IsContract() true")
	}
	if addr.IsEOA() {
		t.Errorf("expected IsEOA() false")
	}
}

func TestInvalidAddress(t *testing.T) {
	if _, err := ParseAddress("not-an-address"); err == nil {
		t.Errorf("expected error on invalid base58 string")
	}

	a, err := ParseAddress("")
	if err != nil {
		t.Errorf("expected no error on empty string, got %v", err)
	}
	if a.IsValid() {
		t.Errorf("expected empty address to be invalid")
	}
}

func TestAddressEqualAndClone(t *testing.T) {
	a := MustParseAddress("tz1LggX2HUdvJ1tF4Fvv8fjsrzLeW4Jr9t2Q")
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatalf("clone should equal original")
	}
	b.Hash[0] ^= 0xff
	if a.Equal(b) {
		t.Fatalf("mutating clone must not affect original")
	}
}
