// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tezos

import (
	"testing"
)

func TestKey(t *testing.T) {
	type testcase struct {
		Address Address
		Priv    string
		Pub     string
	}

	cases := []testcase{
		// ed25519
		{
			Priv:    "edsk4FTF78Qf1m2rykGpHqostAiq5gYW4YZEoGUSWBTJr2njsDHSnd",
			Pub:     "edpkv45regue1bWtuHnCgLU8xWKLwa9qRqv4gimgJKro4LSc3C5VjV",
			Address: MustParseAddress("tz1LggX2HUdvJ1tF4Fvv8fjsrzLeW4Jr9t2Q"),
		},
		// secp256k1
		{
			Priv:    "spsk2oTAhiaSywh9ctt8yZLRxL3bo8Mayd3hKFi5iBaoqj2R8bx7ow",
			Pub:     "sppk7auhfZa5wAcR8hk3WCw47kHgG3Pp8zaP3ctdAqdDd2dBAeZBof1",
			Address: MustParseAddress("tz2VN9n2C56xGLykHCjhNvZQqUeTVisrHjxA"),
		},
		// p256
		{
			Priv:    "p2sk35q9MJHLN1SBHNhKq7oho1vnZL28bYfsSKDUrDn2e4XVcp6ohZ",
			Pub:     "p2pk64zMPtYav6yiaHV2DhSQ65gbKMr3gkLQtK7TTQCpJEVUhxxEnxo",
			Address: MustParseAddress("tz3Qa3kjWa6B3XgvZcVe24gTfjkc5WZRz59Q"),
		},
	}

	for i, c := range cases {
		if !IsPrivateKey(c.Priv) {
			t.Errorf("Case %d - Expected private key", i)
		}
		if !IsPublicKey(c.Pub) {
			t.Errorf("Case %d - Expected public key", i)
		}

		sk, err := ParsePrivateKey(c.Priv)
		if err != nil {
			t.Errorf("Case %d - Parsing key %s: %v", i, c.Priv, err)
		}
		if !sk.IsValid() {
			t.Errorf("Case %d - Expected valid key %s", i, c.Priv)
		}

		pk, err := ParseKey(c.Pub)
		if err != nil {
			t.Errorf("Case %d - Parsing pubkey %s: %v", i, c.Pub, err)
		}
		if !pk.IsValid() {
			t.Errorf("Case %d - Expected valid pubkey %s", i, c.Priv)
		}

		// generate pk from sk
		if check := sk.Public(); !check.IsEqual(pk) {
			t.Errorf("Case %d - Mismatch pk have=%s want=%s", i, check, pk)
		}

		// address from pk
		if got, want := pk.Address(), c.Address; !got.Equal(want) {
			t.Errorf("Case %d - Mismatch address got=%s want=%s", i, got, want)
		}
	}
}

func TestSign(t *testing.T) {
	type testcase struct {
		Priv string
		Pub  string
		Msg  string
	}

	cases := []testcase{
		{
			Priv: "edsk4FTF78Qf1m2rykGpHqostAiq5gYW4YZEoGUSWBTJr2njsDHSnd",
			Pub:  "edpkv45regue1bWtuHnCgLU8xWKLwa9qRqv4gimgJKro4LSc3C5VjV",
			Msg:  "hello",
		},
		{
			Priv: "spsk2oTAhiaSywh9ctt8yZLRxL3bo8Mayd3hKFi5iBaoqj2R8bx7ow",
			Pub:  "sppk7auhfZa5wAcR8hk3WCw47kHgG3Pp8zaP3ctdAqdDd2dBAeZBof1",
			Msg:  "hello",
		},
		{
			Priv: "p2sk35q9MJHLN1SBHNhKq7oho1vnZL28bYfsSKDUrDn2e4XVcp6ohZ",
			Pub:  "p2pk64zMPtYav6yiaHV2DhSQ65gbKMr3gkLQtK7TTQCpJEVUhxxEnxo",
			Msg:  "hello",
		},
	}

	for i, c := range cases {
		digest := Digest([]byte(c.Msg))
		sk := MustParsePrivateKey(c.Priv)
		pk := sk.Public()
		sig, err := sk.Sign(digest[:])
		if err != nil {
			t.Errorf("Case %d - Signing failed: %v", i, err)
		}
		if !sig.IsValid() {
			t.Errorf("Case %d - Invalid signature %s", i, sig)
		}
		if err := pk.Verify(digest[:], sig); err != nil {
			t.Errorf("Case %d - Verify failed %v", i, err)
		}
		if err := pk.Verify(digest[:], MustParseSignature(sig.Generic())); err != nil {
			t.Errorf("Case %d - Verify generic failed %v", i, err)
		}
	}
}
