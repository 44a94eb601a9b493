package operation

import (
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/tezos"
)

func parseAddress(s string) (tezos.Address, error) {
	a, err := tezos.ParseAddress(s)
	if err != nil {
		return tezos.Address{}, jstzerr.New(jstzerr.InvalidAddress, "%s: %v", s, err)
	}
	if !a.IsValid() {
		return tezos.Address{}, jstzerr.New(jstzerr.InvalidAddress, "empty or invalid address %q", s)
	}
	return a, nil
}

func parseKey(s string) (tezos.Key, error) {
	k, err := tezos.ParseKey(s)
	if err != nil {
		return tezos.Key{}, jstzerr.New(jstzerr.InvalidSignature, "invalid public key %s: %v", s, err)
	}
	if !k.IsValid() {
		return tezos.Key{}, jstzerr.New(jstzerr.InvalidSignature, "empty or invalid public key %q", s)
	}
	return k, nil
}

func parseSignature(s string) (tezos.Signature, error) {
	sig, err := tezos.ParseSignature(s)
	if err != nil {
		return tezos.Signature{}, jstzerr.New(jstzerr.InvalidSignature, "invalid signature %s: %v", s, err)
	}
	return sig, nil
}
