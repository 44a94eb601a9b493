package main

import (
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"

	"jstz.dev/kernel/tezos"
)

// derivedKeys is the devnet key material a local run seeds the kv store
// with: the ticketer (the L1 contract the rollup trusts to mint native
// deposits) and the injector (the admin key, accepted but unused by
// validate.Execute today). Both are derived deterministically from their
// configured seed phrase, so a devnet host can be wiped and restarted
// without losing the address its tests were written against.
type derivedKeys struct {
	Ticketer tezos.Address
	Injector tezos.Key
}

// deriveSecp256k1Key turns seed into a tz2 private key via a single BIP32
// child derivation off a master key seeded with seed's blake2b-256
// digest, the same derive-from-passphrase pattern wallet.go uses for
// sandbox account generation.
func deriveSecp256k1Key(seed string) (tezos.PrivateKey, error) {
	entropy := tezos.Digest([]byte(seed))
	master, err := bip32.NewMasterKey(entropy[:])
	if err != nil {
		return tezos.PrivateKey{}, errors.Wrap(err, "deriving bip32 master key")
	}
	child, err := master.NewChildKey(bip32.FirstHardenedChild)
	if err != nil {
		return tezos.PrivateKey{}, errors.Wrap(err, "deriving bip32 child key")
	}
	return tezos.PrivateKey{Type: tezos.KeyTypeSecp256k1, Data: child.Key}, nil
}

// deriveKeys builds the devnet ticketer/injector from cfg's seed phrases.
// The ticketer is conventionally a KT1 contract rather than an implicit
// account on real networks, but for a local run its own implicit address
// is a stand-in: only its identity as a tezos.Address, not its contract
// semantics, matters to inbox.Parse's creator check.
func deriveKeys(cfg Config) (derivedKeys, error) {
	ticketerKey, err := deriveSecp256k1Key(cfg.TicketerSeed)
	if err != nil {
		return derivedKeys{}, errors.Wrap(err, "deriving ticketer key")
	}
	injectorKey, err := deriveSecp256k1Key(cfg.InjectorSeed)
	if err != nil {
		return derivedKeys{}, errors.Wrap(err, "deriving injector key")
	}
	return derivedKeys{
		Ticketer: ticketerKey.Address(),
		Injector: injectorKey.Public(),
	}, nil
}
