// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tezos

// Base58check version prefixes for the address, key, and signature kinds
// jstz actually handles: the three implicit-account signature schemes
// (Ed25519, Secp256k1, P256) and originated KT1 smart function
// addresses. These are standard Tezos protocol constants (see
// `src/lib_crypto/base58.ml` in the Tezos reference implementation);
// each byte string below is also cross-checked against the literal
// address/key/signature test vectors carried alongside this package.
const (
	ED25519_PUBLIC_KEY_HASH_PREFIX   = "tz1"
	SECP256K1_PUBLIC_KEY_HASH_PREFIX = "tz2"
	P256_PUBLIC_KEY_HASH_PREFIX      = "tz3"
	NOCURVE_PUBLIC_KEY_HASH_PREFIX   = "KT1"

	ED25519_PUBLIC_KEY_PREFIX   = "edpk"
	SECP256K1_PUBLIC_KEY_PREFIX = "sppk"
	P256_PUBLIC_KEY_PREFIX      = "p2pk"

	ED25519_SEED_PREFIX         = "edsk"
	SECP256K1_SECRET_KEY_PREFIX = "spsk"
	P256_SECRET_KEY_PREFIX      = "p2sk"

	ED25519_SIGNATURE_PREFIX   = "edsig"
	SECP256K1_SIGNATURE_PREFIX = "spsig1"
	P256_SIGNATURE_PREFIX      = "p2sig"
	GENERIC_SIGNATURE_PREFIX   = "sig"
)

var (
	ED25519_PUBLIC_KEY_HASH_ID   = []byte{6, 161, 159}
	SECP256K1_PUBLIC_KEY_HASH_ID = []byte{6, 161, 161}
	P256_PUBLIC_KEY_HASH_ID      = []byte{6, 161, 164}
	NOCURVE_PUBLIC_KEY_HASH_ID   = []byte{2, 90, 121}

	ED25519_PUBLIC_KEY_ID   = []byte{13, 15, 37, 217}
	SECP256K1_PUBLIC_KEY_ID = []byte{3, 254, 226, 86}
	P256_PUBLIC_KEY_ID      = []byte{3, 178, 139, 127}

	ED25519_SEED_ID         = []byte{13, 15, 58, 7}
	SECP256K1_SECRET_KEY_ID = []byte{17, 162, 224, 201}
	P256_SECRET_KEY_ID      = []byte{16, 81, 238, 189}

	ED25519_SIGNATURE_ID   = []byte{9, 245, 205, 134, 18}
	SECP256K1_SIGNATURE_ID = []byte{13, 115, 101, 19, 63}
	P256_SIGNATURE_ID      = []byte{54, 240, 44, 52}
	GENERIC_SIGNATURE_ID   = []byte{4, 130, 43}
)
