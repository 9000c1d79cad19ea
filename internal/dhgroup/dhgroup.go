// SPDX-License-Identifier: Apache-2.0

// Package dhgroup implements the RFC 2409 Second Oakley Group (1024-bit
// MODP, generator 2) Diffie-Hellman primitives used by the
// dh-ietf1024-sha256-aes128-cbc-pkcs7 Secret Service session algorithm.
package dhgroup

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"

	"github.com/mjlee/pimkeyring/internal/kerrors"
)

// groupSize is the byte length of the 1024-bit MODP group prime.
const groupSize = 128

// Prime is the RFC 2409 Second Oakley Group (Group 2) 1024-bit prime.
var Prime, _ = new(big.Int).SetString(
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1"+
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD"+
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245"+
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED"+
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE65381"+
		"FFFFFFFFFFFFFFFF",
	16,
)

// Generator is the group generator, 2.
var Generator = big.NewInt(2)

// Keypair is a DH private/public key pair in the RFC 2409 Group 2.
type Keypair struct {
	Private *big.Int
	Public  *big.Int
}

// Generate draws a fresh Keypair.
//
// The private exponent is 128 bytes (1024 bits) of cryptographically random
// data, interpreted directly as a big-endian integer. It is NOT reduced
// modulo P-1 and its parity is not forced odd; this matches the reference
// implementation exactly and is a known open question (see DESIGN.md) —
// interoperability with stricter peers is untested, not guessed.
func Generate() (Keypair, error) {
	buf := make([]byte, groupSize)
	if _, err := rand.Read(buf); err != nil {
		return Keypair{}, fmt.Errorf("generate dh private key: %w", err)
	}
	priv := new(big.Int).SetBytes(buf)
	pub := ModPow(Generator, priv, Prime)
	return Keypair{Private: priv, Public: pub}, nil
}

// ModPow computes base^exp mod mod.
func ModPow(base, exp, mod *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, mod)
}

// PadToGroupSize left-zero-pads n's big-endian byte representation to
// exactly groupSize (128) bytes, as required for values exchanged over the
// wire and fed into HKDF as IKM.
func PadToGroupSize(n *big.Int) []byte {
	out := make([]byte, groupSize)
	b := n.Bytes()
	copy(out[groupSize-len(b):], b)
	return out
}

// DeriveSharedKey computes the DH shared secret peerPub^priv mod P, left-pads
// it to 128 bytes, and derives a 16-byte AES-128 key via HKDF-SHA256 with an
// empty salt and empty info. Left-padding is load-bearing: peers that omit
// it will derive a different key for any shared secret with leading zero
// bytes.
func DeriveSharedKey(peerPub, priv *big.Int) ([]byte, error) {
	if peerPub == nil {
		return nil, kerrors.ErrMissingPublicKey
	}
	if priv == nil {
		return nil, kerrors.ErrMissingPrivateKey
	}
	shared := ModPow(peerPub, priv, Prime)
	ikm := PadToGroupSize(shared)

	reader := hkdf.New(sha256.New, ikm, nil, nil)
	key := make([]byte, 16)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDeriveSharedKey, err)
	}
	return key, nil
}
