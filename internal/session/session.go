// SPDX-License-Identifier: Apache-2.0

// Package session models a negotiated Secret Service session: either Plain
// (no encryption) or Dh (DH key agreement + AES-128-CBC transport
// encryption). A Session performs no I/O; it is built once the D-Bus
// OpenSession call has returned and is then immutable.
package session

import (
	"math/big"

	"github.com/godbus/dbus/v5"

	"github.com/mjlee/pimkeyring/internal/dhgroup"
)

// Algorithm identifies the session negotiation algorithm.
type Algorithm string

const (
	Plain Algorithm = "plain"
	Dh    Algorithm = "dh-ietf1024-sha256-aes128-cbc-pkcs7"
)

// Session is a negotiated channel with the Secret Service daemon.
type Session struct {
	Path       dbus.ObjectPath
	Algorithm  Algorithm
	Keypair    dhgroup.Keypair // zero value for Plain
	PeerPublic *big.Int        // nil for Plain
	sharedKey  []byte          // nil for Plain, 16 bytes for Dh
}

// NewPlain builds a Session that performs no encryption.
func NewPlain(path dbus.ObjectPath) *Session {
	return &Session{Path: path, Algorithm: Plain}
}

// NewDH builds a Session using the DH-IETF1024-SHA256-AES128-CBC-PKCS7
// algorithm. The shared key is derived and memoised immediately so that any
// derivation error surfaces at session creation rather than at first use.
func NewDH(path dbus.ObjectPath, keypair dhgroup.Keypair, peerPublicBytes []byte) (*Session, error) {
	peerPub := new(big.Int).SetBytes(peerPublicBytes)
	key, err := dhgroup.DeriveSharedKey(peerPub, keypair.Private)
	if err != nil {
		return nil, err
	}
	return &Session{
		Path:       path,
		Algorithm:  Dh,
		Keypair:    keypair,
		PeerPublic: peerPub,
		sharedKey:  key,
	}, nil
}

// SharedKey returns the derived 16-byte AES key, present iff Algorithm ==
// Dh.
func (s *Session) SharedKey() ([]byte, bool) {
	if s.sharedKey == nil {
		return nil, false
	}
	return s.sharedKey, true
}

// Close zeroes the derived shared key so it does not linger in memory
// beyond the session's lifetime.
func (s *Session) Close() {
	for i := range s.sharedKey {
		s.sharedKey[i] = 0
	}
	s.sharedKey = nil
}
