// SPDX-License-Identifier: Apache-2.0

package dhgroup

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateProducesValidKeypair(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	require.NotNil(t, kp.Private)
	require.NotNil(t, kp.Public)

	want := ModPow(Generator, kp.Private, Prime)
	require.Equal(t, 0, want.Cmp(kp.Public), "public key must equal g^private mod p")
}

func TestDeriveSharedKeySymmetric(t *testing.T) {
	alice, err := Generate()
	require.NoError(t, err)
	bob, err := Generate()
	require.NoError(t, err)

	abKey, err := DeriveSharedKey(bob.Public, alice.Private)
	require.NoError(t, err)
	baKey, err := DeriveSharedKey(alice.Public, bob.Private)
	require.NoError(t, err)

	require.Equal(t, abKey, baKey, "DH shared key must be symmetric")
	require.Len(t, abKey, 16)
}

func TestTestPeerPublicKeyPadsToGroupSize(t *testing.T) {
	// Peer with private key 3, matching spec.md scenario (b).
	peerPriv := big.NewInt(3)
	peerPub := ModPow(Generator, peerPriv, Prime)
	require.Equal(t, 0, peerPub.Cmp(ModPow(big.NewInt(2), big.NewInt(3), Prime)))

	padded := PadToGroupSize(peerPub)
	require.Len(t, padded, 128)
}

func TestDeriveSharedKeyRejectsMissingKeys(t *testing.T) {
	_, err := DeriveSharedKey(nil, big.NewInt(1))
	require.Error(t, err)

	_, err = DeriveSharedKey(big.NewInt(1), nil)
	require.Error(t, err)
}

func TestPadToGroupSizeAlwaysFullLength(t *testing.T) {
	// A shared secret with many leading zero bits still pads to 128 bytes.
	tiny := big.NewInt(1)
	padded := PadToGroupSize(tiny)
	require.Len(t, padded, 128)
	require.Equal(t, byte(1), padded[127])
	for _, b := range padded[:127] {
		require.Equal(t, byte(0), b)
	}
}
