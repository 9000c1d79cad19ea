// SPDX-License-Identifier: Apache-2.0

package session

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjlee/pimkeyring/internal/dhgroup"
)

func TestNewPlainHasNoSharedKey(t *testing.T) {
	s := NewPlain("/org/freedesktop/secrets/session/s1")
	_, ok := s.SharedKey()
	require.False(t, ok)
}

func TestNewDHDerivesSharedKeyAtConstruction(t *testing.T) {
	peerPriv := big.NewInt(3)
	peerPub := dhgroup.ModPow(dhgroup.Generator, peerPriv, dhgroup.Prime)

	kp, err := dhgroup.Generate()
	require.NoError(t, err)

	s, err := NewDH("/org/freedesktop/secrets/session/s2", kp, dhgroup.PadToGroupSize(peerPub))
	require.NoError(t, err)

	key, ok := s.SharedKey()
	require.True(t, ok)
	require.Len(t, key, 16)

	s.Close()
	_, ok = s.SharedKey()
	require.False(t, ok)
}
