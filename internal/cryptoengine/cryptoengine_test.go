// SPDX-License-Identifier: Apache-2.0

package cryptoengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFlow is a minimal in-memory Flow used only by these tests.
type fakeFlow struct {
	secret []byte
	hasSec bool
	salt   []byte
	hasSalt bool
	key    []byte
	hasKey bool
}

func (f *fakeFlow) SharedKey() ([]byte, bool) { return f.key, f.hasKey }

func (f *fakeFlow) TakeSecret() ([]byte, bool) {
	if !f.hasSec {
		return nil, false
	}
	s := f.secret
	f.secret, f.hasSec = nil, false
	return s, true
}

func (f *fakeFlow) PutSecret(s []byte) { f.secret, f.hasSec = s, true }

func (f *fakeFlow) TakeSalt() ([]byte, bool) {
	if !f.hasSalt {
		return nil, false
	}
	s := f.salt
	f.salt, f.hasSalt = nil, false
	return s, true
}

func (f *fakeFlow) PutSalt(s []byte) { f.salt, f.hasSalt = s, true }

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}

	f := &fakeFlow{secret: []byte("hello"), hasSec: true, key: key, hasKey: true}
	require.NoError(t, Encrypt(f))

	ciphertext, ok := f.TakeSecret()
	require.True(t, ok)
	require.NotEqual(t, []byte("hello"), ciphertext)
	require.Zero(t, len(ciphertext)%16)
	f.PutSecret(ciphertext)

	iv, ok := f.TakeSalt()
	require.True(t, ok)
	require.Len(t, iv, 16)
	f.PutSalt(iv)

	require.NoError(t, Decrypt(f))
	plaintext, ok := f.TakeSecret()
	require.True(t, ok)
	require.Equal(t, []byte("hello"), plaintext)
}

func TestEncryptMissingSecret(t *testing.T) {
	f := &fakeFlow{key: make([]byte, 16), hasKey: true}
	err := Encrypt(f)
	require.Error(t, err)
}

func TestEncryptMissingKey(t *testing.T) {
	f := &fakeFlow{secret: []byte("x"), hasSec: true}
	err := Encrypt(f)
	require.Error(t, err)
}

func TestDecryptBadPadding(t *testing.T) {
	key := make([]byte, 16)
	f := &fakeFlow{
		secret: make([]byte, 16), // all-zero ciphertext decrypts to garbage padding
		hasSec: true,
		salt:   make([]byte, 16),
		hasSalt: true,
		key:    key,
		hasKey: true,
	}
	err := Decrypt(f)
	require.Error(t, err)
}

func TestDecryptDefaultsMissingSaltToEmpty(t *testing.T) {
	key := make([]byte, 16)
	f := &fakeFlow{secret: make([]byte, 16), hasSec: true, key: key, hasKey: true}
	err := Decrypt(f)
	require.Error(t, err) // empty IV fails aesCBCDecrypt's IV length check
}
