// SPDX-License-Identifier: Apache-2.0

package pimkeyring

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjlee/pimkeyring/internal/kerrors"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func key(service, account string) string { return service + "\x00" + account }

func (m *memStore) Read(ctx context.Context, service, account string) ([]byte, error) {
	v, ok := m.data[key(service, account)]
	if !ok {
		return nil, kerrors.NewItemNotFound(service, account)
	}
	return v, nil
}

func (m *memStore) Write(ctx context.Context, service, account string, secret []byte) error {
	m.data[key(service, account)] = secret
	return nil
}

func (m *memStore) Delete(ctx context.Context, service, account string) error {
	if _, ok := m.data[key(service, account)]; !ok {
		return kerrors.NewItemNotFound(service, account)
	}
	delete(m.data, key(service, account))
	return nil
}

func TestKeyringRoundTripOverKeychainStore(t *testing.T) {
	k := &Keyring{service: "pimkeyring", keychain: newMemStore()}
	ctx := context.Background()

	require.NoError(t, k.Write(ctx, "svc", "alice", []byte("hello")))
	got, err := k.Read(ctx, "svc", "alice")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got.Expose())
	require.Equal(t, "pimkeyring.Secret{REDACTED}", got.String())
	require.Equal(t, "pimkeyring.Secret{REDACTED}", fmt.Sprintf("%v", got))

	require.NoError(t, k.Delete(ctx, "svc", "alice"))
	_, err = k.Read(ctx, "svc", "alice")
	require.ErrorIs(t, err, kerrors.ErrItemNotFound)
}

func TestKeyringServiceDefaulting(t *testing.T) {
	k := &Keyring{service: "default-svc", keychain: newMemStore()}
	ctx := context.Background()

	require.NoError(t, k.Write(ctx, "", "bob", []byte("s3cr3t")))
	got, err := k.Read(ctx, "", "bob")
	require.NoError(t, err)
	require.Equal(t, []byte("s3cr3t"), got.Expose())

	// Explicit service overrides the Keyring default.
	require.NoError(t, k.Write(ctx, "other", "bob", []byte("zzz")))
	got, err = k.Read(ctx, "other", "bob")
	require.NoError(t, err)
	require.Equal(t, []byte("zzz"), got.Expose())
}

func TestSecretZeroClearsBytes(t *testing.T) {
	s := NewSecret([]byte("hello"))
	require.Equal(t, 5, s.Len())
	s.Zero()
	require.Equal(t, 0, s.Len())
}

func TestEncryptionOrDefault(t *testing.T) {
	require.Equal(t, EncryptionDH, Options{}.encryptionOrDefault())
	require.Equal(t, EncryptionPlain, Options{Encryption: EncryptionPlain}.encryptionOrDefault())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "not-a-real-provider"})
	require.Error(t, err)
}
