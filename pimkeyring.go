// SPDX-License-Identifier: Apache-2.0

// Package pimkeyring is a cross-platform keyring access library (C10). It
// exposes a small Keyring façade — Read, Write, Delete — that selects a
// driver at construction time and internally builds a one-shot flow per
// call, running it to completion.
package pimkeyring

import (
	"context"
	"fmt"
	"log/slog"

	godbus "github.com/godbus/dbus/v5"

	"github.com/mjlee/pimkeyring/internal/flow"
	"github.com/mjlee/pimkeyring/internal/keychain"
	"github.com/mjlee/pimkeyring/internal/kerrors"
	ssdbus "github.com/mjlee/pimkeyring/internal/secretservice/dbus"
	"github.com/mjlee/pimkeyring/internal/secretservice/driver"
	"github.com/mjlee/pimkeyring/internal/session"
)

// Provider selects which OS-level backend stores secrets, mirroring the
// KEYRING_PROVIDER values spec.md lists as external interface.
type Provider string

const (
	// ProviderDBusSecretService talks to a running org.freedesktop.secrets
	// daemon over the D-Bus session bus (Linux, BSD desktop environments).
	ProviderDBusSecretService Provider = "dbus-secret-service"
	// ProviderWindowsCredentials stores secrets in the Windows Credential
	// Manager via internal/keychain/wincred.
	ProviderWindowsCredentials Provider = "windows-credentials"
	// ProviderAppleKeychain stores secrets in the macOS Keychain via
	// internal/keychain/applekeychain. Not implemented in this tree (see
	// that package's doc comment): on darwin New succeeds but Read, Write
	// and Delete fail with applekeychain.ErrNotImplemented; on other
	// platforms New returns an error.
	ProviderAppleKeychain Provider = "apple-keychain"
)

// Encryption selects the Secret Service session algorithm, mirroring the
// ENCRYPTION environment variable spec.md lists.
type Encryption string

const (
	EncryptionPlain Encryption = "plain"
	EncryptionDH    Encryption = "dh"
)

// Options configures a Keyring.
type Options struct {
	// Provider selects the backend. Defaults to ProviderDBusSecretService.
	Provider Provider
	// Encryption selects the Secret Service session algorithm. Only
	// meaningful for ProviderDBusSecretService; defaults to EncryptionDH.
	Encryption Encryption
	// Service is the default service name new entries are created under
	// when an operation does not name one explicitly.
	Service string
	// Logger receives structured Debug/Warn events from the D-Bus
	// transport and driver. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) encryptionOrDefault() Encryption {
	if o.Encryption == "" {
		return EncryptionDH
	}
	return o.Encryption
}

// Keyring reads, writes, and deletes secrets under a (service, name) pair.
type Keyring struct {
	service string

	ssClient     *ssdbus.Client
	ssDriver     *driver.Driver
	ssSession    *session.Session
	ssCollection string

	keychain keychain.Store
}

// New opens a Keyring for the given Options. For ProviderDBusSecretService
// it connects to the session bus, negotiates a session with the configured
// Encryption, and resolves the default collection immediately so the first
// Read/Write/Delete call pays no extra setup latency.
func New(ctx context.Context, opts Options) (*Keyring, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Provider {
	case "", ProviderDBusSecretService:
		client, err := ssdbus.Connect(logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrConnect, err)
		}
		d := driver.New(client, logger)

		algo := driver.AlgorithmDH
		if opts.encryptionOrDefault() == EncryptionPlain {
			algo = driver.AlgorithmPlain
		}
		sess, err := d.OpenSession(ctx, algo)
		if err != nil {
			client.Close()
			return nil, err
		}
		collection, err := d.PickDefaultCollection(ctx)
		if err != nil {
			client.Close()
			return nil, err
		}
		return &Keyring{
			service:      opts.Service,
			ssClient:     client,
			ssDriver:     d,
			ssSession:    sess,
			ssCollection: string(collection),
		}, nil

	case ProviderWindowsCredentials:
		store, err := newWindowsCredentialsStore()
		if err != nil {
			return nil, err
		}
		return &Keyring{service: opts.Service, keychain: store}, nil

	case ProviderAppleKeychain:
		store, err := newAppleKeychainStore()
		if err != nil {
			return nil, err
		}
		return &Keyring{service: opts.Service, keychain: store}, nil

	default:
		return nil, fmt.Errorf("pimkeyring: unknown provider %q", opts.Provider)
	}
}

// Close releases the D-Bus connection, if one is open. OS-keychain
// providers have nothing to release.
func (k *Keyring) Close() error {
	if k.ssClient != nil {
		return k.ssClient.Close()
	}
	return nil
}

func (k *Keyring) serviceOr(service string) string {
	if service != "" {
		return service
	}
	if k.service != "" {
		return k.service
	}
	return "pimkeyring"
}

// Read returns the secret stored under (service, name), wrapped in a
// Secret whose contents are only readable via an explicit Expose call.
func (k *Keyring) Read(ctx context.Context, service, name string) (Secret, error) {
	entry := flow.Entry{Service: k.serviceOr(service), Name: name}
	if k.keychain != nil {
		b, err := k.keychain.Read(ctx, entry.Service, entry.Name)
		if err != nil {
			return Secret{}, err
		}
		return NewSecret(b), nil
	}
	b, err := k.ssDriver.Read(ctx, k.ssSession, godbus.ObjectPath(k.ssCollection), entry)
	if err != nil {
		return Secret{}, err
	}
	return NewSecret(b), nil
}

// Write stores secret under (service, name), overwriting any existing
// value.
func (k *Keyring) Write(ctx context.Context, service, name string, secret []byte) error {
	entry := flow.Entry{Service: k.serviceOr(service), Name: name}
	if k.keychain != nil {
		return k.keychain.Write(ctx, entry.Service, entry.Name, secret)
	}
	return k.ssDriver.Write(ctx, k.ssSession, godbus.ObjectPath(k.ssCollection), entry, secret)
}

// Delete removes the secret stored under (service, name). Deleting an
// already-absent entry fails with the item-not-found kind
// (errors.Is(err, kerrors.ErrItemNotFound)), which callers may treat as
// idempotent success.
func (k *Keyring) Delete(ctx context.Context, service, name string) error {
	entry := flow.Entry{Service: k.serviceOr(service), Name: name}
	if k.keychain != nil {
		return k.keychain.Delete(ctx, entry.Service, entry.Name)
	}
	return k.ssDriver.Delete(ctx, godbus.ObjectPath(k.ssCollection), entry)
}
