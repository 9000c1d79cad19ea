// SPDX-License-Identifier: Apache-2.0

//go:build darwin

// Package applekeychain declares the Apple Keychain OS-keychain driver
// surface (C9). Apple Keychain access requires CGO bindings to Security.framework,
// which is out of scope here (spec.md treats OS-native keychain back-ends as
// opaque, interface-only collaborators); this package only fixes the shape
// a real implementation would satisfy, so pimkeyring can select a
// keychain.Store for darwin without a circular dependency on a concrete
// driver that doesn't exist yet.
package applekeychain

import (
	"context"
	"errors"

	"github.com/mjlee/pimkeyring/internal/keychain"
)

// ErrNotImplemented is returned by every Driver method; there is no CGO
// binding to Security.framework in this tree.
var ErrNotImplemented = errors.New("applekeychain: not implemented")

// Driver is a placeholder satisfying keychain.Store so callers can wire a
// provider selection switch without a build-tag-conditional type. A real
// implementation would call SecItemCopyMatching/SecItemAdd/SecItemDelete
// via cgo.
type Driver struct{}

var _ keychain.Store = (*Driver)(nil)

// New returns a Driver whose methods always fail with ErrNotImplemented.
func New() *Driver { return &Driver{} }

func (d *Driver) Read(ctx context.Context, service, account string) ([]byte, error) {
	return nil, ErrNotImplemented
}

func (d *Driver) Write(ctx context.Context, service, account string, secret []byte) error {
	return ErrNotImplemented
}

func (d *Driver) Delete(ctx context.Context, service, account string) error {
	return ErrNotImplemented
}
