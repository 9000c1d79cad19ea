// SPDX-License-Identifier: Apache-2.0

//go:build windows

// Package wincred implements the synchronous OS-keychain driver (C9) for
// Windows, backed directly by the Windows Credential Manager. It is the
// in-process replacement for the teacher's cmd/wincred-helper, which talked
// to the same github.com/danieljoos/wincred calls over a WSL2 interop/stdin
// bridge; there is no WSL2 boundary here, so the bridge is gone and the
// wincred calls are made directly.
package wincred

import (
	"context"
	"fmt"

	"github.com/danieljoos/wincred"

	"github.com/mjlee/pimkeyring/internal/keychain"
	"github.com/mjlee/pimkeyring/internal/kerrors"
)

// userName tags every credential this library writes, mirroring the
// teacher's wincred-helper convention of stamping a UserName on write.
const userName = "pimkeyring"

// Driver stores secrets in the current user's Windows Credential Manager.
type Driver struct{}

var _ keychain.Store = (*Driver)(nil)

// New returns a ready-to-use Driver. Windows Credential Manager has no
// connection to open or close.
func New() *Driver { return &Driver{} }

func target(service, account string) string {
	return service + ":" + account
}

// Read retrieves the CredentialBlob stored under (service, account).
func (d *Driver) Read(ctx context.Context, service, account string) ([]byte, error) {
	cred, err := wincred.GetGenericCredential(target(service, account))
	if err != nil {
		return nil, kerrors.NewItemNotFound(service, account)
	}
	return cred.CredentialBlob, nil
}

// Write stores secret as a generic credential under (service, account),
// overwriting any existing credential with the same target name.
func (d *Driver) Write(ctx context.Context, service, account string, secret []byte) error {
	cred := wincred.NewGenericCredential(target(service, account))
	cred.CredentialBlob = secret
	cred.UserName = userName
	cred.Persist = wincred.PersistLocalMachine
	if err := cred.Write(); err != nil {
		return fmt.Errorf("write windows credential: %w", err)
	}
	return nil
}

// Delete removes the credential stored under (service, account).
func (d *Driver) Delete(ctx context.Context, service, account string) error {
	cred, err := wincred.GetGenericCredential(target(service, account))
	if err != nil {
		return kerrors.NewItemNotFound(service, account)
	}
	if err := cred.Delete(); err != nil {
		return fmt.Errorf("delete windows credential: %w", err)
	}
	return nil
}
