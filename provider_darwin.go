// SPDX-License-Identifier: Apache-2.0

//go:build darwin

package pimkeyring

import (
	"fmt"

	"github.com/mjlee/pimkeyring/internal/keychain"
	"github.com/mjlee/pimkeyring/internal/keychain/applekeychain"
)

func newWindowsCredentialsStore() (keychain.Store, error) {
	return nil, fmt.Errorf("pimkeyring: windows-credentials provider is unavailable on this platform")
}

func newAppleKeychainStore() (keychain.Store, error) {
	return applekeychain.New(), nil
}
