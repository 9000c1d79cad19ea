// SPDX-License-Identifier: Apache-2.0

//go:build !windows && !darwin

package pimkeyring

import (
	"fmt"

	"github.com/mjlee/pimkeyring/internal/keychain"
)

func newWindowsCredentialsStore() (keychain.Store, error) {
	return nil, fmt.Errorf("pimkeyring: windows-credentials provider is unavailable on this platform")
}

func newAppleKeychainStore() (keychain.Store, error) {
	return nil, fmt.Errorf("pimkeyring: apple-keychain provider is unavailable on this platform")
}
