// SPDX-License-Identifier: Apache-2.0

//go:build windows

package pimkeyring

import (
	"fmt"

	"github.com/mjlee/pimkeyring/internal/keychain"
	"github.com/mjlee/pimkeyring/internal/keychain/wincred"
)

func newWindowsCredentialsStore() (keychain.Store, error) {
	return wincred.New(), nil
}

func newAppleKeychainStore() (keychain.Store, error) {
	return nil, fmt.Errorf("pimkeyring: apple-keychain provider is unavailable on this platform")
}
