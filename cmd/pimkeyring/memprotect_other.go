// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package main

// hardenProcess is a no-op outside Linux; prctl/mlockall have no portable
// equivalent, and the Windows Credential Manager / Apple Keychain providers
// never hold secret bytes in this process for long.
func hardenProcess() error {
	return nil
}
