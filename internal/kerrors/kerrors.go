// SPDX-License-Identifier: Apache-2.0

// Package kerrors defines the stable error taxonomy shared by every
// pimkeyring component. Each sentinel identifies one failure kind from
// the transport, protocol-parsing, prompt-lifecycle, crypto, semantic,
// and flow-protocol-misuse families; callers should match with errors.Is.
package kerrors

import "errors"

// Transport errors: the D-Bus call itself failed.
var (
	ErrOpenSession      = errors.New("open session failed")
	ErrReadAlias        = errors.New("read alias failed")
	ErrListCollections  = errors.New("list collections failed")
	ErrCreateCollection = errors.New("create collection failed")
	ErrSearchItems      = errors.New("search items failed")
	ErrCreateItem       = errors.New("create item failed")
	ErrGetSecret        = errors.New("get secret failed")
	ErrDeleteItem       = errors.New("delete item failed")
	ErrConnect          = errors.New("connect to secret service failed")
)

// Protocol parsing errors: a reply did not have the shape we expected.
var (
	ErrParseSessionOutput = errors.New("cannot cast session output to bytes")
	ErrParsePromptPath    = errors.New("cannot parse prompt result as object path")
	ErrParsePromptSignal  = errors.New("cannot parse prompt completed signal body")
)

// Prompt lifecycle errors.
var (
	ErrPromptDismissed = errors.New("prompt dismissed")
	ErrPromptTimeout   = errors.New("prompt timed out")
	ErrMatchSignal     = errors.New("failed to subscribe to prompt completed signal")
	ErrMatchStop       = errors.New("failed to unsubscribe from prompt completed signal")
)

// Crypto errors.
var (
	ErrMissingPublicKey        = errors.New("missing peer public key")
	ErrMissingPrivateKey       = errors.New("missing private key")
	ErrEncryptUndefinedSecret  = errors.New("encrypt: secret is undefined")
	ErrDecryptUndefinedSecret  = errors.New("decrypt: secret is undefined")
	ErrEncryptSecretMissingKey = errors.New("encrypt: session has no shared key")
	ErrDecryptSecretMissingKey = errors.New("decrypt: session has no shared key")
	ErrDeriveSharedKey         = errors.New("derive shared key failed")
	ErrDecryptSecret           = errors.New("decrypt secret failed")
)

// Semantic errors.
var (
	ErrItemNotFound = errors.New("item not found")
	ErrEmptySecret  = errors.New("cannot write an empty secret")
)

// Flow protocol misuse errors. ErrUnavailableInput (resumable-style flows
// asked to resume with nothing owed) has no sentinel here: this repo
// implements only the capability flow style (spec.md §9's Open Question
// decision, see DESIGN.md), whose exhausted Next() just returns (_, false)
// rather than reporting an error.
var (
	ErrUnexpectedInput = errors.New("flow received an unexpected step result")
)

// ItemNotFoundError carries the (service, account) pair that could not be
// found, while still matching errors.Is(err, ErrItemNotFound).
type ItemNotFoundError struct {
	Service string
	Account string
}

func (e *ItemNotFoundError) Error() string {
	return "item not found for service=" + e.Service + " account=" + e.Account
}

func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// NewItemNotFound builds an ItemNotFoundError for the given entry.
func NewItemNotFound(service, account string) error {
	return &ItemNotFoundError{Service: service, Account: account}
}
