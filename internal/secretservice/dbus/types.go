// SPDX-License-Identifier: Apache-2.0

// Package dbus implements the client side of the org.freedesktop.secrets
// D-Bus interface (C4): connecting, negotiating a session, and driving the
// Collection/Item/Prompt method calls a flow's Entry(*) steps need. It
// performs real I/O and knows nothing about flows or crypto; it is called
// by internal/secretservice/driver in response to flow steps.
package dbus

import (
	"time"

	godbus "github.com/godbus/dbus/v5"
)

const (
	// BusName is the well-known D-Bus name of the Secret Service daemon.
	BusName = "org.freedesktop.secrets"
	// ObjectPath is the root object implementing org.freedesktop.Secret.Service.
	ObjectPath godbus.ObjectPath = "/org/freedesktop/secrets"

	ServiceIface    = "org.freedesktop.Secret.Service"
	CollectionIface = "org.freedesktop.Secret.Collection"
	ItemIface       = "org.freedesktop.Secret.Item"
	SessionIface    = "org.freedesktop.Secret.Session"
	PromptIface     = "org.freedesktop.Secret.Prompt"
	PropertiesIface = "org.freedesktop.DBus.Properties"

	// DefaultTimeout is the per-call D-Bus method timeout (spec.md §4.4, §6).
	DefaultTimeout = 2 * time.Second

	// NullPromptPath is returned by mutating calls that need no user
	// interaction.
	NullPromptPath godbus.ObjectPath = "/"
)

// AlgorithmName is the wire string identifying a session negotiation
// algorithm.
type AlgorithmName string

const (
	AlgorithmPlain AlgorithmName = "plain"
	AlgorithmDH    AlgorithmName = "dh-ietf1024-sha256-aes128-cbc-pkcs7"
)

// Secret is the D-Bus (oayays) secret tuple exchanged with the daemon.
type Secret struct {
	Session     godbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// Attributes is the item attribute schema: exactly {service, account}.
type Attributes map[string]string
