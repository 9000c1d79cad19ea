// SPDX-License-Identifier: Apache-2.0

// Package dbustest provides an in-process fake implementing the same
// surface internal/secretservice/dbus.Client exposes, so internal/flow,
// internal/secretservice/driver, and pimkeyring can be exercised without a
// real Secret Service daemon. Grounded on the teacher's store_test.go
// fixture style (an in-memory per-test instance built by a constructor),
// adapted here to fake D-Bus responses instead of a JSON-backed store.
package dbustest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	godbus "github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/mjlee/pimkeyring/internal/dhgroup"
	ssdbus "github.com/mjlee/pimkeyring/internal/secretservice/dbus"
)

type item struct {
	path       godbus.ObjectPath
	label      string
	attributes ssdbus.Attributes
	secret     ssdbus.Secret
}

type collection struct {
	path  godbus.ObjectPath
	label string
	items []*item
}

// Fake is an in-memory stand-in for the Secret Service daemon.
type Fake struct {
	mu sync.Mutex

	aliases     map[string]godbus.ObjectPath
	collections []*collection

	sessions map[godbus.ObjectPath]*fakeSession

	// PromptBehavior is not read by any Fake method. CreateItem and
	// DeleteItem always complete without a prompt, and CreateCollection
	// hands back a prompt only when RequirePromptForCreateCollection is set.
	PromptBehavior func() (dismissed bool, result godbus.ObjectPath)
	// RequirePromptForCreateCollection makes the very first CreateCollection
	// call return a non-null prompt path instead of completing directly,
	// exercising the prompt-wait path (spec.md §8 scenario (c)).
	RequirePromptForCreateCollection bool
	// LastPendingPromptPath is set whenever CreateCollection hands back a
	// non-null prompt path, so a test driving the prompt to completion knows
	// which path to emit Completed for.
	LastPendingPromptPath godbus.ObjectPath

	signalCh chan *godbus.Signal
}

type fakeSession struct {
	algorithm ssdbus.AlgorithmName
	aesKey    []byte
}

var _ interface {
	OpenSession(context.Context, ssdbus.AlgorithmName, godbus.Variant) (godbus.Variant, godbus.ObjectPath, error)
	ReadAlias(context.Context, string) (godbus.ObjectPath, error)
	Collections(context.Context) ([]godbus.ObjectPath, error)
	CreateCollection(context.Context, string) (godbus.ObjectPath, godbus.ObjectPath, error)
	SearchItems(context.Context, godbus.ObjectPath, ssdbus.Attributes) ([]godbus.ObjectPath, error)
	CreateItem(context.Context, godbus.ObjectPath, string, ssdbus.Attributes, ssdbus.Secret, bool) (godbus.ObjectPath, godbus.ObjectPath, error)
	GetSecret(context.Context, godbus.ObjectPath, godbus.ObjectPath) (ssdbus.Secret, error)
	DeleteItem(context.Context, godbus.ObjectPath) (godbus.ObjectPath, error)
	SignalChannel(int) chan *godbus.Signal
	RemoveSignalChannel(chan *godbus.Signal)
	AddPromptMatch(godbus.ObjectPath) error
	RemovePromptMatch(godbus.ObjectPath) error
	CallPrompt(context.Context, godbus.ObjectPath) error
} = (*Fake)(nil)

// New builds an empty Fake with no collections or aliases.
func New() *Fake {
	return &Fake{
		aliases:  make(map[string]godbus.ObjectPath),
		sessions: make(map[godbus.ObjectPath]*fakeSession),
		signalCh: make(chan *godbus.Signal, 16),
	}
}

// SeedDefaultCollection adds an empty collection aliased as "default".
func (f *Fake) SeedDefaultCollection() godbus.ObjectPath {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &collection{path: godbus.ObjectPath("/org/freedesktop/secrets/collection/default"), label: "default"}
	f.collections = append(f.collections, c)
	f.aliases["default"] = c.path
	return c.path
}

func (f *Fake) OpenSession(ctx context.Context, algorithm ssdbus.AlgorithmName, input godbus.Variant) (godbus.Variant, godbus.ObjectPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := godbus.ObjectPath("/org/freedesktop/secrets/session/" + uuid.New().String())

	switch algorithm {
	case ssdbus.AlgorithmPlain:
		f.sessions[path] = &fakeSession{algorithm: algorithm}
		return godbus.MakeVariant(""), path, nil

	case ssdbus.AlgorithmDH:
		clientPubBytes, ok := input.Value().([]byte)
		if !ok {
			return godbus.Variant{}, "", fmt.Errorf("expected client public key bytes")
		}
		clientPub := new(big.Int).SetBytes(clientPubBytes)

		serverKP, err := dhgroup.Generate()
		if err != nil {
			return godbus.Variant{}, "", err
		}
		key, err := dhgroup.DeriveSharedKey(clientPub, serverKP.Private)
		if err != nil {
			return godbus.Variant{}, "", err
		}
		f.sessions[path] = &fakeSession{algorithm: algorithm, aesKey: key}
		return godbus.MakeVariant(dhgroup.PadToGroupSize(serverKP.Public)), path, nil

	default:
		return godbus.Variant{}, "", fmt.Errorf("unsupported algorithm %q", algorithm)
	}
}

// PendingPromptPath returns the prompt path handed back by the most recent
// CreateCollection call that required a prompt, if any.
func (f *Fake) PendingPromptPath() godbus.ObjectPath {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LastPendingPromptPath
}

func (f *Fake) ReadAlias(ctx context.Context, name string) (godbus.ObjectPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path, ok := f.aliases[name]; ok {
		return path, nil
	}
	return "/", nil
}

func (f *Fake) Collections(ctx context.Context) ([]godbus.ObjectPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]godbus.ObjectPath, len(f.collections))
	for i, c := range f.collections {
		paths[i] = c.path
	}
	return paths, nil
}

func (f *Fake) CreateCollection(ctx context.Context, label string) (godbus.ObjectPath, godbus.ObjectPath, error) {
	f.mu.Lock()
	if f.RequirePromptForCreateCollection {
		f.RequirePromptForCreateCollection = false
		promptPath := godbus.ObjectPath("/org/freedesktop/secrets/prompt/" + uuid.New().String())
		f.LastPendingPromptPath = promptPath
		f.mu.Unlock()
		return "/", promptPath, nil
	}
	c := &collection{path: godbus.ObjectPath("/org/freedesktop/secrets/collection/" + uuid.New().String()), label: label}
	f.collections = append(f.collections, c)
	f.mu.Unlock()
	return c.path, ssdbus.NullPromptPath, nil
}

// ResolvePendingCollectionPrompt completes the pending CreateCollection
// prompt by creating the collection and returning its path — call sites
// that exercised RequirePromptForCreateCollection use this together with
// EmitPromptCompleted to drive the rest of the scenario.
func (f *Fake) ResolvePendingCollectionPrompt(label string) godbus.ObjectPath {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &collection{path: godbus.ObjectPath("/org/freedesktop/secrets/collection/" + uuid.New().String()), label: label}
	f.collections = append(f.collections, c)
	return c.path
}

func (f *Fake) findCollection(path godbus.ObjectPath) *collection {
	for _, c := range f.collections {
		if c.path == path {
			return c
		}
	}
	return nil
}

func (f *Fake) SearchItems(ctx context.Context, collectionPath godbus.ObjectPath, attributes ssdbus.Attributes) ([]godbus.ObjectPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.findCollection(collectionPath)
	if c == nil {
		return nil, fmt.Errorf("no such collection")
	}
	var out []godbus.ObjectPath
	for _, it := range c.items {
		if attrsMatch(it.attributes, attributes) {
			out = append(out, it.path)
		}
	}
	return out, nil
}

func attrsMatch(have, want ssdbus.Attributes) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func (f *Fake) CreateItem(ctx context.Context, collectionPath godbus.ObjectPath, label string, attributes ssdbus.Attributes, secret ssdbus.Secret, replace bool) (godbus.ObjectPath, godbus.ObjectPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.findCollection(collectionPath)
	if c == nil {
		return "", "", fmt.Errorf("no such collection")
	}
	if replace {
		for _, it := range c.items {
			if attrsMatch(it.attributes, attributes) {
				it.secret = secret
				it.label = label
				return it.path, ssdbus.NullPromptPath, nil
			}
		}
	}
	it := &item{
		path:       godbus.ObjectPath(string(collectionPath) + "/" + uuid.New().String()),
		label:      label,
		attributes: attributes,
		secret:     secret,
	}
	c.items = append(c.items, it)
	return it.path, ssdbus.NullPromptPath, nil
}

func (f *Fake) GetSecret(ctx context.Context, itemPath, sessionPath godbus.ObjectPath) (ssdbus.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.collections {
		for _, it := range c.items {
			if it.path == itemPath {
				return it.secret, nil
			}
		}
	}
	return ssdbus.Secret{}, fmt.Errorf("no such item")
}

func (f *Fake) DeleteItem(ctx context.Context, itemPath godbus.ObjectPath) (godbus.ObjectPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.collections {
		for i, it := range c.items {
			if it.path == itemPath {
				c.items = append(c.items[:i], c.items[i+1:]...)
				return ssdbus.NullPromptPath, nil
			}
		}
	}
	return "", fmt.Errorf("no such item")
}

// SignalChannel and friends implement the prompt-facing subset of the
// transport interface. Fake never emits real prompt signals on its own;
// tests that need a prompt round-trip call EmitPromptCompleted directly.
func (f *Fake) SignalChannel(buffer int) chan *godbus.Signal {
	return f.signalCh
}

func (f *Fake) RemoveSignalChannel(ch chan *godbus.Signal) {}

func (f *Fake) AddPromptMatch(path godbus.ObjectPath) error { return nil }

func (f *Fake) RemovePromptMatch(path godbus.ObjectPath) error { return nil }

func (f *Fake) CallPrompt(ctx context.Context, path godbus.ObjectPath) error { return nil }

// EmitPromptCompleted pushes a Completed signal for path onto the fake's
// signal channel, as if the daemon had sent it.
func (f *Fake) EmitPromptCompleted(path godbus.ObjectPath, dismissed bool, result godbus.ObjectPath) {
	f.signalCh <- &godbus.Signal{
		Path: path,
		Name: ssdbus.PromptIface + ".Completed",
		Body: []interface{}{dismissed, godbus.MakeVariant(result)},
	}
}
