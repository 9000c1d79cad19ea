// SPDX-License-Identifier: Apache-2.0

// Package driver implements the driver façade (C8): it drains a flow
// (internal/flow) to completion by matching each emitted step against a
// concrete call on the D-Bus transport (internal/secretservice/dbus) or the
// crypto engine (internal/cryptoengine). It also implements the
// session-opening, default-collection, and item-lookup logic from spec.md
// §4.4 that sits above individual D-Bus calls.
package driver

import (
	"context"
	"fmt"
	"log/slog"

	godbus "github.com/godbus/dbus/v5"

	"github.com/mjlee/pimkeyring/internal/cryptoengine"
	"github.com/mjlee/pimkeyring/internal/dhgroup"
	"github.com/mjlee/pimkeyring/internal/flow"
	"github.com/mjlee/pimkeyring/internal/kerrors"
	ssdbus "github.com/mjlee/pimkeyring/internal/secretservice/dbus"
	"github.com/mjlee/pimkeyring/internal/secretservice/prompt"
	"github.com/mjlee/pimkeyring/internal/session"
)

// AlgorithmName, Attributes, and Secret are the wire shapes the driver
// exchanges with the transport, re-exported so callers of this package
// don't also need to import internal/secretservice/dbus directly.
type (
	AlgorithmName = ssdbus.AlgorithmName
	Attributes    = ssdbus.Attributes
	Secret        = ssdbus.Secret
)

const (
	AlgorithmPlain = ssdbus.AlgorithmPlain
	AlgorithmDH    = ssdbus.AlgorithmDH
)

// transport is the subset of *ssdbus.Client (and, for tests,
// internal/secretservice/dbustest.Fake) the driver needs.
type transport interface {
	OpenSession(ctx context.Context, algorithm AlgorithmName, input godbus.Variant) (godbus.Variant, godbus.ObjectPath, error)
	ReadAlias(ctx context.Context, name string) (godbus.ObjectPath, error)
	Collections(ctx context.Context) ([]godbus.ObjectPath, error)
	CreateCollection(ctx context.Context, label string) (godbus.ObjectPath, godbus.ObjectPath, error)
	SearchItems(ctx context.Context, collection godbus.ObjectPath, attributes Attributes) ([]godbus.ObjectPath, error)
	CreateItem(ctx context.Context, collection godbus.ObjectPath, label string, attributes Attributes, secret Secret, replace bool) (godbus.ObjectPath, godbus.ObjectPath, error)
	GetSecret(ctx context.Context, item, session godbus.ObjectPath) (Secret, error)
	DeleteItem(ctx context.Context, item godbus.ObjectPath) (godbus.ObjectPath, error)

	SignalChannel(buffer int) chan *godbus.Signal
	RemoveSignalChannel(ch chan *godbus.Signal)
	AddPromptMatch(path godbus.ObjectPath) error
	RemovePromptMatch(path godbus.ObjectPath) error
	CallPrompt(ctx context.Context, path godbus.ObjectPath) error
}

var _ transport = (*ssdbus.Client)(nil)

// Driver runs flows against a live Secret Service connection.
type Driver struct {
	transport transport
	logger    *slog.Logger
}

// New builds a Driver over an already-connected transport.
func New(t transport, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{transport: t, logger: logger}
}

// OpenSession negotiates a new session using algo ("plain" or
// "dh-ietf1024-sha256-aes128-cbc-pkcs7").
func (d *Driver) OpenSession(ctx context.Context, algo AlgorithmName) (*session.Session, error) {
	switch algo {
	case AlgorithmPlain:
		_, path, err := d.transport.OpenSession(ctx, algo, godbus.MakeVariant(""))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrOpenSession, err)
		}
		return session.NewPlain(path), nil

	case AlgorithmDH:
		kp, err := dhgroup.Generate()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrOpenSession, err)
		}
		input := godbus.MakeVariant(dhgroup.PadToGroupSize(kp.Public))
		output, path, err := d.transport.OpenSession(ctx, algo, input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrOpenSession, err)
		}
		peerPubBytes, ok := output.Value().([]byte)
		if !ok {
			return nil, kerrors.ErrParseSessionOutput
		}
		sess, err := session.NewDH(path, kp, peerPubBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrOpenSession, err)
		}
		return sess, nil

	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", kerrors.ErrOpenSession, algo)
	}
}

// PickDefaultCollection implements spec.md §4.4's fallback chain:
// ReadAlias("default") -> ReadAlias("session") -> first of Collections() ->
// CreateCollection("default").
func (d *Driver) PickDefaultCollection(ctx context.Context) (godbus.ObjectPath, error) {
	if path, err := d.transport.ReadAlias(ctx, "default"); err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrReadAlias, err)
	} else if path != "" && path != "/" {
		return path, nil
	}

	if path, err := d.transport.ReadAlias(ctx, "session"); err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrReadAlias, err)
	} else if path != "" && path != "/" {
		return path, nil
	}

	collections, err := d.transport.Collections(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrListCollections, err)
	}
	if len(collections) > 0 {
		return collections[0], nil
	}

	collection, promptPath, err := d.transport.CreateCollection(ctx, "default")
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrCreateCollection, err)
	}
	if collection == "" || collection == "/" {
		resolved, waitErr, cleanupErr := prompt.Wait(ctx, d.transport, promptPath)
		if cleanupErr != nil {
			d.logger.WarnContext(ctx, "prompt cleanup failed", "error", cleanupErr)
		}
		if waitErr != nil {
			return "", waitErr
		}
		collection = resolved
	}
	return collection, nil
}

// findItem returns the first item path matching attrs in collection, if
// any.
func (d *Driver) findItem(ctx context.Context, collection godbus.ObjectPath, attrs Attributes) (godbus.ObjectPath, bool, error) {
	items, err := d.transport.SearchItems(ctx, collection, attrs)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", kerrors.ErrSearchItems, err)
	}
	if len(items) == 0 {
		return "", false, nil
	}
	return items[0], true, nil
}

// getItem is findItem but fails with ErrItemNotFound when absent.
func (d *Driver) getItem(ctx context.Context, collection godbus.ObjectPath, entry flow.Entry) (godbus.ObjectPath, error) {
	attrs := Attributes{"service": entry.Service, "account": entry.Name}
	item, ok, err := d.findItem(ctx, collection, attrs)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", kerrors.NewItemNotFound(entry.Service, entry.Name)
	}
	return item, nil
}

// cryptoAdapter lets cryptoengine operate on a flow's capability set plus a
// session's derived key, without cryptoengine needing to know about
// sessions or flow needing to know about crypto.
type cryptoAdapter struct {
	flow.Capabilities
	sess *session.Session
}

func (a cryptoAdapter) SharedKey() ([]byte, bool) { return a.sess.SharedKey() }

// Read drains a ReadFlow for entry to completion and returns the decrypted
// secret.
func (d *Driver) Read(ctx context.Context, sess *session.Session, collection godbus.ObjectPath, entry flow.Entry) ([]byte, error) {
	f := flow.NewRead(entry, sess.Algorithm != session.Plain)
	ca := cryptoAdapter{Capabilities: f, sess: sess}

	for {
		step, ok := f.Next()
		if !ok {
			break
		}
		switch step {
		case flow.StepEntryRead:
			item, err := d.getItem(ctx, collection, entry)
			if err != nil {
				f.Fail(err)
				return nil, err
			}
			secret, err := d.transport.GetSecret(ctx, item, sess.Path)
			if err != nil {
				err = fmt.Errorf("%w: %v", kerrors.ErrGetSecret, err)
				f.Fail(err)
				return nil, err
			}
			f.PutSecret(secret.Value)
			f.PutSalt(secret.Parameters)
		case flow.StepCryptoDecrypt:
			if err := cryptoengine.Decrypt(ca); err != nil {
				f.Fail(err)
				return nil, err
			}
		default:
			err := fmt.Errorf("%w: read flow emitted %s", kerrors.ErrUnexpectedInput, step)
			f.Fail(err)
			return nil, err
		}
	}

	secret, ok := f.TakeSecret()
	if !ok {
		return nil, fmt.Errorf("read flow completed without a secret")
	}
	return secret, nil
}

// Write drains a WriteFlow for entry to completion.
func (d *Driver) Write(ctx context.Context, sess *session.Session, collection godbus.ObjectPath, entry flow.Entry, secret []byte) error {
	f, err := flow.NewWrite(entry, secret, sess.Algorithm != session.Plain)
	if err != nil {
		return err
	}
	ca := cryptoAdapter{Capabilities: f, sess: sess}

	for {
		step, ok := f.Next()
		if !ok {
			break
		}
		switch step {
		case flow.StepCryptoEncrypt:
			if err := cryptoengine.Encrypt(ca); err != nil {
				f.Fail(err)
				return err
			}
		case flow.StepEntryWrite:
			ciphertext, ok := f.TakeSecret()
			if !ok {
				err := kerrors.ErrEncryptUndefinedSecret
				f.Fail(err)
				return err
			}
			iv, _ := f.TakeSalt()
			secretTuple := Secret{
				Session:     sess.Path,
				Parameters:  iv,
				Value:       ciphertext,
				ContentType: "text/plain",
			}
			attrs := Attributes{"service": entry.Service, "account": entry.Name}
			item, promptPath, err := d.transport.CreateItem(ctx, collection, entry.Label(), attrs, secretTuple, true)
			if err != nil {
				err = fmt.Errorf("%w: %v", kerrors.ErrCreateItem, err)
				f.Fail(err)
				return err
			}
			if item == "" || item == "/" {
				_, waitErr, cleanupErr := prompt.Wait(ctx, d.transport, promptPath)
				if cleanupErr != nil {
					d.logger.WarnContext(ctx, "prompt cleanup failed", "error", cleanupErr)
				}
				if waitErr != nil {
					f.Fail(waitErr)
					return waitErr
				}
			}
			f.MarkDone()
		default:
			err := fmt.Errorf("%w: write flow emitted %s", kerrors.ErrUnexpectedInput, step)
			f.Fail(err)
			return err
		}
	}

	if !f.Done() {
		return fmt.Errorf("write flow did not complete")
	}
	return nil
}

// Delete drains a DeleteFlow for entry to completion.
func (d *Driver) Delete(ctx context.Context, collection godbus.ObjectPath, entry flow.Entry) error {
	f := flow.NewDelete(entry)

	for {
		step, ok := f.Next()
		if !ok {
			break
		}
		switch step {
		case flow.StepEntryDelete:
			item, err := d.getItem(ctx, collection, entry)
			if err != nil {
				f.Fail(err)
				return err
			}
			promptPath, err := d.transport.DeleteItem(ctx, item)
			if err != nil {
				err = fmt.Errorf("%w: %v", kerrors.ErrDeleteItem, err)
				f.Fail(err)
				return err
			}
			_, waitErr, cleanupErr := prompt.Wait(ctx, d.transport, promptPath)
			if cleanupErr != nil {
				d.logger.WarnContext(ctx, "prompt cleanup failed", "error", cleanupErr)
			}
			if waitErr != nil {
				f.Fail(waitErr)
				return waitErr
			}
			f.MarkDone()
		default:
			err := fmt.Errorf("%w: delete flow emitted %s", kerrors.ErrUnexpectedInput, step)
			f.Fail(err)
			return err
		}
	}

	if !f.Done() {
		return fmt.Errorf("delete flow did not complete")
	}
	return nil
}
