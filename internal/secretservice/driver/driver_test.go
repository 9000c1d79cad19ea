// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"context"
	"testing"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"

	"github.com/mjlee/pimkeyring/internal/flow"
	"github.com/mjlee/pimkeyring/internal/kerrors"
	"github.com/mjlee/pimkeyring/internal/secretservice/dbustest"
)

func TestPlainRoundTrip(t *testing.T) {
	f := dbustest.New()
	f.SeedDefaultCollection()
	d := New(f, nil)
	ctx := context.Background()

	sess, err := d.OpenSession(ctx, AlgorithmPlain)
	require.NoError(t, err)

	collection, err := d.PickDefaultCollection(ctx)
	require.NoError(t, err)

	entry := flow.Entry{Service: "example.com", Name: "alice"}
	require.NoError(t, d.Write(ctx, sess, collection, entry, []byte("hunter2")))

	got, err := d.Read(ctx, sess, collection, entry)
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2"), got)
}

func TestDhRoundTrip(t *testing.T) {
	f := dbustest.New()
	f.SeedDefaultCollection()
	d := New(f, nil)
	ctx := context.Background()

	sess, err := d.OpenSession(ctx, AlgorithmDH)
	require.NoError(t, err)
	_, hasKey := sess.SharedKey()
	require.True(t, hasKey)

	collection, err := d.PickDefaultCollection(ctx)
	require.NoError(t, err)

	entry := flow.Entry{Service: "example.com", Name: "bob"}
	require.NoError(t, d.Write(ctx, sess, collection, entry, []byte("s3cr3t")))

	got, err := d.Read(ctx, sess, collection, entry)
	require.NoError(t, err)
	require.Equal(t, []byte("s3cr3t"), got)
}

func TestReadMissingItemReturnsNotFound(t *testing.T) {
	f := dbustest.New()
	f.SeedDefaultCollection()
	d := New(f, nil)
	ctx := context.Background()

	sess, err := d.OpenSession(ctx, AlgorithmPlain)
	require.NoError(t, err)
	collection, err := d.PickDefaultCollection(ctx)
	require.NoError(t, err)

	_, err = d.Read(ctx, sess, collection, flow.Entry{Service: "nope", Name: "nobody"})
	require.ErrorIs(t, err, kerrors.ErrItemNotFound)
}

func TestWriteRejectsEmptySecretBeforeAnyCall(t *testing.T) {
	f := dbustest.New()
	d := New(f, nil)
	ctx := context.Background()

	sess, err := d.OpenSession(ctx, AlgorithmPlain)
	require.NoError(t, err)

	err = d.Write(ctx, sess, "/org/freedesktop/secrets/collection/default", flow.Entry{Service: "x", Name: "y"}, nil)
	require.ErrorIs(t, err, kerrors.ErrEmptySecret)

	collections, listErr := f.Collections(ctx)
	require.NoError(t, listErr)
	require.Empty(t, collections, "an empty secret must fail before any item is created")
}

func TestPickDefaultCollectionFallsBackToCreate(t *testing.T) {
	f := dbustest.New()
	d := New(f, nil)
	ctx := context.Background()

	collection, err := d.PickDefaultCollection(ctx)
	require.NoError(t, err)
	require.NotEqual(t, godbus.ObjectPath(""), collection)
	require.NotEqual(t, godbus.ObjectPath("/"), collection)
}

func TestPickDefaultCollectionPromptPath(t *testing.T) {
	f := dbustest.New()
	f.RequirePromptForCreateCollection = true
	d := New(f, nil)
	ctx := context.Background()

	done := make(chan struct{})
	var collection godbus.ObjectPath
	var err error
	go func() {
		collection, err = d.PickDefaultCollection(ctx)
		close(done)
	}()

	var promptPath godbus.ObjectPath
	for promptPath == "" {
		promptPath = f.PendingPromptPath()
		time.Sleep(time.Millisecond)
	}
	resolved := f.ResolvePendingCollectionPrompt("default")
	f.EmitPromptCompleted(promptPath, false, resolved)
	<-done

	require.NoError(t, err)
	require.Equal(t, resolved, collection)
}

func TestDeleteRoundTrip(t *testing.T) {
	f := dbustest.New()
	f.SeedDefaultCollection()
	d := New(f, nil)
	ctx := context.Background()

	sess, err := d.OpenSession(ctx, AlgorithmPlain)
	require.NoError(t, err)
	collection, err := d.PickDefaultCollection(ctx)
	require.NoError(t, err)

	entry := flow.Entry{Service: "example.com", Name: "carol"}
	require.NoError(t, d.Write(ctx, sess, collection, entry, []byte("zzz")))
	require.NoError(t, d.Delete(ctx, collection, entry))

	_, err = d.Read(ctx, sess, collection, entry)
	require.ErrorIs(t, err, kerrors.ErrItemNotFound)
}
