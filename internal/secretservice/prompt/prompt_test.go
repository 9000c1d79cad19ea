// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"context"
	"errors"
	"testing"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"

	"github.com/mjlee/pimkeyring/internal/kerrors"
)

type fakeCaller struct {
	ch          chan *godbus.Signal
	matchErr    error
	unmatchErr  error
	promptErr   error
	matched     bool
	unmatched   bool
	promptCalls int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{ch: make(chan *godbus.Signal, 4)}
}

func (f *fakeCaller) SignalChannel(buffer int) chan *godbus.Signal { return f.ch }
func (f *fakeCaller) RemoveSignalChannel(ch chan *godbus.Signal)   {}
func (f *fakeCaller) AddPromptMatch(path godbus.ObjectPath) error {
	f.matched = true
	return f.matchErr
}
func (f *fakeCaller) RemovePromptMatch(path godbus.ObjectPath) error {
	f.unmatched = true
	return f.unmatchErr
}
func (f *fakeCaller) CallPrompt(ctx context.Context, path godbus.ObjectPath) error {
	f.promptCalls++
	return f.promptErr
}

const promptPath godbus.ObjectPath = "/org/freedesktop/secrets/prompt/p1"

func TestWaitNullPromptIsNoOp(t *testing.T) {
	f := newFakeCaller()
	path, err, cleanupErr := Wait(context.Background(), f, "/")
	require.NoError(t, err)
	require.NoError(t, cleanupErr)
	require.Equal(t, godbus.ObjectPath(""), path)
	require.False(t, f.matched, "must not subscribe for a null prompt")
}

func TestWaitSuccessReturnsCreatedPath(t *testing.T) {
	f := newFakeCaller()
	f.ch <- &godbus.Signal{
		Path: promptPath,
		Name: PromptIfaceCompleted,
		Body: []interface{}{false, godbus.MakeVariant(godbus.ObjectPath("/x"))},
	}
	path, err, cleanupErr := WaitWithBudget(context.Background(), f, promptPath, time.Millisecond, 10)
	require.NoError(t, err)
	require.NoError(t, cleanupErr)
	require.Equal(t, godbus.ObjectPath("/x"), path)
	require.True(t, f.unmatched)
}

func TestWaitDismissed(t *testing.T) {
	f := newFakeCaller()
	f.ch <- &godbus.Signal{
		Path: promptPath,
		Name: PromptIfaceCompleted,
		Body: []interface{}{true, godbus.MakeVariant("")},
	}
	_, err, _ := WaitWithBudget(context.Background(), f, promptPath, time.Millisecond, 10)
	require.ErrorIs(t, err, kerrors.ErrPromptDismissed)
}

func TestWaitTimeout(t *testing.T) {
	f := newFakeCaller()
	_, err, _ := WaitWithBudget(context.Background(), f, promptPath, time.Millisecond, 5)
	require.ErrorIs(t, err, kerrors.ErrPromptTimeout)
}

func TestWaitParsePromptPathFailure(t *testing.T) {
	f := newFakeCaller()
	f.ch <- &godbus.Signal{
		Path: promptPath,
		Name: PromptIfaceCompleted,
		Body: []interface{}{false, godbus.MakeVariant("not-a-path")},
	}
	_, err, _ := WaitWithBudget(context.Background(), f, promptPath, time.Millisecond, 10)
	require.ErrorIs(t, err, kerrors.ErrParsePromptPath)
}

func TestWaitParsePromptSignalFailure(t *testing.T) {
	f := newFakeCaller()
	f.ch <- &godbus.Signal{
		Path: promptPath,
		Name: PromptIfaceCompleted,
		Body: []interface{}{false},
	}
	_, err, _ := WaitWithBudget(context.Background(), f, promptPath, time.Millisecond, 10)
	require.ErrorIs(t, err, kerrors.ErrParsePromptSignal)
}

func TestWaitCleanupErrorReportedIndependently(t *testing.T) {
	f := newFakeCaller()
	f.unmatchErr = errors.New("dbus gone")
	f.ch <- &godbus.Signal{
		Path: promptPath,
		Name: PromptIfaceCompleted,
		Body: []interface{}{false, godbus.MakeVariant(godbus.ObjectPath("/x"))},
	}
	path, err, cleanupErr := WaitWithBudget(context.Background(), f, promptPath, time.Millisecond, 10)
	require.NoError(t, err)
	require.Equal(t, godbus.ObjectPath("/x"), path)
	require.ErrorIs(t, cleanupErr, kerrors.ErrMatchStop)
}

func TestWaitIgnoresSignalsForOtherPrompts(t *testing.T) {
	f := newFakeCaller()
	f.ch <- &godbus.Signal{
		Path: "/org/freedesktop/secrets/prompt/other",
		Name: PromptIfaceCompleted,
		Body: []interface{}{false, godbus.MakeVariant(godbus.ObjectPath("/y"))},
	}
	f.ch <- &godbus.Signal{
		Path: promptPath,
		Name: PromptIfaceCompleted,
		Body: []interface{}{false, godbus.MakeVariant(godbus.ObjectPath("/x"))},
	}
	path, err, _ := WaitWithBudget(context.Background(), f, promptPath, time.Millisecond, 20)
	require.NoError(t, err)
	require.Equal(t, godbus.ObjectPath("/x"), path)
}
