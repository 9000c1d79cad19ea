// SPDX-License-Identifier: Apache-2.0

// Package prompt implements the Secret Service prompt lifecycle (C5):
// subscribing to a prompt's Completed signal, invoking Prompt(""), and
// waiting up to a hard 5-minute cap in 1-second ticks.
package prompt

import (
	"context"
	"fmt"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/mjlee/pimkeyring/internal/kerrors"
	ssdbus "github.com/mjlee/pimkeyring/internal/secretservice/dbus"
)

// TickInterval is the cadence at which Wait checks for completion.
const TickInterval = 1 * time.Second

// MaxTicks bounds the total wait to a 5-minute hard cap (spec.md §4.5, §6).
const MaxTicks = 300

// caller is the subset of *ssdbus.Client Wait needs; defined as an
// interface so tests can substitute a fake bus without a real D-Bus daemon.
type caller interface {
	SignalChannel(buffer int) chan *godbus.Signal
	RemoveSignalChannel(ch chan *godbus.Signal)
	AddPromptMatch(path godbus.ObjectPath) error
	RemovePromptMatch(path godbus.ObjectPath) error
	CallPrompt(ctx context.Context, path godbus.ObjectPath) error
}

var _ caller = (*ssdbus.Client)(nil)

// CleanupErr wraps a signal-unsubscribe failure. Wait does not return this
// type: it reports an unsubscribe failure through its third return value,
// as an error wrapping kerrors.ErrMatchStop, independently of the primary
// result.
type CleanupErr struct {
	error
}

// Wait drives a mutating call's prompt to completion. If promptPath is the
// null prompt path, no interaction is needed and Wait returns immediately.
// Otherwise it subscribes to Completed, calls Prompt(""), and waits up to
// MaxTicks ticks of TickInterval. On success it returns the object path the
// daemon reports as newly created (a collection or item); on dismissal,
// timeout, or malformed signal it returns the corresponding kerrors
// sentinel. The signal subscription is always torn down before returning.
func Wait(ctx context.Context, c caller, promptPath godbus.ObjectPath) (result godbus.ObjectPath, err error, cleanupErr error) {
	return WaitWithBudget(ctx, c, promptPath, TickInterval, MaxTicks)
}

// WaitWithBudget is Wait with the tick interval and tick budget made
// explicit, so tests can exercise the timeout path without waiting 5
// minutes of wall-clock time.
func WaitWithBudget(ctx context.Context, c caller, promptPath godbus.ObjectPath, interval time.Duration, maxTicks int) (result godbus.ObjectPath, err error, cleanupErr error) {
	if promptPath == ssdbus.NullPromptPath || promptPath == "" {
		return "", nil, nil
	}

	ch := c.SignalChannel(16)
	defer c.RemoveSignalChannel(ch)

	if matchErr := c.AddPromptMatch(promptPath); matchErr != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrMatchSignal, matchErr), nil
	}
	defer func() {
		if unmatchErr := c.RemovePromptMatch(promptPath); unmatchErr != nil {
			cleanupErr = fmt.Errorf("%w: %v", kerrors.ErrMatchStop, unmatchErr)
		}
	}()

	if callErr := c.CallPrompt(ctx, promptPath); callErr != nil {
		return "", fmt.Errorf("call prompt: %w", callErr), nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 0; tick < maxTicks; tick++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err(), nil
		case sig := <-ch:
			path, parseErr, matched := parseCompleted(sig, promptPath)
			if !matched {
				tick-- // a signal for some other object/member doesn't consume our tick budget
				continue
			}
			return path, parseErr, nil
		case <-ticker.C:
			continue
		}
	}
	return "", kerrors.ErrPromptTimeout, nil
}

// parseCompleted reports whether sig is the Completed signal for
// promptPath, and if so parses it into (path, err).
func parseCompleted(sig *godbus.Signal, promptPath godbus.ObjectPath) (godbus.ObjectPath, error, bool) {
	if sig == nil || sig.Path != promptPath || sig.Name != PromptIfaceCompleted {
		return "", nil, false
	}
	if len(sig.Body) < 2 {
		return "", kerrors.ErrParsePromptSignal, true
	}
	dismissed, ok := sig.Body[0].(bool)
	if !ok {
		return "", kerrors.ErrParsePromptSignal, true
	}
	if dismissed {
		return "", kerrors.ErrPromptDismissed, true
	}
	variant, ok := sig.Body[1].(godbus.Variant)
	if !ok {
		return "", kerrors.ErrParsePromptSignal, true
	}
	path, ok := variant.Value().(godbus.ObjectPath)
	if !ok {
		return "", kerrors.ErrParsePromptPath, true
	}
	return path, nil, true
}

// PromptIfaceCompleted is the full signal name Completed is emitted under.
const PromptIfaceCompleted = ssdbus.PromptIface + ".Completed"
