// SPDX-License-Identifier: Apache-2.0

// Package flow implements the sans-I/O state machines for the three
// keyring operations (read, write, delete). A Flow never performs I/O: it
// only tells its driver what to do next, and is advanced by the driver
// acknowledging completion of each step. This is the "capability style"
// described in spec.md/SPEC_FULL.md §4.6/§9 — the only style implemented
// here, per the Open Question decision recorded in DESIGN.md.
package flow

import "github.com/mjlee/pimkeyring/internal/kerrors"

// Step identifies one unit of abstract I/O a driver must perform before the
// flow can continue.
type Step int

const (
	StepEntryRead Step = iota
	StepEntryWrite
	StepEntryDelete
	StepCryptoEncrypt
	StepCryptoDecrypt
)

func (s Step) String() string {
	switch s {
	case StepEntryRead:
		return "Entry(Read)"
	case StepEntryWrite:
		return "Entry(Write)"
	case StepEntryDelete:
		return "Entry(Delete)"
	case StepCryptoEncrypt:
		return "Crypto(Encrypt)"
	case StepCryptoDecrypt:
		return "Crypto(Decrypt)"
	default:
		return "Step(?)"
	}
}

// Entry is the immutable (service, name) descriptor identifying one keyring
// credential.
type Entry struct {
	Service string
	Name    string
}

// Label is the "service:account" string Secret Service item labels use.
func (e Entry) Label() string {
	return e.Service + ":" + e.Name
}

// State is the per-operation mutable workspace a flow owns and a driver
// borrows for the duration of one step. It is never shared between flows.
type State struct {
	entry     Entry
	secret    []byte
	hasSecret bool
	salt      []byte
	hasSalt   bool
	done      bool
	failed    error
}

// Entry returns the entry this flow operates on.
func (s *State) Entry() Entry { return s.entry }

// GetKey returns the identifier drivers should use to look an entry up in
// a backing store (its account name).
func (s *State) GetKey() string { return s.entry.Name }

// TakeSecret transfers ownership of the currently held secret bytes to the
// caller, clearing the flow's copy.
func (s *State) TakeSecret() ([]byte, bool) {
	if !s.hasSecret {
		return nil, false
	}
	v := s.secret
	s.secret, s.hasSecret = nil, false
	return v, true
}

// PutSecret stores secret bytes in the flow, replacing any previous value.
func (s *State) PutSecret(v []byte) {
	s.secret, s.hasSecret = v, true
}

// TakeSalt transfers ownership of the currently held salt/IV to the caller.
func (s *State) TakeSalt() ([]byte, bool) {
	if !s.hasSalt {
		return nil, false
	}
	v := s.salt
	s.salt, s.hasSalt = nil, false
	return v, true
}

// PutSalt stores the salt/IV in the flow, replacing any previous value.
func (s *State) PutSalt(v []byte) {
	s.salt, s.hasSalt = v, true
}

// MarkDone records terminal success for write/delete operations.
func (s *State) MarkDone() { s.done = true }

// Done reports whether the operation has reached terminal success.
func (s *State) Done() bool { return s.done }

// HasSecret reports whether a secret is currently held (used by read flows
// to decide completion).
func (s *State) HasSecret() bool { return s.hasSecret }

// Fail transitions the flow into a permanent failure state; once failed, a
// flow emits no further steps and Err returns the recorded error.
func (s *State) Fail(err error) { s.failed = err }

// Err returns the error that failed this flow, if any.
func (s *State) Err() error { return s.failed }

// Flow is the sans-I/O state machine contract (C6/C7): repeatedly call
// Next to learn what I/O the driver must perform next. Next returns
// (step, true) while work remains and (_, false) once the operation is
// complete (successfully or by permanent failure — check Err/HasSecret/Done
// to distinguish). A flow that has emitted its last step emits no further
// steps; calling Next again after exhaustion keeps returning (_, false).
type Flow interface {
	Next() (Step, bool)
	Capabilities
}

// Capabilities is the narrow interface (C7, the "flow contract") a driver
// uses to exchange data with a running flow without knowing which
// operation it is. cryptoengine consumes this same shape (plus SharedKey,
// supplied by the driver's session wrapper) to run its Encrypt/Decrypt
// steps.
type Capabilities interface {
	GetKey() string
	TakeSecret() ([]byte, bool)
	PutSecret([]byte)
	TakeSalt() ([]byte, bool)
	PutSalt([]byte)
	MarkDone()
	Entry() Entry
	Done() bool
	HasSecret() bool
	Fail(error)
	Err() error
}

// ReadFlow reads and decrypts a secret: Entry(Read) -> [Crypto(Decrypt)] -> done.
type ReadFlow struct {
	*State
	encrypted bool
	cursor    int
	exhausted bool
}

// NewRead builds a flow for reading entry. encrypted selects whether a
// Crypto(Decrypt) step follows the Entry(Read) step (Dh sessions) or not
// (Plain sessions).
func NewRead(entry Entry, encrypted bool) *ReadFlow {
	return &ReadFlow{State: &State{entry: entry}, encrypted: encrypted}
}

// Next implements Flow.
func (f *ReadFlow) Next() (Step, bool) {
	if f.exhausted || f.Err() != nil {
		return 0, false
	}
	switch f.cursor {
	case 0:
		f.cursor++
		return StepEntryRead, true
	case 1:
		f.cursor++
		if f.encrypted {
			return StepCryptoDecrypt, true
		}
		fallthrough
	default:
		f.exhausted = true
		return 0, false
	}
}

// WriteFlow encrypts then writes a secret: [Crypto(Encrypt)] -> Entry(Write) -> done.
type WriteFlow struct {
	*State
	encrypted bool
	cursor    int
	exhausted bool
}

// NewWrite builds a flow for writing secret to entry.
func NewWrite(entry Entry, secret []byte, encrypted bool) (*WriteFlow, error) {
	if len(secret) == 0 {
		return nil, kerrors.ErrEmptySecret
	}
	st := &State{entry: entry}
	st.PutSecret(secret)
	return &WriteFlow{State: st, encrypted: encrypted}, nil
}

// Next implements Flow.
func (f *WriteFlow) Next() (Step, bool) {
	if f.exhausted || f.Err() != nil {
		return 0, false
	}
	switch f.cursor {
	case 0:
		f.cursor++
		if f.encrypted {
			return StepCryptoEncrypt, true
		}
		fallthrough
	case 1:
		f.cursor = 2
		return StepEntryWrite, true
	default:
		f.exhausted = true
		return 0, false
	}
}

// DeleteFlow deletes an entry: Entry(Delete) -> done.
type DeleteFlow struct {
	*State
	cursor    int
	exhausted bool
}

// NewDelete builds a flow for deleting entry.
func NewDelete(entry Entry) *DeleteFlow {
	return &DeleteFlow{State: &State{entry: entry}}
}

// Next implements Flow.
func (f *DeleteFlow) Next() (Step, bool) {
	if f.exhausted || f.Err() != nil {
		return 0, false
	}
	if f.cursor == 0 {
		f.cursor++
		return StepEntryDelete, true
	}
	f.exhausted = true
	return 0, false
}
