// SPDX-License-Identifier: Apache-2.0

package pimkeyring

import "fmt"

// Secret wraps secret bytes with guarded exposure: its String/GoString/
// Format methods never print the underlying bytes, so an accidental
// fmt.Println(secret) or inclusion in a log.Printf("%+v", ...) call
// cannot leak it. Callers must call Expose to read the bytes, and should
// call Zero once they are done with them.
//
// Secret is produced by Keyring.Read and is the caller-visible boundary
// for spec.md §3's "guarded exposure" requirement on the Secret data
// model; internally, flows and drivers still pass plain []byte (matching
// the teacher's style for intermediate buffers) and rely on Secret only
// at the API surface a caller holds onto.
type Secret struct {
	b []byte
}

// NewSecret wraps b as a Secret. It takes ownership of b; callers should
// not retain or mutate the slice afterwards.
func NewSecret(b []byte) Secret {
	return Secret{b: b}
}

// Expose returns the underlying secret bytes. This is the one explicit
// "expose" act spec.md requires before a Secret's contents may be used.
func (s Secret) Expose() []byte {
	return s.b
}

// Len reports the secret's length without exposing its contents.
func (s Secret) Len() int {
	return len(s.b)
}

// Zero overwrites the secret's backing array with zeroes. Safe to call
// more than once; safe to call on a zero-value Secret.
func (s *Secret) Zero() {
	for i := range s.b {
		s.b[i] = 0
	}
	s.b = nil
}

// String implements fmt.Stringer with a redacted placeholder so that
// logging a Secret by accident never leaks its bytes.
func (s Secret) String() string {
	return "pimkeyring.Secret{REDACTED}"
}

// GoString implements fmt.GoStringer, guarding against %#v formatting.
func (s Secret) GoString() string {
	return "pimkeyring.Secret{REDACTED}"
}

// Format implements fmt.Formatter so every verb — %v, %s, %q, %x, %#v —
// prints the same redacted placeholder instead of reflecting into the
// unexported byte slice.
func (s Secret) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, "pimkeyring.Secret{REDACTED}")
}
