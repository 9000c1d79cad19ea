// SPDX-License-Identifier: Apache-2.0

// Package cryptoengine implements the AES-128-CBC/PKCS7 transport
// encryption used once a Secret Service session has a DH-derived shared
// key. It operates on the flow contract (see internal/flow) rather than
// any concrete session type, so it never performs I/O itself.
package cryptoengine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/mjlee/pimkeyring/internal/kerrors"
)

// Flow is the minimal surface cryptoengine needs from a running flow: the
// secret/salt slots of internal/flow.State, accessed through the flow
// contract's capability methods.
type Flow interface {
	SharedKey() ([]byte, bool)
	TakeSecret() ([]byte, bool)
	PutSecret([]byte)
	TakeSalt() ([]byte, bool)
	PutSalt([]byte)
}

// Encrypt takes the plaintext secret currently held by the flow, encrypts
// it under the flow's shared key with a freshly drawn IV, and stores the
// ciphertext back as the flow's secret and the IV as the flow's salt.
func Encrypt(f Flow) error {
	plaintext, ok := f.TakeSecret()
	if !ok {
		return kerrors.ErrEncryptUndefinedSecret
	}
	key, ok := f.SharedKey()
	if !ok {
		return kerrors.ErrEncryptSecretMissingKey
	}

	iv, ciphertext, err := aesCBCEncrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}

	f.PutSecret(ciphertext)
	f.PutSalt(iv)
	return nil
}

// Decrypt takes the ciphertext and IV currently held by the flow, decrypts
// under the flow's shared key, and stores the plaintext back as the flow's
// secret.
func Decrypt(f Flow) error {
	ciphertext, ok := f.TakeSecret()
	if !ok {
		return kerrors.ErrDecryptUndefinedSecret
	}
	key, ok := f.SharedKey()
	if !ok {
		return kerrors.ErrDecryptSecretMissingKey
	}
	iv, _ := f.TakeSalt() // absent defaults to empty, which fails non-trivial payloads below.

	plaintext, err := aesCBCDecrypt(ciphertext, iv, key)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrDecryptSecret, err)
	}

	f.PutSecret(plaintext)
	return nil
}

// aesCBCEncrypt PKCS7-pads plaintext, draws a fresh 16-byte IV, and returns
// (iv, ciphertext).
func aesCBCEncrypt(plaintext, key []byte) (iv, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	iv = make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}

	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return iv, ciphertext, nil
}

// aesCBCDecrypt reverses aesCBCEncrypt.
func aesCBCDecrypt(ciphertext, iv, key []byte) ([]byte, error) {
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("invalid IV length: %d", len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("invalid ciphertext length: %d", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padding)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padding)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty padded data")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid PKCS7 padding")
	}
	for i := len(data) - padding; i < len(data); i++ {
		if data[i] != byte(padding) {
			return nil, fmt.Errorf("invalid PKCS7 padding byte")
		}
	}
	return data[:len(data)-padding], nil
}
