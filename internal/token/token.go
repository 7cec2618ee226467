// Package token issues and verifies encrypted start-time tokens.
//
// A token carries the server-chosen moment a question was presented, so the
// elapsed time of an answer can be computed without trusting the client and
// without keeping per-question state between requests. The timestamp is
// AES-256-CBC encrypted under a key derived from a configured secret and
// rendered as "<ivHex>:<cipherHex>"; a fresh random IV makes every token
// unique even for identical timestamps.
package token

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadToken is returned for any token that cannot be decoded: wrong
// format, wrong IV length, undecryptable ciphertext, or an unparseable
// timestamp. Callers treat it as an invalid submission, never a fault.
var ErrBadToken = errors.New("bad start-time token")

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Codec encrypts and decrypts start-time tokens under one derived key.
// Safe for concurrent use; the key is read-only after construction.
type Codec struct {
	key []byte
}

// NewCodec derives a 32-byte AES key from secret via SHA-256. Supplying a
// new secret rotates the key without changing the token format.
func NewCodec(secret string) *Codec {
	sum := sha256.Sum256([]byte(secret))
	return &Codec{key: sum[:]}
}

// Encode encrypts t into an opaque printable token.
func (c *Codec) Encode(t time.Time) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}

	plain := pad([]byte(t.UTC().Format(timeLayout)), aes.BlockSize)
	encrypted := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, plain)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decode reverses Encode. Any malformed or tampered input yields ErrBadToken.
func (c *Codec) Decode(token string) (time.Time, error) {
	ivHex, cipherHex, ok := strings.Cut(token, ":")
	if !ok {
		return time.Time{}, ErrBadToken
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return time.Time{}, ErrBadToken
	}
	encrypted, err := hex.DecodeString(cipherHex)
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return time.Time{}, ErrBadToken
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return time.Time{}, fmt.Errorf("new cipher: %w", err)
	}

	plain := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, encrypted)

	plain, ok = unpad(plain, aes.BlockSize)
	if !ok {
		return time.Time{}, ErrBadToken
	}

	issued, err := time.Parse(timeLayout, string(plain))
	if err != nil {
		return time.Time{}, ErrBadToken
	}
	return issued, nil
}

// pad applies PKCS#7 padding.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding, reporting false on any inconsistency.
func unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
