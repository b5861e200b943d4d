// Package textcrypto encrypts and hashes short sensitive text fields such as
// emails and role labels.
//
// Encrypted values are base64(iv || AES-CBC(PKCS#7(plaintext))). Encrypt uses
// the configured IV, so equal plaintexts produce equal ciphertexts; this keeps
// encrypted columns and claims comparable but means ciphertexts are linkable.
// EncryptRandom produces the same format with a fresh IV.
package textcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrDecryption is returned for malformed input, a wrong key or bad padding.
var ErrDecryption = errors.New("textcrypto: decryption failed")

// TextInfo bundles the three representations stored for a sensitive field.
type TextInfo struct {
	Plain     string
	Encrypted string
	Hashed    string
}

// Cipher holds the AES block and the fixed IV used by Encrypt.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// New builds a Cipher. key must be 16, 24 or 32 bytes and iv exactly one block.
func New(key, iv []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("textcrypto: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("textcrypto: iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	ivCopy := make([]byte, aes.BlockSize)
	copy(ivCopy, iv)
	return &Cipher{block: block, iv: ivCopy}, nil
}

// Encrypt is deterministic: same plaintext, same output.
func (c *Cipher) Encrypt(plain string) string {
	return c.seal(c.iv, plain)
}

// EncryptRandom encrypts with a random IV. Decrypt reads the IV from the
// prefix so both forms decrypt the same way.
func (c *Cipher) EncryptRandom(plain string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("textcrypto: read iv: %w", err)
	}
	return c.seal(iv, plain), nil
}

func (c *Cipher) seal(iv []byte, plain string) string {
	padded := pad([]byte(plain), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt and EncryptRandom.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", ErrDecryption
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", ErrDecryption
	}
	iv, body := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, body)
	plain, err = unpad(plain, aes.BlockSize)
	if err != nil {
		return "", ErrDecryption
	}
	if !utf8.Valid(plain) {
		return "", ErrDecryption
	}
	return string(plain), nil
}

// Info returns the plaintext together with its encrypted and hashed forms.
func (c *Cipher) Info(plain string) TextInfo {
	return TextInfo{Plain: plain, Encrypted: c.Encrypt(plain), Hashed: Hash(plain)}
}

// Hash returns the hex SHA-256 digest of plain.
func Hash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// CompareHash reports whether digest is the Hash of plain.
func CompareHash(plain, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(plain)), []byte(digest)) == 1
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrDecryption
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, ErrDecryption
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrDecryption
		}
	}
	return b[:len(b)-n], nil
}
