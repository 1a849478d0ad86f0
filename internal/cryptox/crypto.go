// Package cryptox implements the encrypted field codec used for credentials
// stored in the namespaced config store.
//
// Every stored secret is encrypted with AES-256-GCM under a key derived from
// the global secret and a context key. The context key binds the ciphertext to
// one account namespace and one discriminating value (username or resource
// owner email), so ciphertext copied between accounts or users does not
// decrypt.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	version   = "v1:"
	nonceSize = 12
	keySize   = 32
	hkdfInfo  = "mailkeeper/field/v1"

	stateInfo   = "mailkeeper/state/v1"
	linkInfo    = "mailkeeper/link/v1"
	keyringInfo = "mailkeeper/keyring/v1"
)

// masterSalt is fixed: the global secret is expected to carry the entropy.
var masterSalt = []byte("mailkeeper-field-codec")

// DeriveMasterKey stretches secret into a 256-bit key with Argon2id.
func DeriveMasterKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, keySize)
}

// SubKey derives a 256-bit key for one purpose from the global secret.
// Distinct info strings give independent keys, so the secret itself is
// never used directly as key material.
func SubKey(secret, info string) []byte {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(secret), masterSalt, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		// HKDF-SHA256 only fails past 255*32 bytes of output
		panic(err)
	}
	return key
}

// StateKey is the HMAC key for OAuth2 state tokens.
func StateKey(secret string) []byte {
	return SubKey(secret, stateInfo)
}

// LinkKey is the HMAC key for authorization link tokens.
func LinkKey(secret string) []byte {
	return SubKey(secret, linkInfo)
}

// KeyringPassword is the passphrase of the keyring file backend.
func KeyringPassword(secret string) string {
	return hex.EncodeToString(SubKey(secret, keyringInfo))
}

// ContextKey derives the context key for a value stored under namespace and
// bound to discriminator (a username or a resource owner email).
// All encrypt and decrypt call sites must use this function.
func ContextKey(namespace, discriminator string) string {
	h := sha256.New()
	h.Write([]byte(discriminator))
	h.Write([]byte{0})
	h.Write([]byte(namespace))
	return hex.EncodeToString(h.Sum(nil))
}

// Codec encrypts and decrypts string fields. It is safe for concurrent use.
type Codec struct {
	master []byte
}

// NewCodec derives the master key from the global secret once.
func NewCodec(secret string) *Codec {
	return &Codec{master: DeriveMasterKey([]byte(secret), masterSalt)}
}

func (c *Codec) fieldKey(contextKey string) ([]byte, error) {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, c.master, []byte(contextKey), []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *Codec) aead(contextKey string) (cipher.AEAD, error) {
	key, err := c.fieldKey(contextKey)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext for contextKey. The result is printable and can be
// stored as an opaque config value.
func (c *Codec) Encrypt(plaintext, contextKey string) (string, error) {
	aesgcm, err := c.aead(contextKey)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := common.GenerateRandByteArray(nonceSize)
	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), []byte(contextKey))

	return version + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens ciphertext produced by Encrypt with the same contextKey.
// Any mismatch (other namespace, other discriminator, other secret, tampering)
// yields common.ErrDecrypt.
func (c *Codec) Decrypt(ciphertext, contextKey string) (string, error) {
	raw, ok := strings.CutPrefix(ciphertext, version)
	if !ok {
		return "", common.ErrDecrypt
	}
	data, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil || len(data) < nonceSize {
		return "", common.ErrDecrypt
	}

	aesgcm, err := c.aead(contextKey)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plaintext, err := aesgcm.Open(nil, data[:nonceSize], data[nonceSize:], []byte(contextKey))
	if err != nil {
		return "", common.ErrDecrypt
	}
	return string(plaintext), nil
}

// Encrypt is the one-shot form of Codec.Encrypt. Prefer a long-lived Codec:
// deriving the master key is deliberately expensive.
func Encrypt(plaintext, secret, contextKey string) (string, error) {
	return NewCodec(secret).Encrypt(plaintext, contextKey)
}

// Decrypt is the one-shot form of Codec.Decrypt.
func Decrypt(ciphertext, secret, contextKey string) (string, error) {
	return NewCodec(secret).Decrypt(ciphertext, contextKey)
}
