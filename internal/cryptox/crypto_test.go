package cryptox

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// one codec for the package: Argon2 is slow on purpose
var testCodec = NewCodec("test-global-secret")

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveMasterKey(password, salt)
	key2 := DeriveMasterKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveMasterKey_DifferentSalts(t *testing.T) {
	key1 := DeriveMasterKey([]byte("secret-password"), []byte("salt-1"))
	key2 := DeriveMasterKey([]byte("secret-password"), []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestContextKey(t *testing.T) {
	ns := common.Namespace(1, 2)

	assert.Equal(t, ContextKey(ns, "alice"), ContextKey(ns, "alice"))
	assert.Len(t, ContextKey(ns, "alice"), 64)

	assert.NotEqual(t, ContextKey(ns, "alice"), ContextKey(ns, "bob"))
	assert.NotEqual(t, ContextKey(ns, "alice"), ContextKey(common.Namespace(1, 3), "alice"))

	// the separator keeps (discriminator, namespace) pairs unambiguous
	assert.NotEqual(t, ContextKey("b", "a"), ContextKey("", "ab"))
}

func TestCodec_RoundTrip(t *testing.T) {
	ctx := ContextKey(common.Namespace(1, 1), "user@example.com")

	for _, p := range []string{"x", "hunter2", "pässwörd ✓", strings.Repeat("long", 500)} {
		ct, err := testCodec.Encrypt(p, ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ct, "v1:"))
		assert.NotContains(t, ct, p)

		got, err := testCodec.Decrypt(ct, ctx)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestCodec_NonceMakesCiphertextUnique(t *testing.T) {
	ctx := ContextKey(common.Namespace(1, 1), "u")
	a, err := testCodec.Encrypt("same", ctx)
	require.NoError(t, err)
	b, err := testCodec.Encrypt("same", ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCodec_AccountIsolation(t *testing.T) {
	ctxA := ContextKey(common.Namespace(1, 10), "shared@example.com")
	ctxB := ContextKey(common.Namespace(2, 20), "shared@example.com")

	ctA, err := testCodec.Encrypt("password", ctxA)
	require.NoError(t, err)
	ctB, err := testCodec.Encrypt("password", ctxB)
	require.NoError(t, err)
	assert.NotEqual(t, ctA, ctB)

	// swapped ciphertext must not open under the other account
	_, err = testCodec.Decrypt(ctA, ctxB)
	assert.True(t, errors.Is(err, common.ErrDecrypt))
	_, err = testCodec.Decrypt(ctB, ctxA)
	assert.True(t, errors.Is(err, common.ErrDecrypt))
}

func TestCodec_UsernameIsolation(t *testing.T) {
	ns := common.Namespace(5, 6)
	ct, err := testCodec.Encrypt("password", ContextKey(ns, "old-user"))
	require.NoError(t, err)

	_, err = testCodec.Decrypt(ct, ContextKey(ns, "new-user"))
	assert.ErrorIs(t, err, common.ErrDecrypt)
}

func TestCodec_WrongSecret(t *testing.T) {
	ctx := ContextKey(common.Namespace(1, 1), "u")
	ct, err := testCodec.Encrypt("password", ctx)
	require.NoError(t, err)

	other := NewCodec("another-secret")
	_, err = other.Decrypt(ct, ctx)
	assert.ErrorIs(t, err, common.ErrDecrypt)
}

func TestCodec_Garbage(t *testing.T) {
	ctx := ContextKey(common.Namespace(1, 1), "u")

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no version", "abcdef"},
		{"bad base64", "v1:***"},
		{"too short", "v1:AAAA"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testCodec.Decrypt(tc.in, ctx)
			assert.ErrorIs(t, err, common.ErrDecrypt)
		})
	}

	ct, err := testCodec.Encrypt("password", ctx)
	require.NoError(t, err)
	tampered := ct[:len(ct)-2] + "AA"
	if tampered != ct {
		_, err = testCodec.Decrypt(tampered, ctx)
		assert.ErrorIs(t, err, common.ErrDecrypt)
	}
}

func TestOneShotHelpers(t *testing.T) {
	ctx := ContextKey(common.Namespace(9, 9), "owner@example.com")
	ct, err := Encrypt("token", "s3cret", ctx)
	require.NoError(t, err)

	got, err := Decrypt(ct, "s3cret", ctx)
	require.NoError(t, err)
	assert.Equal(t, "token", got)
}

func TestSubKey(t *testing.T) {
	state := StateKey("s3cret")
	assert.Len(t, state, keySize)
	assert.Equal(t, state, StateKey("s3cret"))
	assert.NotEqual(t, state, StateKey("other"))
	assert.NotEqual(t, []byte("s3cret"), state)

	// purposes never share key material
	assert.NotEqual(t, state, LinkKey("s3cret"))
	assert.NotEqual(t, state, SubKey("s3cret", keyringInfo))
	assert.NotEqual(t, state, DeriveMasterKey([]byte("s3cret"), masterSalt))
	assert.Equal(t, hex.EncodeToString(SubKey("s3cret", keyringInfo)), KeyringPassword("s3cret"))
}
