package passhash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/linemk/auth-service/internal/lib/passhash"
)

func TestSHA256_KnownDigest(t *testing.T) {
	h := passhash.SHA256{}

	hash, err := h.Hash("password")
	require.NoError(t, err)
	assert.Equal(t, "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", hash)

	assert.True(t, h.Compare(hash, "password"))
	assert.False(t, h.Compare(hash, "Password"))
}

func TestBcrypt_Compare(t *testing.T) {
	h := passhash.Bcrypt{Cost: bcrypt.MinCost}

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash, "Password should be hashed")

	assert.True(t, h.Compare(hash, "secret123"))
	assert.False(t, h.Compare(hash, "wrong"))
}

func TestNew(t *testing.T) {
	h, err := passhash.New("")
	require.NoError(t, err)
	assert.IsType(t, passhash.SHA256{}, h)

	h, err = passhash.New(passhash.SchemeBcrypt)
	require.NoError(t, err)
	assert.IsType(t, passhash.Bcrypt{}, h)

	_, err = passhash.New("md5")
	assert.Error(t, err)
}
