package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/security"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerify(t *testing.T) {
	hasher := security.NewHasher(fastArgon)
	hash, err := hasher.Hash("very-secure-password")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=8192,t=1,p=1$")

	ok, stale, err := hasher.Verify("very-secure-password", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, stale)

	ok, _, err = hasher.Verify("bogus-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyFlagsChangedParameters(t *testing.T) {
	hash, err := security.NewHasher(fastArgon).Hash("hunter22")
	require.NoError(t, err)

	stronger := fastArgon
	stronger.ArgonTime = 2
	ok, stale, err := security.NewHasher(stronger).Verify("hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, stale)
}

func TestVerifyAcceptsLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-pw"), bcrypt.MinCost)
	require.NoError(t, err)

	hasher := security.NewHasher(fastArgon)
	ok, stale, err := hasher.Verify("imported-pw", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, stale)

	ok, stale, err = hasher.Verify("wrong", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, stale)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	hasher := security.NewHasher(fastArgon)
	for _, bad := range []string{"not-a-hash", "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=19$garbage$c2FsdA$a2V5"} {
		_, _, err := hasher.Verify("x", bad)
		assert.ErrorIs(t, err, security.ErrInvalidHash, bad)
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{password: "", ok: false},
		{password: "      ", ok: false},
		{password: "abc12", ok: false},
		{password: "abc123", ok: true},
		{password: "pässwö", ok: true},
	}
	for _, tt := range tests {
		err := security.CheckPasswordPolicy(tt.password)
		assert.Equal(t, tt.ok, err == nil, "password %q: %v", tt.password, err)
	}
}
