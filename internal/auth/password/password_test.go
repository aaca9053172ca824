package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct-horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	assert.True(t, Verify("correct-horse", encoded))
	assert.False(t, Verify("wrong-horse", encoded))
}

func TestHashUsesFreshSalt(t *testing.T) {
	a, err := Hash("same-password")
	require.NoError(t, err)
	b, err := Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	assert.False(t, Verify("x", ""))
	assert.False(t, Verify("x", "$argon2i$v=19$m=1,t=1,p=1$AA$AA"))
	assert.False(t, Verify("x", "$argon2id$v=19$m=a,t=1,p=1$AA$AA"))
	assert.False(t, Verify("x", "$argon2id$v=19$m=1,t=1,p=1x$AAAA$AAAA"))
	assert.False(t, Verify("x", "$argon2id$v=16$m=65536,t=1,p=4$AAAA$AAAA"))
}

func TestVerifyRejectsZeroLanes(t *testing.T) {
	encoded, err := Hash("correct-horse")
	require.NoError(t, err)
	tampered := strings.Replace(encoded, ",p=4$", ",p=0$", 1)
	require.NotEqual(t, encoded, tampered)

	assert.NotPanics(t, func() {
		assert.False(t, Verify("correct-horse", tampered))
	})
}

func TestAcceptable(t *testing.T) {
	assert.True(t, Acceptable("12345678"))
	assert.True(t, Acceptable("  pässwörd  "))
	assert.False(t, Acceptable("short"))
	assert.False(t, Acceptable("   1234567   "))
}
