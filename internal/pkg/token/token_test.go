package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

func TestGenerateFormat(t *testing.T) {
	raw, err := Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, KeyPrefix))
	// 32 bytes of base32 without padding is 52 characters
	assert.Len(t, raw, len(KeyPrefix)+52)
	assert.Equal(t, strings.ToLower(raw), raw)
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 256; i++ {
		raw, err := Generate()
		require.NoError(t, err)
		_, dup := seen[raw]
		require.False(t, dup, "generated the same key twice")
		seen[raw] = struct{}{}
	}
}

func TestDigestDeterministic(t *testing.T) {
	raw, err := Generate()
	require.NoError(t, err)

	assert.Equal(t, Digest(raw), Digest(raw))
	assert.Len(t, Digest(raw), 64)
	// Surrounding whitespace must not change the stored key
	assert.Equal(t, Digest(raw), Digest("  "+raw+"\n"))
}

func TestDigestCollisionFree(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 256; i++ {
		raw, err := Generate()
		require.NoError(t, err)
		d := Digest(raw)
		prev, dup := seen[d]
		require.False(t, dup, "digest collision between %q and %q", prev, raw)
		seen[d] = raw
	}
}

func TestPrefix(t *testing.T) {
	raw, err := Generate()
	require.NoError(t, err)

	p := Prefix(raw)
	assert.Len(t, p, 16)
	assert.True(t, strings.HasPrefix(raw, p))
	assert.Equal(t, "cbx_short", Prefix("cbx_short"))
}

func TestParse(t *testing.T) {
	raw, err := Generate()
	require.NoError(t, err)

	got, err := Parse("  " + raw + " ")
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	for _, bad := range []string{
		"",
		"cbx_",
		"not-a-key",
		"pxl_" + raw[len(KeyPrefix):],
		KeyPrefix + "!!!not-base32!!!",
	} {
		_, err := Parse(bad)
		require.Error(t, err, "input %q", bad)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
}
