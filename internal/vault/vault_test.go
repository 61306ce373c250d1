package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	r, err := ParseRef("vault:secret/recipebox/session#hash_key")
	require.NoError(t, err)
	assert.Equal(t, Ref{Mount: "secret", Path: "recipebox/session", Key: "hash_key"}, r)
	assert.Equal(t, "vault:secret/recipebox/session#hash_key", r.String())
}

func TestParseRefRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"secret/recipebox#k",
		"vault:secret/recipebox",
		"vault:secret#k",
		"vault:secret/recipebox#",
	} {
		_, err := ParseRef(in)
		assert.ErrorIs(t, err, ErrBadRef, in)
	}
}

func TestIsRef(t *testing.T) {
	assert.True(t, IsRef("vault:a/b#c"))
	assert.False(t, IsRef("plain"))
}
