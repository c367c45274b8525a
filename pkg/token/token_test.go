package token_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rpcgate/pkg/token"
)

func TestRandom(t *testing.T) {
	t.Parallel()

	a, err := token.Random()
	require.NoError(t, err)
	b, err := token.Random()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, token.DefaultSize)

	_, err = token.RandomN(0)
	assert.ErrorIs(t, err, token.ErrInvalidSize)
}

func TestHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, token.Hash("session-1"), token.Hash("session-1"))
	assert.NotEqual(t, token.Hash("session-1"), token.Hash("session-2"))
	assert.Len(t, token.Hash(""), 64)
}

func TestDerive(t *testing.T) {
	t.Parallel()

	a, err := token.Derive()
	require.NoError(t, err)
	b, err := token.Derive()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, token.Equal("abc", "abc"))
	assert.False(t, token.Equal("abc", "abd"))
	assert.False(t, token.Equal("abc", ""))
}
