package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	decomposed := "Jose\u0301"
	composed := "Jos\u00e9"

	assert.Equal(t, composed, normalizeName("  "+decomposed+"\t"))
	assert.Equal(t, composed, normalizeName(composed))
	assert.Equal(t, "", normalizeName("   "))
}

func TestUsernamesCompareAfterNormalization(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	_, err := db.AddUser(ctx, "Jose\u0301", "pw")
	require.NoError(t, err)

	_, err = db.AddUser(ctx, "Jos\u00e9", "pw")
	require.ErrorIs(t, err, ErrAlreadyExists)

	u, created, err := db.LoginUser(ctx, "Jos\u00e9", "pw")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Jos\u00e9", u.Username)
}
