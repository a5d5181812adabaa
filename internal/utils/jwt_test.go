package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	s := NewJWTSigner("test-secret", time.Hour)

	token, err := s.Generate("u-1", "ops@example.com", "operator")
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "operator", claims.Role)
}

func TestJWTRejectsForeignSecret(t *testing.T) {
	token, err := NewJWTSigner("one", time.Hour).Generate("u-1", "a@b.c", "admin")
	require.NoError(t, err)

	_, err = NewJWTSigner("two", time.Hour).Validate(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
