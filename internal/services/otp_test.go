package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPIssueAndVerify(t *testing.T) {
	store := NewOTPStore()
	code, err := store.Issue("User@Example.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	// normalization makes the lookup case-insensitive
	assert.True(t, store.Verify("user@example.com ", code))
}

func TestOTPConsumedOnSuccess(t *testing.T) {
	store := NewOTPStore()
	code, err := store.Issue("user@example.com")
	require.NoError(t, err)

	assert.True(t, store.Verify("user@example.com", code))
	assert.False(t, store.Verify("user@example.com", code))
}

func TestOTPWrongCodeDoesNotConsume(t *testing.T) {
	store := NewOTPStore()
	code, err := store.Issue("user@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.False(t, store.Verify("user@example.com", wrong))
	assert.True(t, store.Verify("user@example.com", code))
}

func TestOTPReissueReplacesCode(t *testing.T) {
	store := NewOTPStore()
	first, err := store.Issue("user@example.com")
	require.NoError(t, err)
	second, err := store.Issue("user@example.com")
	require.NoError(t, err)

	if first != second {
		assert.False(t, store.Verify("user@example.com", first))
	}
	assert.True(t, store.Verify("user@example.com", second))
}

func TestOTPUnknownEmail(t *testing.T) {
	store := NewOTPStore()
	assert.False(t, store.Verify("nobody@example.com", "123456"))
}
