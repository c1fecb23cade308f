package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.Issue("member-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	memberID, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "member-1", memberID)
}

func TestParse_Rejections(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		token, err := other.Issue("member-1")
		require.NoError(t, err)

		_, err = tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		short := NewTokenManager("test-secret", -time.Minute)
		token, err := short.Issue("member-1")
		require.NoError(t, err)

		_, err = tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
