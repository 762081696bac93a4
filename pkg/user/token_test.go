package user

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/projtrack/tracker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	clock := &utils.MockClock{FixedNow: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	tokens := NewTokens("secret", time.Hour, clock)

	t.Run("should round trip the email", func(t *testing.T) {
		token, err := tokens.Issue("ann@example.com")
		require.NoError(t, err)

		email, err := tokens.Verify(token)

		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", email)
	})

	t.Run("should reject expired tokens", func(t *testing.T) {
		token, _ := tokens.Issue("ann@example.com")
		later := NewTokens("secret", time.Hour, &utils.MockClock{FixedNow: clock.FixedNow.Add(61 * time.Minute)})

		_, err := later.Verify(token)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should reject tokens signed with another secret", func(t *testing.T) {
		token, _ := NewTokens("other", time.Hour, clock).Issue("ann@example.com")

		_, err := tokens.Verify(token)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should reject tokens issued for another purpose", func(t *testing.T) {
		claims := confirmationClaims{
			Purpose: "reset-password",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "ann@example.com",
				ExpiresAt: jwt.NewNumericDate(clock.FixedNow.Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = tokens.Verify(token)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should reject garbage", func(t *testing.T) {
		_, err := tokens.Verify("not-a-token")

		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
