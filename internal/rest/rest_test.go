package rest

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/challenges", "/challenges"},
		{"/?status=Ongoing", "/?status=Ongoing"},
		{"", "/"},
		{"https://evil.example.com", "/"},
		{"//evil.example.com", "/"},
		{"/\\evil.example.com", "/"},
		{"challenges", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeNext(tt.next, "/"))
		})
	}
}

type signupForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Confirm  string `form:"password_confirm" validate:"eqfield=Password"`
}

func TestDecodeFormAndCheck(t *testing.T) {
	t.Run("should decode and validate a correct form", func(t *testing.T) {
		// given
		body := url.Values{"email": {"a@b.io"}, "password": {"s3cret"}, "password_confirm": {"s3cret"}}
		req := httptest.NewRequest("POST", "/register", strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		// when
		var dto signupForm
		err := DecodeForm(req, &dto)

		// then
		require.NoError(t, err)
		assert.Equal(t, "a@b.io", dto.Email)
		_, ok := Check(&dto)
		assert.True(t, ok)
	})

	t.Run("should report failing fields", func(t *testing.T) {
		// given
		dto := signupForm{Email: "nope", Password: "a", Confirm: "b"}

		// when
		messages, ok := Check(&dto)

		// then
		assert.False(t, ok)
		assert.Contains(t, messages, "Email")
		assert.Contains(t, messages, "Confirm")
	})
}
