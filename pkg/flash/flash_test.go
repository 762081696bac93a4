package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndPop(t *testing.T) {
	// given
	first := httptest.NewRecorder()
	Add(first, httptest.NewRequest("POST", "/upload", nil), Success, "Imported 2 new activities, updated 0 existing.")
	Add(first, httptest.NewRequest("POST", "/upload", nil), Info, "second")

	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest("GET", "/", nil)
	next.AddCookie(cookies[0])
	w := httptest.NewRecorder()

	// when
	messages := Pop(w, next)

	// then
	assert.Equal(t, []Message{
		{Category: Success, Text: "Imported 2 new activities, updated 0 existing."},
		{Category: Info, Text: "second"},
	}, messages)
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, cookieName, cleared[0].Name)
	assert.True(t, cleared[0].MaxAge < 0)
}

func TestPop_WithoutCookie(t *testing.T) {
	w := httptest.NewRecorder()
	assert.Empty(t, Pop(w, httptest.NewRequest("GET", "/", nil)))
	assert.Empty(t, w.Result().Cookies())
}

func TestPop_MalformedCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: "%%%"})
	assert.Empty(t, Pop(httptest.NewRecorder(), r))
}
