package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/projtrack/tracker/internal/config"
	"github.com/projtrack/tracker/internal/utils"
	"github.com/projtrack/tracker/pkg/flash"
	"github.com/projtrack/tracker/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminEmail = "owner@example.org"

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var session = config.Session{CookieName: "sid", TTL: time.Hour}

func setup(t *testing.T) (*mux.Router, *user.StubUserRepository) {
	repo := user.NewStubUserRepository()
	clock := &utils.MockClock{FixedNow: now}
	users := user.NewUserService(repo, nil, user.NewTokens("secret", time.Hour, clock), clock, user.Options{
		AdminEmail: adminEmail,
		SessionTTL: time.Hour,
	})
	guard := NewGuard(users)

	ok := func(w http.ResponseWriter, r *http.Request) {
		u, err := user.CurrentUser(r.Context())
		if err == nil {
			_, _ = w.Write([]byte(u.Username))
		}
	}

	r := mux.NewRouter()
	r.Use(requestId)
	r.Use(sessionUser(users, session))
	r.HandleFunc("/open", ok)
	r.HandleFunc("/download", guard.Login(ok))
	r.HandleFunc("/edit", guard.Admin(ok))
	r.HandleFunc("/delete", guard.SuperAdmin("Only the super administrator can delete activities.", ok))
	t.Cleanup(repo.Cleanup)
	return r, repo
}

func withSession(t *testing.T, repo *user.StubUserRepository, u user.User) *http.Cookie {
	created, err := repo.CreateUser(context.Background(), u)
	require.NoError(t, err)
	token := "token-" + u.Username
	require.NoError(t, repo.CreateSession(context.Background(), user.Session{
		Token:     token,
		UserId:    created.Id,
		ExpiresAt: now.Add(time.Hour),
	}))
	return &http.Cookie{Name: session.CookieName, Value: token}
}

func do(r http.Handler, path string, cookie *http.Cookie) *http.Response {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr.Result()
}

func TestRequestId(t *testing.T) {
	r, _ := setup(t)

	resp := do(r, "/open", nil)

	assert.NotEmpty(t, resp.Header.Get(requestIdHeader))
}

func TestSessionUser(t *testing.T) {
	t.Run("should load the session owner", func(t *testing.T) {
		r, repo := setup(t)
		cookie := withSession(t, repo, user.User{Username: "alice", Email: "alice@example.org", Role: user.RoleViewer})

		resp := do(r, "/open", cookie)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "alice", string(body))
	})

	t.Run("should continue anonymously for an unknown session", func(t *testing.T) {
		r, _ := setup(t)

		resp := do(r, "/open", &http.Cookie{Name: session.CookieName, Value: "gone"})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestGuard_Login(t *testing.T) {
	r, _ := setup(t)

	resp := do(r, "/download?status=Ongoing", nil)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fdownload%3Fstatus%3DOngoing", resp.Header.Get("Location"))
	assert.Equal(t, []flash.Message{{Category: flash.Error, Text: "Please log in to continue."}}, flash.Read(resp))
}

func TestGuard_Admin(t *testing.T) {
	t.Run("should turn viewers away", func(t *testing.T) {
		r, repo := setup(t)
		cookie := withSession(t, repo, user.User{Username: "bob", Email: "bob@example.org", Role: user.RoleViewer})

		resp := do(r, "/edit", cookie)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
		assert.Equal(t, []flash.Message{{Category: flash.Error, Text: "You do not have permission to perform this action."}}, flash.Read(resp))
	})

	t.Run("should let admins through", func(t *testing.T) {
		r, repo := setup(t)
		cookie := withSession(t, repo, user.User{Username: "carol", Email: "carol@example.org", Role: user.RoleAdmin})

		resp := do(r, "/edit", cookie)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestGuard_SuperAdmin(t *testing.T) {
	t.Run("should turn other admins away", func(t *testing.T) {
		r, repo := setup(t)
		cookie := withSession(t, repo, user.User{Username: "carol", Email: "carol@example.org", Role: user.RoleAdmin})

		resp := do(r, "/delete", cookie)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, []flash.Message{{Category: flash.Error, Text: "Only the super administrator can delete activities."}}, flash.Read(resp))
	})

	t.Run("should let the configured admin email through", func(t *testing.T) {
		r, repo := setup(t)
		cookie := withSession(t, repo, user.User{Username: "owner", Email: "Owner@example.org", Role: user.RoleAdmin})

		resp := do(r, "/delete", cookie)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
