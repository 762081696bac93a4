package app

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/projtrack/tracker/internal/config"
	"github.com/projtrack/tracker/internal/observability"
	"github.com/projtrack/tracker/pkg/flash"
	"github.com/projtrack/tracker/pkg/user"
	log "github.com/sirupsen/logrus"
)

const requestIdHeader = "X-Request-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.Use(requestId)
	r.Use(observability.Middleware)
	r.Use(sessionUser(deps.UserService, cfg.Session))
}

func requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIdHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIdHeader, id)
		log.WithFields(log.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Debug("Handling request")
		next.ServeHTTP(w, r)
	})
}

// sessionUser loads the owner of the session cookie into the request context.
// Requests without a live session continue anonymously.
func sessionUser(users user.Service, session config.Session) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(session.CookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, err := users.Authenticate(r.Context(), c.Value)
			if err != nil {
				if !errors.Is(err, user.ErrSessionNotFound) {
					log.Errorf("failed to load session: %v", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			log.Tracef("session user: %s", u.Username)
			next.ServeHTTP(w, r.WithContext(user.WithUser(r.Context(), u)))
		})
	}
}

// Guard wraps handlers with the access levels of the application.
type Guard struct {
	users user.Service
}

func NewGuard(users user.Service) Guard {
	return Guard{users: users}
}

// Login sends anonymous visitors to the login page, remembering where they
// were going.
func (g Guard) Login(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := user.CurrentUser(r.Context()); err != nil {
			flash.Add(w, r, flash.Error, "Please log in to continue.")
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next(w, r)
	}
}

func (g Guard) Admin(next http.HandlerFunc) http.HandlerFunc {
	return g.Login(func(w http.ResponseWriter, r *http.Request) {
		u, _ := user.CurrentUser(r.Context())
		if !u.IsAdmin() {
			flash.Add(w, r, flash.Error, "You do not have permission to perform this action.")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next(w, r)
	})
}

// SuperAdmin only lets the configured admin email through. denied is the
// message shown to everyone else.
func (g Guard) SuperAdmin(denied string, next http.HandlerFunc) http.HandlerFunc {
	return g.Login(func(w http.ResponseWriter, r *http.Request) {
		u, _ := user.CurrentUser(r.Context())
		if !g.users.IsSuperAdmin(u) {
			flash.Add(w, r, flash.Error, denied)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next(w, r)
	})
}
