package user

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/projtrack/tracker/internal/config"
	"github.com/projtrack/tracker/internal/rest"
	"github.com/projtrack/tracker/pkg/flash"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Id        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Confirmed bool   `json:"confirmed"`
}

type RegisterForm struct {
	Username        string `form:"username" validate:"max=80"`
	Email           string `form:"email" validate:"omitempty,email,max=120"`
	Password        string `form:"password"`
	PasswordConfirm string `form:"password_confirm"`
}

type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

type RoleForm struct {
	UserId int    `form:"user_id"`
	Role   string `form:"role"`
}

type Handler struct {
	userService Service
	session     config.Session
}

func NewHandler(userService Service, session config.Session) *Handler {
	return &Handler{
		userService: userService,
		session:     session,
	}
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	hasUsers, err := h.userService.HasUsers(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"is_first_user": !hasUsers,
		"flashes":       flash.Pop(w, r),
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log.Debug("Registering user")

	var form RegisterForm
	if err := rest.DecodeForm(r, &form); err != nil {
		flash.Add(w, r, flash.Error, "Invalid form submission.")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	if messages, ok := rest.Check(&form); !ok {
		for _, m := range messages {
			flash.Add(w, r, flash.Error, m)
		}
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	created, err := h.userService.Register(r.Context(), RegisterRequest{
		Username:        form.Username,
		Email:           form.Email,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
	})
	switch {
	case errors.Is(err, ErrMissingFields):
		flash.Add(w, r, flash.Error, "Username, email, and password are required.")
	case errors.Is(err, ErrPasswordMismatch):
		flash.Add(w, r, flash.Error, "Passwords do not match.")
	case errors.Is(err, ErrUsernameTaken):
		flash.Add(w, r, flash.Error, "Username or email already exists. Choose another one.")
	case err != nil && !errors.Is(err, ErrConfirmationNotSent):
		log.Errorf("failed to register user: %v", err)
		flash.Add(w, r, flash.Error, "An error occurred while creating the account.")
	default:
		if err != nil {
			flash.Add(w, r, flash.Info, "Account created, but confirmation email could not be sent.")
		}
		flash.Add(w, r, flash.Success,
			fmt.Sprintf("User '%s' created successfully with role '%s'. You can now log in.", created.Username, created.Role))
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/register", http.StatusFound)
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"next":    rest.SafeNext(r.URL.Query().Get("next"), ""),
		"flashes": flash.Pop(w, r),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if err := rest.DecodeForm(r, &form); err != nil {
		flash.Add(w, r, flash.Error, "Invalid form submission.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	session, err := h.userService.Login(r.Context(), form.Username, form.Password)
	switch {
	case errors.Is(err, ErrNotConfirmed):
		flash.Add(w, r, flash.Error, "Please confirm your email address before logging in. Check your inbox.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	case errors.Is(err, ErrInvalidCredentials):
		flash.Add(w, r, flash.Error, "Invalid username or password.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	case err != nil:
		log.Errorf("failed to log in: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	flash.Add(w, r, flash.Success, "Logged in successfully.")
	http.Redirect(w, r, rest.Next(r, "/"), http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.session.CookieName); err == nil {
		if err := h.userService.Logout(r.Context(), c.Value); err != nil {
			log.Warnf("failed to delete session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(1, 0),
		HttpOnly: true,
		Secure:   h.session.Secure,
	})
	flash.Add(w, r, flash.Info, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.GetAllUsers(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, userToDTO(u))
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"users":   dtos,
		"flashes": flash.Pop(w, r),
	})
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, err := CurrentUser(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	var form RoleForm
	if err := rest.DecodeForm(r, &form); err != nil || form.UserId == 0 {
		http.Redirect(w, r, "/admin/users", http.StatusFound)
		return
	}

	err = h.userService.ChangeRole(r.Context(), actor, form.UserId, Role(form.Role))
	switch {
	case errors.Is(err, ErrSelfDemotion):
		flash.Add(w, r, flash.Error, "You cannot remove your own admin rights while logged in.")
	case errors.Is(err, ErrInvalidRole):
		// unknown roles change nothing
	case errors.Is(err, ErrUserNotFound):
		flash.Add(w, r, flash.Error, "User not found.")
	case err != nil:
		log.Errorf("failed to change role of user %d: %v", form.UserId, err)
		flash.Add(w, r, flash.Error, "An error occurred while updating the role.")
	default:
		flash.Add(w, r, flash.Success, "User role updated.")
	}
	http.Redirect(w, r, "/admin/users", http.StatusFound)
}

func (h *Handler) ResendPage(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]any{"flashes": flash.Pop(w, r)})
}

func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		flash.Add(w, r, flash.Error, "Email is required.")
		http.Redirect(w, r, "/resend-confirmation", http.StatusFound)
		return
	}

	if err := h.userService.ResendConfirmation(r.Context(), email); err != nil {
		log.Errorf("failed to resend confirmation: %v", err)
		flash.Add(w, r, flash.Error, "Could not send confirmation email. Please try again later.")
	} else {
		flash.Add(w, r, flash.Info, "If that email is registered and not yet confirmed, a new confirmation link has been sent.")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	already, err := h.userService.Confirm(r.Context(), mux.Vars(r)["token"])
	switch {
	case errors.Is(err, ErrInvalidToken):
		flash.Add(w, r, flash.Error, "The confirmation link is invalid or has expired.")
	case err != nil:
		log.Errorf("failed to confirm email: %v", err)
		flash.Add(w, r, flash.Error, "An error occurred while confirming the email.")
	case already:
		flash.Add(w, r, flash.Info, "Account already confirmed. Please log in.")
	default:
		flash.Add(w, r, flash.Success, "Your email has been confirmed. You can now log in.")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func userToDTO(u User) UserDTO {
	return UserDTO{
		Id:        u.Id,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Confirmed: u.Confirmed,
	}
}

