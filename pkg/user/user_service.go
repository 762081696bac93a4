package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/projtrack/tracker/internal/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingFields    = errors.New("username, email and password are required")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

type Service interface {
	// Register stores a new unconfirmed account and asks for its confirmation
	// email. When only the email fails, the stored user is returned together
	// with ErrConfirmationNotSent.
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Login(ctx context.Context, username, password string) (Session, error)
	Logout(ctx context.Context, token string) error
	// Authenticate returns the owner of a live session.
	Authenticate(ctx context.Context, token string) (User, error)
	// Confirm marks the account of a confirmation token as confirmed. It
	// reports true when the account already was.
	Confirm(ctx context.Context, token string) (bool, error)
	ConfirmUsername(ctx context.Context, username string) error
	// ResendConfirmation behaves the same whether or not the email belongs
	// to an unconfirmed account, unless sending fails.
	ResendConfirmation(ctx context.Context, email string) error
	ChangeRole(ctx context.Context, actor User, userId int, role Role) error
	GetAllUsers(ctx context.Context) ([]User, error)
	HasUsers(ctx context.Context) (bool, error)
	IsSuperAdmin(u User) bool
}

type Options struct {
	// AdminEmail gets the admin role on registration and may delete records.
	AdminEmail string
	SessionTTL time.Duration
}

type UserServiceImpl struct {
	repo   Repo
	bus    *event_bus.EventBus
	tokens *Tokens
	clock  utils.Clock
	opts   Options
}

func NewUserService(repo Repo, bus *event_bus.EventBus, tokens *Tokens, clock utils.Clock, opts Options) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, bus: bus, tokens: tokens, clock: clock, opts: opts}
}

func (s *UserServiceImpl) Register(ctx context.Context, req RegisterRequest) (User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return User{}, ErrMissingFields
	}
	if req.Password != req.PasswordConfirm {
		return User{}, ErrPasswordMismatch
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return User{}, err
	}
	role := RoleViewer
	if count == 0 || s.isAdminEmail(email) {
		role = RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.repo.CreateUser(ctx, User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return User{}, err
	}
	log.Infof("Registered user %s with role %s", created.Username, created.Role)

	if err := s.publish(ctx, event_bus.UserRegisteredType, event_bus.UserRegistered{
		UserId:   created.Id,
		Username: created.Username,
		Email:    created.Email,
		Role:     string(created.Role),
	}); err != nil {
		return created, fmt.Errorf("%w: %v", ErrConfirmationNotSent, err)
	}
	return created, nil
}

func (s *UserServiceImpl) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !u.Confirmed {
		return Session{}, ErrNotConfirmed
	}

	token, err := newSessionToken()
	if err != nil {
		return Session{}, err
	}
	now := s.clock.Now()
	session := Session{Token: token, UserId: u.Id, ExpiresAt: now.Add(s.opts.SessionTTL)}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return Session{}, err
	}
	if n, err := s.repo.DeleteExpiredSessions(ctx, now); err != nil {
		log.Warnf("failed to prune expired sessions: %v", err)
	} else if n > 0 {
		log.Debugf("Pruned %d expired sessions", n)
	}
	return session, nil
}

func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, token)
}

func (s *UserServiceImpl) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrSessionNotFound
	}
	return s.repo.GetSessionUser(ctx, token, s.clock.Now())
}

func (s *UserServiceImpl) Confirm(ctx context.Context, token string) (bool, error) {
	email, err := s.tokens.Verify(token)
	if err != nil {
		log.Debugf("rejected confirmation token: %v", err)
		return false, ErrInvalidToken
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, ErrInvalidToken
	}
	if err != nil {
		return false, err
	}
	if u.Confirmed {
		return true, nil
	}
	if err := s.repo.SetConfirmed(ctx, u.Id, s.clock.Now()); err != nil {
		return false, err
	}
	log.Infof("User %s confirmed their email", u.Username)
	return false, nil
}

func (s *UserServiceImpl) ConfirmUsername(ctx context.Context, username string) error {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u.Confirmed {
		return nil
	}
	return s.repo.SetConfirmed(ctx, u.Id, s.clock.Now())
}

func (s *UserServiceImpl) ResendConfirmation(ctx context.Context, email string) error {
	u, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.Confirmed {
		return nil
	}
	if err := s.publish(ctx, event_bus.ConfirmationRequestedType, event_bus.ConfirmationRequested{
		UserId:   u.Id,
		Username: u.Username,
		Email:    u.Email,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrConfirmationNotSent, err)
	}
	return nil
}

func (s *UserServiceImpl) ChangeRole(ctx context.Context, actor User, userId int, role Role) error {
	role, err := ParseRole(string(role))
	if err != nil {
		return err
	}
	if actor.Id == userId && role != RoleAdmin {
		return ErrSelfDemotion
	}
	if err := s.repo.SetRole(ctx, userId, role); err != nil {
		return err
	}
	log.Infof("User %s set the role of user %d to %s", actor.Username, userId, role)
	return nil
}

func (s *UserServiceImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	return s.repo.GetAllUsers(ctx)
}

func (s *UserServiceImpl) HasUsers(ctx context.Context) (bool, error) {
	n, err := s.repo.CountUsers(ctx)
	return n > 0, err
}

func (s *UserServiceImpl) IsSuperAdmin(u User) bool {
	return s.isAdminEmail(u.Email)
}

func (s *UserServiceImpl) isAdminEmail(email string) bool {
	return s.opts.AdminEmail != "" && strings.EqualFold(email, s.opts.AdminEmail)
}

func (s *UserServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Publish(event_bus.NewEvent(ctx, eventType, data))
}

func newSessionToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
