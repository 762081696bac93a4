package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/projtrack/tracker/internal/mail"
	"github.com/projtrack/tracker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var repoStub = NewStubUserRepository()

var clock = &utils.MockClock{}

var mailer = &recordingMailer{}

var tokens *Tokens

var service *UserServiceImpl

type recordingMailer struct {
	sent []mail.Message
	fail bool
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func setup(t *testing.T) func() {
	clock.SetNow(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	mailer.sent = nil
	mailer.fail = false
	bus := event_bus.NewEventBus()
	tokens = NewTokens("test-secret", time.Hour, clock)
	NewConfirmationSender(tokens, mailer, "http://tracker.local/").Subscribe(bus)
	service = NewUserService(repoStub, bus, tokens, clock, Options{
		AdminEmail: "boss@example.com",
		SessionTTL: 24 * time.Hour,
	})
	return func() {
		t.Log("Teardown after test")
		repoStub.Cleanup()
	}
}

func register(t *testing.T, username, email string) User {
	t.Helper()
	u, err := service.Register(ctx, RegisterRequest{Username: username, Email: email, Password: "pw", PasswordConfirm: "pw"})
	require.NoError(t, err)
	return u
}

func confirmationToken(t *testing.T, msg mail.Message) string {
	t.Helper()
	i := strings.Index(msg.Body, "/confirm/")
	require.True(t, i >= 0, "no confirmation link in %q", msg.Body)
	return strings.Fields(msg.Body[i+len("/confirm/"):])[0]
}

func TestUserServiceImpl_Register(t *testing.T) {
	t.Run("should make the first user an admin and mail a link", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		first := register(t, "ann", "ann@example.com")
		second := register(t, "bob", "bob@example.com")

		// then
		assert.Equal(t, RoleAdmin, first.Role)
		assert.Equal(t, RoleViewer, second.Role)
		assert.False(t, first.Confirmed)
		require.Len(t, mailer.sent, 2)
		assert.Equal(t, "ann@example.com", mailer.sent[0].To)
		assert.Contains(t, mailer.sent[0].Body, "http://tracker.local/confirm/")
		assert.Contains(t, mailer.sent[0].Body, "role: admin")
	})

	t.Run("should make the configured admin email an admin", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		register(t, "ann", "ann@example.com")

		boss := register(t, "boss", "Boss@Example.com")

		assert.Equal(t, RoleAdmin, boss.Role)
		assert.True(t, service.IsSuperAdmin(boss))
	})

	t.Run("should hash the password", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		u := register(t, "ann", "ann@example.com")

		assert.NotEqual(t, "pw", u.PasswordHash)
		assert.True(t, strings.HasPrefix(u.PasswordHash, "$2"))
	})

	t.Run("should validate the request", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, missing := service.Register(ctx, RegisterRequest{Username: " ", Email: "a@b.io", Password: "pw", PasswordConfirm: "pw"})
		_, mismatch := service.Register(ctx, RegisterRequest{Username: "ann", Email: "a@b.io", Password: "pw", PasswordConfirm: "wp"})

		assert.ErrorIs(t, missing, ErrMissingFields)
		assert.ErrorIs(t, mismatch, ErrPasswordMismatch)
	})

	t.Run("should reject taken usernames", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		register(t, "ann", "ann@example.com")

		_, err := service.Register(ctx, RegisterRequest{Username: "ann", Email: "other@example.com", Password: "pw", PasswordConfirm: "pw"})

		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("should keep the account when the email fails", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		mailer.fail = true

		created, err := service.Register(ctx, RegisterRequest{Username: "ann", Email: "ann@example.com", Password: "pw", PasswordConfirm: "pw"})

		assert.ErrorIs(t, err, ErrConfirmationNotSent)
		assert.Equal(t, "ann", created.Username)
		stored, err := repoStub.GetUserByUsername(ctx, "ann")
		require.NoError(t, err)
		assert.Equal(t, created.Id, stored.Id)
	})
}

func TestUserServiceImpl_ConfirmAndLogin(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	register(t, "ann", "ann@example.com")
	_, err := service.Login(ctx, "ann", "pw")
	assert.ErrorIs(t, err, ErrNotConfirmed)

	// when
	token := confirmationToken(t, mailer.sent[0])
	already, err := service.Confirm(ctx, token)
	require.NoError(t, err)
	again, err := service.Confirm(ctx, token)
	require.NoError(t, err)

	// then
	assert.False(t, already)
	assert.True(t, again)
	session, err := service.Login(ctx, "ann", "pw")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(24*time.Hour), session.ExpiresAt)
	u, err := service.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Username)
}

func TestUserServiceImpl_Confirm_Expired(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	register(t, "ann", "ann@example.com")
	token := confirmationToken(t, mailer.sent[0])
	clock.SetNow(clock.Now().Add(2 * time.Hour))

	_, err := service.Confirm(ctx, token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserServiceImpl_Login(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	register(t, "ann", "ann@example.com")
	require.NoError(t, service.ConfirmUsername(ctx, "ann"))

	_, wrongPassword := service.Login(ctx, "ann", "nope")
	_, unknown := service.Login(ctx, "zed", "pw")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
}

func TestUserServiceImpl_Sessions(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	register(t, "ann", "ann@example.com")
	require.NoError(t, service.ConfirmUsername(ctx, "ann"))

	t.Run("should expire", func(t *testing.T) {
		session, err := service.Login(ctx, "ann", "pw")
		require.NoError(t, err)

		clock.SetNow(session.ExpiresAt)
		_, err = service.Authenticate(ctx, session.Token)

		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("should end on logout", func(t *testing.T) {
		session, err := service.Login(ctx, "ann", "pw")
		require.NoError(t, err)

		require.NoError(t, service.Logout(ctx, session.Token))
		_, err = service.Authenticate(ctx, session.Token)

		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestUserServiceImpl_ResendConfirmation(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	register(t, "ann", "ann@example.com")
	register(t, "bob", "bob@example.com")
	require.NoError(t, service.ConfirmUsername(ctx, "bob"))
	mailer.sent = nil

	// when
	require.NoError(t, service.ResendConfirmation(ctx, "ann@example.com"))
	require.NoError(t, service.ResendConfirmation(ctx, "bob@example.com"))
	require.NoError(t, service.ResendConfirmation(ctx, "nobody@example.com"))

	// then
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ann@example.com", mailer.sent[0].To)
	assert.True(t, strings.HasPrefix(mailer.sent[0].Subject, "Resend"))

	mailer.fail = true
	assert.ErrorIs(t, service.ResendConfirmation(ctx, "ann@example.com"), ErrConfirmationNotSent)
}

func TestUserServiceImpl_ChangeRole(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	admin := register(t, "ann", "ann@example.com")
	viewer := register(t, "bob", "bob@example.com")

	tests := []struct {
		name   string
		target int
		role   Role
		err    error
	}{
		{"promotes another user", viewer.Id, RoleAdmin, nil},
		{"refuses self demotion", admin.Id, RoleViewer, ErrSelfDemotion},
		{"keeps own admin role", admin.Id, RoleAdmin, nil},
		{"rejects unknown roles", viewer.Id, Role("owner"), ErrInvalidRole},
		{"reports unknown users", 99, RoleViewer, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ChangeRole(ctx, admin, tt.target, tt.role)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}

	stored, _ := repoStub.GetUser(ctx, viewer.Id)
	assert.Equal(t, RoleAdmin, stored.Role)
}

func TestUserServiceImpl_GetAllUsers(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	register(t, "zoe", "zoe@example.com")
	register(t, "ann", "ann@example.com")

	users, err := service.GetAllUsers(ctx)

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ann", users[0].Username)
}
