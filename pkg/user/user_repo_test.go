//go:build integration

package user

import (
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projtrack/tracker/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	var cleanup func()
	db, cleanup = test_utils.TestWithDB()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupTestRepository(t *testing.T) *UserRepoImpl {
	test_utils.Truncate(t, db, "sessions", "users")
	return NewUserRepo(db)
}

func TestUserRepoImpl_CreateUser(t *testing.T) {
	// given
	repo := setupTestRepository(t)
	created, err := repo.CreateUser(ctx, User{Username: "ann", Email: "Ann@example.com", PasswordHash: "x", Role: RoleAdmin})
	require.NoError(t, err)

	// when
	_, duplicate := repo.CreateUser(ctx, User{Username: "ann", Email: "other@example.com", PasswordHash: "x", Role: RoleViewer})
	byEmail, err := repo.GetUserByEmail(ctx, "ann@EXAMPLE.com")

	// then
	assert.ErrorIs(t, duplicate, ErrUsernameTaken)
	require.NoError(t, err)
	assert.Equal(t, created.Id, byEmail.Id)
	assert.Equal(t, RoleAdmin, byEmail.Role)
	assert.False(t, byEmail.Confirmed)
	assert.Nil(t, byEmail.ConfirmedAt)
	n, _ := repo.CountUsers(ctx)
	assert.Equal(t, 1, n)
}

func TestUserRepoImpl_ConfirmAndRole(t *testing.T) {
	repo := setupTestRepository(t)
	created, _ := repo.CreateUser(ctx, User{Username: "ann", Email: "ann@example.com", PasswordHash: "x", Role: RoleViewer})
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SetConfirmed(ctx, created.Id, at))
	require.NoError(t, repo.SetRole(ctx, created.Id, RoleAdmin))

	stored, err := repo.GetUser(ctx, created.Id)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
	require.NotNil(t, stored.ConfirmedAt)
	assert.True(t, at.Equal(*stored.ConfirmedAt))
	assert.Equal(t, RoleAdmin, stored.Role)
	assert.ErrorIs(t, repo.SetRole(ctx, 999, RoleAdmin), ErrUserNotFound)
}

func TestUserRepoImpl_Sessions(t *testing.T) {
	// given
	repo := setupTestRepository(t)
	created, _ := repo.CreateUser(ctx, User{Username: "ann", Email: "ann@example.com", PasswordHash: "x", Role: RoleViewer})
	now := time.Now().UTC()
	require.NoError(t, repo.CreateSession(ctx, Session{Token: "live", UserId: created.Id, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.CreateSession(ctx, Session{Token: "old", UserId: created.Id, ExpiresAt: now.Add(-time.Hour)}))

	// when
	owner, err := repo.GetSessionUser(ctx, "live", now)
	_, expired := repo.GetSessionUser(ctx, "old", now)
	pruned, pruneErr := repo.DeleteExpiredSessions(ctx, now)

	// then
	require.NoError(t, err)
	assert.Equal(t, "ann", owner.Username)
	assert.ErrorIs(t, expired, ErrSessionNotFound)
	require.NoError(t, pruneErr)
	assert.Equal(t, 1, pruned)
	require.NoError(t, repo.DeleteSession(ctx, "live"))
	_, err = repo.GetSessionUser(ctx, "live", now)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUserRepoImpl_GetAllUsers(t *testing.T) {
	repo := setupTestRepository(t)
	_, _ = repo.CreateUser(ctx, User{Username: "zoe", Email: "zoe@example.com", PasswordHash: "x", Role: RoleViewer})
	_, _ = repo.CreateUser(ctx, User{Username: "ann", Email: "ann@example.com", PasswordHash: "x", Role: RoleViewer})

	users, err := repo.GetAllUsers(ctx)

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ann", users[0].Username)
}
