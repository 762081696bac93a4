package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projtrack/tracker/internal/database"
	log "github.com/sirupsen/logrus"
)

type Repo interface {
	CreateUser(ctx context.Context, user User) (User, error)
	CountUsers(ctx context.Context) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// GetAllUsers returns every user ordered by username.
	GetAllUsers(ctx context.Context) ([]User, error)
	SetConfirmed(ctx context.Context, id int, at time.Time) error
	SetRole(ctx context.Context, id int, role Role) error

	CreateSession(ctx context.Context, session Session) error
	// GetSessionUser returns the owner of a session that has not expired at now.
	GetSessionUser(ctx context.Context, token string, now time.Time) (User, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const userColumns = "u.id, u.username, u.email, u.password_hash, u.role, u.confirmed, u.confirmed_at, u.created_at"

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (User, error) {
	query := `INSERT INTO users (username, email, password_hash, role, confirmed)
			  VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := u.db.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash, string(user.Role), user.Confirmed).
		Scan(&user.Id, &user.CreatedAt)
	if database.IsUniqueViolation(err) {
		return User{}, ErrUsernameTaken
	}
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (u *UserRepoImpl) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := u.db.QueryRow(ctx, "SELECT count(*) FROM users").Scan(&n); err != nil {
		log.Errorf("failed to count users: %v", err)
		return 0, err
	}
	return n, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.getBy(ctx, "u.id = $1", id)
}

func (u *UserRepoImpl) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return u.getBy(ctx, "u.username = $1", username)
}

func (u *UserRepoImpl) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return u.getBy(ctx, "lower(u.email) = lower($1)", email)
}

func (u *UserRepoImpl) getBy(ctx context.Context, condition string, arg any) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users u WHERE "+condition, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	rows, err := u.db.Query(ctx, "SELECT "+userColumns+" FROM users u ORDER BY u.username")
	if err != nil {
		log.Errorf("failed to list users: %v", err)
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			log.Errorf("failed to scan user: %v", err)
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over users: %v", err)
		return nil, err
	}
	return users, nil
}

func (u *UserRepoImpl) SetConfirmed(ctx context.Context, id int, at time.Time) error {
	result, err := u.db.Exec(ctx, "UPDATE users SET confirmed = TRUE, confirmed_at = $1 WHERE id = $2", at, id)
	if err != nil {
		log.Errorf("failed to confirm user %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) SetRole(ctx context.Context, id int, role Role) error {
	result, err := u.db.Exec(ctx, "UPDATE users SET role = $1 WHERE id = $2", string(role), id)
	if err != nil {
		log.Errorf("failed to set role of user %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) CreateSession(ctx context.Context, session Session) error {
	_, err := u.db.Exec(ctx, "INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)",
		session.Token, session.UserId, session.ExpiresAt)
	if err != nil {
		log.Errorf("failed to create session for user %d: %v", session.UserId, err)
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (u *UserRepoImpl) GetSessionUser(ctx context.Context, token string, now time.Time) (User, error) {
	query := "SELECT " + userColumns + ` FROM sessions s JOIN users u ON u.id = s.user_id
			  WHERE s.token = $1 AND s.expires_at > $2`
	user, err := scanUser(u.db.QueryRow(ctx, query, token, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrSessionNotFound
	}
	if err != nil {
		log.Errorf("failed to load session: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) DeleteSession(ctx context.Context, token string) error {
	if _, err := u.db.Exec(ctx, "DELETE FROM sessions WHERE token = $1", token); err != nil {
		log.Errorf("failed to delete session: %v", err)
		return err
	}
	return nil
}

func (u *UserRepoImpl) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	result, err := u.db.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= $1", now)
	if err != nil {
		log.Errorf("failed to delete expired sessions: %v", err)
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var role string
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.Confirmed,
		&user.ConfirmedAt,
		&user.CreatedAt,
	)
	user.Role = Role(role)
	return user, err
}
