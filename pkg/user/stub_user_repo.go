package user

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"time"
)

type StubUserRepository struct {
	nextId   int
	data     map[int]User
	sessions map[string]Session
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{data: map[int]User{}, sessions: map[string]Session{}}
}

func (s *StubUserRepository) CreateUser(ctx context.Context, user User) (User, error) {
	for _, existing := range s.data {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return User{}, ErrUsernameTaken
		}
	}
	s.nextId++
	user.Id = s.nextId
	s.data[user.Id] = user
	return user, nil
}

func (s *StubUserRepository) CountUsers(ctx context.Context) (int, error) {
	return len(s.data), nil
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	for _, user := range s.data {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	for _, user := range s.data {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) GetAllUsers(ctx context.Context) ([]User, error) {
	users := slices.Collect(maps.Values(s.data))
	slices.SortFunc(users, func(a, b User) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *StubUserRepository) SetConfirmed(ctx context.Context, id int, at time.Time) error {
	user, ok := s.data[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Confirmed = true
	user.ConfirmedAt = &at
	s.data[id] = user
	return nil
}

func (s *StubUserRepository) SetRole(ctx context.Context, id int, role Role) error {
	user, ok := s.data[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Role = role
	s.data[id] = user
	return nil
}

func (s *StubUserRepository) CreateSession(ctx context.Context, session Session) error {
	s.sessions[session.Token] = session
	return nil
}

func (s *StubUserRepository) GetSessionUser(ctx context.Context, token string, now time.Time) (User, error) {
	session, ok := s.sessions[token]
	if !ok || !session.ExpiresAt.After(now) {
		return User{}, ErrSessionNotFound
	}
	return s.GetUser(ctx, session.UserId)
}

func (s *StubUserRepository) DeleteSession(ctx context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func (s *StubUserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	n := 0
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *StubUserRepository) Cleanup() {
	s.nextId = 0
	s.data = map[int]User{}
	s.sessions = map[string]Session{}
}
