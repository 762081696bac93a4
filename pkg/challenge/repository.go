package challenge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projtrack/tracker/internal/database"
	"github.com/projtrack/tracker/internal/ingest"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	ingest.Gateway[Challenge, Key]
	// List returns every challenge, newest first.
	List(ctx context.Context) ([]Challenge, error)
	Get(ctx context.Context, id int) (Challenge, error)
	Create(ctx context.Context, c Challenge) (Challenge, error)
	Update(ctx context.Context, c Challenge) (Challenge, error)
	Delete(ctx context.Context, id int) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const columns = "id, challenge, action, COALESCE(responsible, ''), COALESCE(timeline, ''), status"

func (r *RepositoryImpl) InTx(ctx context.Context, fn func(store ingest.Store[Challenge, Key]) error) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(store{q: tx})
	})
}

func (r *RepositoryImpl) List(ctx context.Context) ([]Challenge, error) {
	rows, err := r.db.Query(ctx, "SELECT "+columns+" FROM challenge ORDER BY id DESC")
	if err != nil {
		log.Errorf("failed to list challenges: %v", err)
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	challenges := make([]Challenge, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			log.Errorf("failed to scan challenge: %v", err)
			return nil, err
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over challenges: %v", err)
		return nil, err
	}
	return challenges, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (Challenge, error) {
	c, err := scan(r.db.QueryRow(ctx, "SELECT "+columns+" FROM challenge WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, ErrChallengeNotFound
	}
	if err != nil {
		log.Errorf("failed to get challenge %d: %v", id, err)
		return Challenge{}, err
	}
	return c, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, c Challenge) (Challenge, error) {
	return store{q: r.db}.Insert(ctx, c)
}

func (r *RepositoryImpl) Update(ctx context.Context, c Challenge) (Challenge, error) {
	return store{q: r.db}.Update(ctx, c)
}

func (r *RepositoryImpl) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, "DELETE FROM challenge WHERE id = $1", id)
	if err != nil {
		log.Errorf("failed to delete challenge %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

// Key columns with line breaks folded into spaces, as Key does.
const (
	flatChallenge = `regexp_replace(challenge, E'\r\n|\r|\n', ' ', 'g')`
	flatAction    = `regexp_replace(action, E'\r\n|\r|\n', ' ', 'g')`
)

type store struct {
	q database.Querier
}

func (s store) FindByKey(ctx context.Context, key Key) (Challenge, bool, error) {
	query := "SELECT " + columns + ` FROM challenge
		WHERE md5(` + flatChallenge + `) = md5($1) AND md5(` + flatAction + `) = md5($2)
		  AND ` + flatChallenge + ` = $1 AND ` + flatAction + ` = $2
		ORDER BY id LIMIT 1`
	c, err := scan(s.q.QueryRow(ctx, query, key.Challenge, key.Action))
	if errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, false, nil
	}
	if err != nil {
		log.Errorf("failed to find challenge by key: %v", err)
		return Challenge{}, false, err
	}
	return c, true, nil
}

func (s store) Insert(ctx context.Context, c Challenge) (Challenge, error) {
	query := `INSERT INTO challenge (challenge, action, responsible, timeline, status)
			  VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := s.q.QueryRow(ctx, query, c.Challenge, c.Action, nullable(c.Responsible), nullable(c.Timeline), string(c.Status)).
		Scan(&c.Id)
	if err != nil {
		log.Errorf("failed to insert challenge: %v", err)
		return Challenge{}, fmt.Errorf("failed to insert challenge: %w", err)
	}
	return c, nil
}

func (s store) Update(ctx context.Context, c Challenge) (Challenge, error) {
	query := `UPDATE challenge SET challenge = $1, action = $2, responsible = $3, timeline = $4, status = $5
			  WHERE id = $6`
	result, err := s.q.Exec(ctx, query, c.Challenge, c.Action, nullable(c.Responsible), nullable(c.Timeline),
		string(c.Status), c.Id)
	if err != nil {
		log.Errorf("failed to update challenge %d: %v", c.Id, err)
		return Challenge{}, fmt.Errorf("failed to update challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return Challenge{}, ErrChallengeNotFound
	}
	return c, nil
}

func scan(row pgx.Row) (Challenge, error) {
	var c Challenge
	var status string
	err := row.Scan(&c.Id, &c.Challenge, &c.Action, &c.Responsible, &c.Timeline, &status)
	c.Status = Status(status)
	return c, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
