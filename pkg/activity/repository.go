package activity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projtrack/tracker/internal/database"
	"github.com/projtrack/tracker/internal/ingest"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	ingest.Gateway[Activity, string]
	List(ctx context.Context, filter Filter) ([]Activity, error)
	Get(ctx context.Context, id int) (Activity, error)
	Create(ctx context.Context, a Activity) (Activity, error)
	Update(ctx context.Context, a Activity) (Activity, error)
	Delete(ctx context.Context, id int) error
	DeleteAll(ctx context.Context) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const columns = `id, COALESCE(code, ''), COALESCE(initial_activity, ''), COALESCE(proposed_activity, ''),
	COALESCE(implementing_entity, ''), COALESCE(delivery_partner, ''), COALESCE(results_area, ''),
	COALESCE(category, ''), budget_year1, budget_year2, budget_year3, budget_total, budget_used,
	COALESCE(status, ''), progress, COALESCE(notes, '')`

func (r *RepositoryImpl) InTx(ctx context.Context, fn func(store ingest.Store[Activity, string]) error) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(store{q: tx})
	})
}

func (r *RepositoryImpl) List(ctx context.Context, filter Filter) ([]Activity, error) {
	var conditions []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, column+" = $"+strconv.Itoa(len(args)))
	}
	add("status", filter.Status)
	add("implementing_entity", filter.ImplementingEntity)
	add("category", filter.Category)
	add("results_area", filter.ResultsArea)

	query := "SELECT " + columns + " FROM activity"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY code, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to list activities: %v", err)
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			log.Errorf("failed to scan activity: %v", err)
			return nil, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over activities: %v", err)
		return nil, err
	}
	return activities, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (Activity, error) {
	a, err := scan(r.db.QueryRow(ctx, "SELECT "+columns+" FROM activity WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrActivityNotFound
	}
	if err != nil {
		log.Errorf("failed to get activity %d: %v", id, err)
		return Activity{}, err
	}
	return a, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, a Activity) (Activity, error) {
	return store{q: r.db}.Insert(ctx, a)
}

func (r *RepositoryImpl) Update(ctx context.Context, a Activity) (Activity, error) {
	return store{q: r.db}.Update(ctx, a)
}

func (r *RepositoryImpl) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, "DELETE FROM activity WHERE id = $1", id)
	if err != nil {
		log.Errorf("failed to delete activity %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.db.Exec(ctx, "DELETE FROM activity")
	if err != nil {
		log.Errorf("failed to delete activities: %v", err)
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

// store runs the statements shared by plain calls and import transactions.
type store struct {
	q database.Querier
}

func (s store) FindByKey(ctx context.Context, code string) (Activity, bool, error) {
	a, err := scan(s.q.QueryRow(ctx, "SELECT "+columns+" FROM activity WHERE code = $1 ORDER BY id LIMIT 1", code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, false, nil
	}
	if err != nil {
		log.Errorf("failed to find activity by code %q: %v", code, err)
		return Activity{}, false, err
	}
	return a, true, nil
}

func (s store) Insert(ctx context.Context, a Activity) (Activity, error) {
	query := `INSERT INTO activity (code, initial_activity, proposed_activity, implementing_entity, delivery_partner,
				results_area, category, budget_year1, budget_year2, budget_year3, budget_total, budget_used,
				status, progress, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`
	err := s.q.QueryRow(ctx, query,
		nullable(a.Code),
		nullable(a.InitialActivity),
		nullable(a.ProposedActivity),
		nullable(a.ImplementingEntity),
		nullable(a.DeliveryPartner),
		nullable(a.ResultsArea),
		nullable(a.Category),
		a.BudgetYear1,
		a.BudgetYear2,
		a.BudgetYear3,
		a.BudgetTotal,
		a.BudgetUsed,
		nullable(a.Status),
		a.Progress,
		nullable(a.Notes),
	).Scan(&a.Id)
	if err != nil {
		log.Errorf("failed to insert activity: %v", err)
		return Activity{}, fmt.Errorf("failed to insert activity: %w", err)
	}
	return a, nil
}

func (s store) Update(ctx context.Context, a Activity) (Activity, error) {
	query := `UPDATE activity SET code = $1, initial_activity = $2, proposed_activity = $3, implementing_entity = $4,
				delivery_partner = $5, results_area = $6, category = $7, budget_year1 = $8, budget_year2 = $9,
				budget_year3 = $10, budget_total = $11, budget_used = $12, status = $13, progress = $14, notes = $15
			  WHERE id = $16`
	result, err := s.q.Exec(ctx, query,
		nullable(a.Code),
		nullable(a.InitialActivity),
		nullable(a.ProposedActivity),
		nullable(a.ImplementingEntity),
		nullable(a.DeliveryPartner),
		nullable(a.ResultsArea),
		nullable(a.Category),
		a.BudgetYear1,
		a.BudgetYear2,
		a.BudgetYear3,
		a.BudgetTotal,
		a.BudgetUsed,
		nullable(a.Status),
		a.Progress,
		nullable(a.Notes),
		a.Id,
	)
	if err != nil {
		log.Errorf("failed to update activity %d: %v", a.Id, err)
		return Activity{}, fmt.Errorf("failed to update activity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return Activity{}, ErrActivityNotFound
	}
	return a, nil
}

func scan(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(
		&a.Id,
		&a.Code,
		&a.InitialActivity,
		&a.ProposedActivity,
		&a.ImplementingEntity,
		&a.DeliveryPartner,
		&a.ResultsArea,
		&a.Category,
		&a.BudgetYear1,
		&a.BudgetYear2,
		&a.BudgetYear3,
		&a.BudgetTotal,
		&a.BudgetUsed,
		&a.Status,
		&a.Progress,
		&a.Notes,
	)
	return a, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
