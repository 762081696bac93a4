package ingest

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Store is the persistence view the reconciler needs, bound to one open
// transaction.
type Store[T any, K comparable] interface {
	FindByKey(ctx context.Context, key K) (T, bool, error)
	Insert(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
}

// Gateway runs fn against a Store inside a single transaction, committing
// when fn returns nil and rolling everything back otherwise.
type Gateway[T any, K comparable] interface {
	InTx(ctx context.Context, fn func(store Store[T, K]) error) error
}

// Policy tells the reconciler how to key and merge records of one type.
type Policy[T any, K comparable] struct {
	// Key returns the natural key of a record. Records without one are
	// always inserted.
	Key func(item T) (K, bool)
	// Merge copies every mutable field of incoming onto existing, keeping
	// the identity of existing.
	Merge func(existing, incoming T) T
}

type Result struct {
	Created int
	Updated int
}

// Reconcile upserts records in one transaction. A key seen twice in the
// same batch updates the entity staged for it earlier, so the later row
// wins and the entity is counted once.
func Reconcile[T any, K comparable](ctx context.Context, gw Gateway[T, K], policy Policy[T, K], records []T) (Result, error) {
	var result Result
	err := gw.InTx(ctx, func(store Store[T, K]) error {
		result = Result{}
		staged := make(map[K]T, len(records))

		for i, record := range records {
			key, hasKey := policy.Key(record)
			if !hasKey {
				if _, err := store.Insert(ctx, record); err != nil {
					return fmt.Errorf("failed to insert record %d: %w", i+1, err)
				}
				result.Created++
				continue
			}

			if previous, ok := staged[key]; ok {
				updated, err := store.Update(ctx, policy.Merge(previous, record))
				if err != nil {
					return fmt.Errorf("failed to update record %d: %w", i+1, err)
				}
				staged[key] = updated
				continue
			}

			existing, found, err := store.FindByKey(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to look up record %d: %w", i+1, err)
			}
			if found {
				updated, err := store.Update(ctx, policy.Merge(existing, record))
				if err != nil {
					return fmt.Errorf("failed to update record %d: %w", i+1, err)
				}
				staged[key] = updated
				result.Updated++
				continue
			}

			inserted, err := store.Insert(ctx, record)
			if err != nil {
				return fmt.Errorf("failed to insert record %d: %w", i+1, err)
			}
			staged[key] = inserted
			result.Created++
		}
		return nil
	})
	if err != nil {
		log.Errorf("import batch rolled back: %v", err)
		return Result{}, err
	}
	return result, nil
}

// Pipeline wires column resolution, row normalization and reconciliation
// for one record type.
type Pipeline[T any, K comparable] struct {
	Fields []Field
	// Map builds a record from a row. Returning false skips the row.
	Map    func(v Values) (T, bool)
	Policy Policy[T, K]
}

// Records resolves the columns of table once and normalizes every row. The
// returned lines hold the source line of each record.
func (p Pipeline[T, K]) Records(table Table, report *Report) ([]T, []int) {
	cols := ResolveAll(table.Headers, p.Fields)
	log.Debugf("Resolved columns: %v", cols)

	records := make([]T, 0, len(table.Rows))
	lines := make([]int, 0, len(table.Rows))
	for _, row := range table.Rows {
		record, ok := p.Map(newValues(row, cols, report))
		if !ok {
			report.Skipped++
			report.add(Anomaly{Line: row.Line, Kind: SkippedRow})
			continue
		}
		records = append(records, record)
		lines = append(lines, row.Line)
	}
	return records, lines
}

// Run imports table through gw. When no row yields a record nothing is
// written and the returned report is empty.
func (p Pipeline[T, K]) Run(ctx context.Context, gw Gateway[T, K], table Table) (Report, error) {
	var report Report
	records, lines := p.Records(table, &report)
	if len(records) == 0 {
		return report, nil
	}

	seen := make(map[K]bool, len(records))
	for i, r := range records {
		if key, ok := p.Policy.Key(r); ok {
			if seen[key] {
				report.add(Anomaly{Line: lines[i], Kind: DuplicateKey, Value: fmt.Sprint(key)})
			}
			seen[key] = true
		}
	}

	result, err := Reconcile(ctx, gw, p.Policy, records)
	if err != nil {
		return Report{}, err
	}
	report.Created = result.Created
	report.Updated = result.Updated
	for _, a := range report.Anomalies {
		log.Debugf("import anomaly: %s", a)
	}
	return report, nil
}
