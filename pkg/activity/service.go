package activity

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/projtrack/tracker/internal/ingest"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const entityName = "activity"

type Service interface {
	List(ctx context.Context, filter Filter) ([]Activity, error)
	Get(ctx context.Context, id int) (Activity, error)
	Create(ctx context.Context, a Activity) (Activity, error)
	Update(ctx context.Context, a Activity) (Activity, error)
	Delete(ctx context.Context, id int) error
	DeleteAll(ctx context.Context) (int, error)
	Dashboard(ctx context.Context, filter Filter) (Dashboard, error)
	// Import reads a spreadsheet and upserts its rows keyed on code, all in
	// one transaction.
	Import(ctx context.Context, r io.Reader, filename string) (ingest.Report, error)
	Export(ctx context.Context, filter Filter, w io.Writer) error
}

type ServiceImpl struct {
	repo Repository
	bus  *event_bus.EventBus
}

func NewService(repo Repository, bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, bus: bus}
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter) ([]Activity, error) {
	return s.repo.List(ctx, filter)
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Activity, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, a Activity) (Activity, error) {
	a.Id = 0
	created, err := s.repo.Create(ctx, a.withDefaults())
	if err != nil {
		return Activity{}, fmt.Errorf("failed to create activity: %w", err)
	}
	log.Debugf("Created activity %d (%s)", created.Id, created.Code)
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, a Activity) (Activity, error) {
	if _, err := s.repo.Get(ctx, a.Id); err != nil {
		return Activity{}, err
	}
	return s.repo.Update(ctx, a.withDefaults())
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *ServiceImpl) DeleteAll(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	log.Infof("Deleted all %d activities", n)
	return n, nil
}

func (s *ServiceImpl) Dashboard(ctx context.Context, filter Filter) (Dashboard, error) {
	activities, err := s.repo.List(ctx, filter)
	if err != nil {
		return Dashboard{}, err
	}
	return buildDashboard(activities), nil
}

func (s *ServiceImpl) Import(ctx context.Context, r io.Reader, filename string) (ingest.Report, error) {
	table, err := ingest.Read(r, filename)
	if err != nil {
		s.publish(ctx, event_bus.ImportFailedType, event_bus.ImportFailed{Entity: entityName, Reason: err.Error()})
		return ingest.Report{}, err
	}

	report, err := pipeline.Run(ctx, s.repo, table)
	if err != nil {
		s.publish(ctx, event_bus.ImportFailedType, event_bus.ImportFailed{Entity: entityName, Reason: err.Error()})
		return ingest.Report{}, err
	}

	log.Infof("Imported activities from %s: %d created, %d updated, %d skipped, %d anomalies",
		filename, report.Created, report.Updated, report.Skipped, len(report.Anomalies))
	s.publish(ctx, event_bus.ImportCompletedType, event_bus.ImportCompleted{
		Entity:    entityName,
		Created:   report.Created,
		Updated:   report.Updated,
		Skipped:   report.Skipped,
		Anomalies: len(report.Anomalies),
	})
	return report, nil
}

func (s *ServiceImpl) Export(ctx context.Context, filter Filter, w io.Writer) error {
	activities, err := s.repo.List(ctx, Filter{Status: filter.Status, ImplementingEntity: filter.ImplementingEntity})
	if err != nil {
		return err
	}
	return WriteCSV(w, activities)
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}

func buildDashboard(activities []Activity) Dashboard {
	d := Dashboard{
		Activities: activities,
		Summary: Summary{
			TotalActivities: len(activities),
			TotalBudget:     decimal.Zero,
			TotalUsed:       decimal.Zero,
		},
	}

	byStatus := map[string]*StatusRow{}
	entities := map[string]bool{}
	categories := map[string]bool{}
	resultsAreas := map[string]bool{}
	execution := 0
	for _, a := range activities {
		d.Summary.TotalBudget = d.Summary.TotalBudget.Add(a.BudgetTotal)
		d.Summary.TotalUsed = d.Summary.TotalUsed.Add(a.BudgetUsed)
		execution += a.ExecutionPercent()

		status := a.Status
		if status == "" {
			status = "Unknown"
		}
		row, ok := byStatus[status]
		if !ok {
			row = &StatusRow{Status: status, Budget: decimal.Zero}
			byStatus[status] = row
		}
		row.Count++
		row.Budget = row.Budget.Add(a.BudgetTotal)

		if a.ImplementingEntity != "" {
			entities[a.ImplementingEntity] = true
		}
		if a.Category != "" {
			categories[a.Category] = true
		}
		if a.ResultsArea != "" {
			resultsAreas[a.ResultsArea] = true
		}
	}
	if len(activities) > 0 {
		d.Summary.AvgProgress = float64(execution) / float64(len(activities))
	}

	d.StatusRows = make([]StatusRow, 0, len(byStatus))
	for _, status := range sortedKeys(byStatus) {
		d.StatusRows = append(d.StatusRows, *byStatus[status])
	}
	d.Entities = sortedKeys(entities)
	d.Categories = sortedKeys(categories)
	d.ResultsAreas = sortedKeys(resultsAreas)
	return d
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
