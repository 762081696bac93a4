package challenge

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/projtrack/tracker/internal/ingest"
	log "github.com/sirupsen/logrus"
)

const entityName = "challenge"

type Service interface {
	List(ctx context.Context) ([]Challenge, error)
	Get(ctx context.Context, id int) (Challenge, error)
	Create(ctx context.Context, c Challenge) (Challenge, error)
	Update(ctx context.Context, c Challenge) (Challenge, error)
	Delete(ctx context.Context, id int) error
	// Import upserts the rows of a spreadsheet keyed on the challenge and
	// action pair, all in one transaction.
	Import(ctx context.Context, r io.Reader, filename string) (ingest.Report, error)
	Export(ctx context.Context, w io.Writer) error
}

type ServiceImpl struct {
	repo Repository
	bus  *event_bus.EventBus
}

func NewService(repo Repository, bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, bus: bus}
}

func (s *ServiceImpl) List(ctx context.Context) ([]Challenge, error) {
	return s.repo.List(ctx)
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Challenge, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, c Challenge) (Challenge, error) {
	c = c.normalized()
	if !c.valid() {
		return Challenge{}, ErrChallengeRequired
	}
	c.Id = 0
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Challenge{}, fmt.Errorf("failed to create challenge: %w", err)
	}
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, c Challenge) (Challenge, error) {
	c = c.normalized()
	if !c.valid() {
		return Challenge{}, ErrChallengeRequired
	}
	return s.repo.Update(ctx, c)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
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

	log.Infof("Imported challenges from %s: %d created, %d updated, %d skipped",
		filename, report.Created, report.Updated, report.Skipped)
	s.publish(ctx, event_bus.ImportCompletedType, event_bus.ImportCompleted{
		Entity:    entityName,
		Created:   report.Created,
		Updated:   report.Updated,
		Skipped:   report.Skipped,
		Anomalies: len(report.Anomalies),
	})
	return report, nil
}

// Export writes every challenge in creation order.
func (s *ServiceImpl) Export(ctx context.Context, w io.Writer) error {
	challenges, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	slices.SortFunc(challenges, func(a, b Challenge) int {
		return cmp.Compare(a.Id, b.Id)
	})
	return WriteCSV(w, challenges)
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}
