package activity

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/projtrack/tracker/internal/ingest"
)

var errStubInsert = errors.New("stub insert failure")

type RepositoryStub struct {
	nextId int
	data   map[int]Activity
	// FailInsertCode makes Insert fail for activities with this code.
	FailInsertCode string
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{data: map[int]Activity{}}
}

func (s *RepositoryStub) InTx(ctx context.Context, fn func(store ingest.Store[Activity, string]) error) error {
	snapshot := maps.Clone(s.data)
	nextId := s.nextId
	if err := fn(s); err != nil {
		s.data = snapshot
		s.nextId = nextId
		return err
	}
	return nil
}

func (s *RepositoryStub) FindByKey(ctx context.Context, code string) (Activity, bool, error) {
	for _, id := range s.ids() {
		if s.data[id].Code == code {
			return s.data[id], true, nil
		}
	}
	return Activity{}, false, nil
}

func (s *RepositoryStub) Insert(ctx context.Context, a Activity) (Activity, error) {
	if s.FailInsertCode != "" && a.Code == s.FailInsertCode {
		return Activity{}, errStubInsert
	}
	s.nextId++
	a.Id = s.nextId
	s.data[a.Id] = a
	return a, nil
}

func (s *RepositoryStub) List(ctx context.Context, filter Filter) ([]Activity, error) {
	result := make([]Activity, 0, len(s.data))
	for _, id := range s.ids() {
		a := s.data[id]
		if filter.Status != "" && a.Status != filter.Status ||
			filter.ImplementingEntity != "" && a.ImplementingEntity != filter.ImplementingEntity ||
			filter.Category != "" && a.Category != filter.Category ||
			filter.ResultsArea != "" && a.ResultsArea != filter.ResultsArea {
			continue
		}
		result = append(result, a)
	}
	slices.SortStableFunc(result, func(a, b Activity) int {
		return strings.Compare(a.Code, b.Code)
	})
	return result, nil
}

func (s *RepositoryStub) Get(ctx context.Context, id int) (Activity, error) {
	a, ok := s.data[id]
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	return a, nil
}

func (s *RepositoryStub) Create(ctx context.Context, a Activity) (Activity, error) {
	return s.Insert(ctx, a)
}

func (s *RepositoryStub) Update(ctx context.Context, a Activity) (Activity, error) {
	if _, ok := s.data[a.Id]; !ok {
		return Activity{}, ErrActivityNotFound
	}
	s.data[a.Id] = a
	return a, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id int) error {
	if _, ok := s.data[id]; !ok {
		return ErrActivityNotFound
	}
	delete(s.data, id)
	return nil
}

func (s *RepositoryStub) DeleteAll(ctx context.Context) (int, error) {
	n := len(s.data)
	s.data = map[int]Activity{}
	return n, nil
}

func (s *RepositoryStub) Cleanup() {
	s.nextId = 0
	s.data = map[int]Activity{}
	s.FailInsertCode = ""
}

func (s *RepositoryStub) ids() []int {
	return slices.Sorted(maps.Keys(s.data))
}
