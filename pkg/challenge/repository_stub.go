package challenge

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/projtrack/tracker/internal/ingest"
)

var errStubInsert = errors.New("stub insert failure")

type RepositoryStub struct {
	nextId int
	data   map[int]Challenge
	// FailInsertAction makes Insert fail for challenges with this action.
	FailInsertAction string
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{data: map[int]Challenge{}}
}

func (s *RepositoryStub) InTx(ctx context.Context, fn func(store ingest.Store[Challenge, Key]) error) error {
	snapshot := maps.Clone(s.data)
	nextId := s.nextId
	if err := fn(s); err != nil {
		s.data = snapshot
		s.nextId = nextId
		return err
	}
	return nil
}

func (s *RepositoryStub) FindByKey(ctx context.Context, key Key) (Challenge, bool, error) {
	for _, id := range slices.Sorted(maps.Keys(s.data)) {
		if s.data[id].Key() == key {
			return s.data[id], true, nil
		}
	}
	return Challenge{}, false, nil
}

func (s *RepositoryStub) Insert(ctx context.Context, c Challenge) (Challenge, error) {
	if s.FailInsertAction != "" && c.Action == s.FailInsertAction {
		return Challenge{}, errStubInsert
	}
	s.nextId++
	c.Id = s.nextId
	s.data[c.Id] = c
	return c, nil
}

func (s *RepositoryStub) List(ctx context.Context) ([]Challenge, error) {
	ids := slices.Sorted(maps.Keys(s.data))
	slices.Reverse(ids)
	result := make([]Challenge, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.data[id])
	}
	return result, nil
}

func (s *RepositoryStub) Get(ctx context.Context, id int) (Challenge, error) {
	c, ok := s.data[id]
	if !ok {
		return Challenge{}, ErrChallengeNotFound
	}
	return c, nil
}

func (s *RepositoryStub) Create(ctx context.Context, c Challenge) (Challenge, error) {
	return s.Insert(ctx, c)
}

func (s *RepositoryStub) Update(ctx context.Context, c Challenge) (Challenge, error) {
	if _, ok := s.data[c.Id]; !ok {
		return Challenge{}, ErrChallengeNotFound
	}
	s.data[c.Id] = c
	return c, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id int) error {
	if _, ok := s.data[id]; !ok {
		return ErrChallengeNotFound
	}
	delete(s.data, id)
	return nil
}

func (s *RepositoryStub) Cleanup() {
	s.nextId = 0
	s.data = map[int]Challenge{}
	s.FailInsertAction = ""
}
