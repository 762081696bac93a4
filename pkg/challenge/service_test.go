package challenge

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/projtrack/tracker/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var repoStub = NewRepositoryStub()

var service Service

var events []event_bus.Event

func setup(t *testing.T) func() {
	bus := event_bus.NewEventBus()
	events = nil
	record := func(e event_bus.Event) error {
		events = append(events, e)
		return nil
	}
	bus.Subscribe(event_bus.ImportCompletedType, record)
	bus.Subscribe(event_bus.ImportFailedType, record)
	service = NewService(repoStub, bus)
	return func() {
		t.Log("Teardown after test")
		repoStub.Cleanup()
	}
}

func TestServiceImpl_Create(t *testing.T) {
	t.Run("should trim and default the status", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		created, err := service.Create(ctx, Challenge{Challenge: " Late funds ", Action: "Escalate", Status: "whatever"})

		// then
		require.NoError(t, err)
		assert.Equal(t, "Late funds", created.Challenge)
		assert.Equal(t, Pending, created.Status)
	})

	t.Run("should require challenge and action", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Create(ctx, Challenge{Challenge: "Late funds", Action: "   "})

		// then
		assert.ErrorIs(t, err, ErrChallengeRequired)
		all, _ := service.List(ctx)
		assert.Empty(t, all)
	})
}

func TestServiceImpl_Update(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	created, _ := service.Create(ctx, Challenge{Challenge: "Late funds", Action: "Escalate"})

	// when
	updated, err := service.Update(ctx, Challenge{Id: created.Id, Challenge: "Late funds", Action: "Escalate", Status: "completed"})
	_, missing := service.Update(ctx, Challenge{Id: 99, Challenge: "a", Action: "b"})

	// then
	require.NoError(t, err)
	assert.Equal(t, Completed, updated.Status)
	assert.ErrorIs(t, missing, ErrChallengeNotFound)
}

func TestServiceImpl_List_NewestFirst(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	_, _ = service.Create(ctx, Challenge{Challenge: "first", Action: "a"})
	_, _ = service.Create(ctx, Challenge{Challenge: "second", Action: "a"})

	all, err := service.List(ctx)

	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Challenge)
}

func TestServiceImpl_Import(t *testing.T) {
	t.Run("should create then update on the same pair", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		first := "Challenge,Agreed Action,Responsible,Timeline,Status\n" +
			"Late funds,Escalate,PMU,Q1,pending\n" +
			"Staff turnover,Hire,HR,Q2,\n"
		second := "Challenge,Agreed Action,Responsible,Timeline,Status\n" +
			"Late funds,Escalate,Director,Q3,Completed\n" +
			"Staff turnover,Hire,HR,Q2,\n"

		// when
		r1, err := service.Import(ctx, strings.NewReader(first), "challenges.csv")
		require.NoError(t, err)
		r2, err := service.Import(ctx, strings.NewReader(second), "challenges.csv")
		require.NoError(t, err)

		// then
		assert.Equal(t, ingest.Report{Created: 2}, r1)
		assert.Equal(t, 0, r2.Created)
		assert.Equal(t, 2, r2.Updated)
		all, _ := service.List(ctx)
		require.Len(t, all, 2)
		late := all[1]
		assert.Equal(t, "Late funds", late.Challenge)
		assert.Equal(t, "Director", late.Responsible)
		assert.Equal(t, "Q3", late.Timeline)
		assert.Equal(t, Completed, late.Status)
		require.Len(t, events, 2)
		assert.Equal(t, event_bus.ImportCompletedType, events[1].Type)
	})

	t.Run("should coerce unknown status to pending", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		report, err := service.Import(ctx, strings.NewReader("challenge,action,status\nLate funds,Escalate,urgent\n"), "challenges.csv")

		// then
		require.NoError(t, err)
		all, _ := service.List(ctx)
		require.Len(t, all, 1)
		assert.Equal(t, Pending, all[0].Status)
		assert.Equal(t, []ingest.Anomaly{{Line: 2, Field: "status", Kind: ingest.CoercedValue, Value: "urgent"}}, report.Anomalies)
	})

	t.Run("should skip rows missing challenge or action", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		report, err := service.Import(ctx, strings.NewReader("challenge,action\nLate funds,\n,Escalate\n"), "challenges.csv")

		// then
		require.NoError(t, err)
		assert.True(t, report.Empty())
		assert.Equal(t, 2, report.Skipped)
		all, _ := service.List(ctx)
		assert.Empty(t, all)
	})

	t.Run("should roll back when a row fails", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		repoStub.FailInsertAction = "boom"

		// when
		_, err := service.Import(ctx, strings.NewReader("challenge,action\na,ok\nb,boom\n"), "challenges.csv")

		// then
		assert.Error(t, err)
		all, _ := service.List(ctx)
		assert.Empty(t, all)
		require.Len(t, events, 1)
		assert.Equal(t, event_bus.ImportFailedType, events[0].Type)
	})
}

func TestServiceImpl_Export(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	_, _ = service.Create(ctx, Challenge{Challenge: "first", Action: "a", Timeline: "line\nbreak"})
	_, _ = service.Create(ctx, Challenge{Challenge: "second", Action: "b", Status: Completed})

	// when
	var buf bytes.Buffer
	err := service.Export(ctx, &buf)

	// then
	require.NoError(t, err)
	assert.Equal(t, "challenge,action,responsible,timeline,status\n"+
		"first,a,,line break,pending\n"+
		"second,b,,,completed\n", buf.String())
}

func TestServiceImpl_ExportThenImport_MatchesMultilineKeys(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	_, _ = service.Create(ctx, Challenge{Challenge: "Late\nfunds", Action: "Escalate\r\nto PMU", Responsible: "Team A"})
	var buf bytes.Buffer
	require.NoError(t, service.Export(ctx, &buf))
	exported := strings.Replace(buf.String(), "Team A", "Director", 1)

	// when
	report, err := service.Import(ctx, strings.NewReader(exported), "challenges.csv")

	// then
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Updated)
	all, _ := service.List(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "Late\nfunds", all[0].Challenge)
	assert.Equal(t, "Director", all[0].Responsible)
}
