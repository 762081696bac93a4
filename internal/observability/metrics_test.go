package observability

import (
	"context"
	"testing"

	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_RecordsImportEvents(t *testing.T) {
	// given
	bus := event_bus.NewEventBus()
	Subscribe(bus)
	createdBefore := testutil.ToFloat64(importRows.WithLabelValues("challenge", "created"))
	failuresBefore := testutil.ToFloat64(importFailures.WithLabelValues("challenge"))

	// when
	require.NoError(t, bus.Publish(event_bus.NewEvent(context.Background(), event_bus.ImportCompletedType,
		event_bus.ImportCompleted{Entity: "challenge", Created: 3, Updated: 1})))
	require.NoError(t, bus.Publish(event_bus.NewEvent(context.Background(), event_bus.ImportFailedType,
		event_bus.ImportFailed{Entity: "challenge", Reason: "boom"})))

	// then
	assert.Equal(t, createdBefore+3, testutil.ToFloat64(importRows.WithLabelValues("challenge", "created")))
	assert.Equal(t, failuresBefore+1, testutil.ToFloat64(importFailures.WithLabelValues("challenge")))
}
