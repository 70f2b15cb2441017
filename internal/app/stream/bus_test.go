package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomind-labs/geomind-agent/internal/app/stream"
	"github.com/geomind-labs/geomind-agent/internal/domain"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := stream.NewBus(8)

	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	bus.Publish(domain.ThoughtEvent("run-1", domain.AgentPlanner, "thinking"))

	ev1 := <-ch1
	ev2 := <-ch2

	assert.Equal(t, domain.EventThought, ev1.Type)
	assert.Equal(t, "thinking", ev1.Content)
	assert.Equal(t, ev1.Content, ev2.Content)
	assert.False(t, ev1.Timestamp.IsZero())
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	bus := stream.NewBus(8)

	early, cancelEarly := bus.Subscribe()
	defer cancelEarly()

	bus.Publish(domain.ThoughtEvent("run-1", domain.AgentPlanner, "first"))
	bus.Publish(domain.ThoughtEvent("run-1", domain.AgentPlanner, "second"))

	late, cancelLate := bus.Subscribe()
	defer cancelLate()

	bus.Publish(domain.ThoughtEvent("run-1", domain.AgentResearcher, "third"))

	// Early observer sees all three, in publish order.
	require.Equal(t, "first", (<-early).Content)
	require.Equal(t, "second", (<-early).Content)
	require.Equal(t, "third", (<-early).Content)

	// Late observer sees strictly fewer: only the event after it joined.
	require.Equal(t, "third", (<-late).Content)
	assert.Empty(t, late)
}

func TestSlowSubscriberNeverBlocksPublisher(t *testing.T) {
	bus := stream.NewBus(1)

	slow, cancel := bus.Subscribe()
	defer cancel()

	// Nobody is draining: the first publish fills the buffer, the rest must
	// be dropped without blocking this goroutine.
	for i := 0; i < 10; i++ {
		bus.Publish(domain.ThoughtDeltaEvent("run-1", domain.AgentCoder, "x"))
	}

	require.Len(t, slow, 1)
}

func TestCancelStopsDeliveryForThatObserverOnly(t *testing.T) {
	bus := stream.NewBus(8)

	ch1, cancel1 := bus.Subscribe()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	cancel1()
	cancel1() // idempotent

	bus.Publish(domain.SearchQueryEvent("run-1", domain.AgentResearcher, "sentinel-1 flood mapping"))

	require.Equal(t, 1, bus.SubscriberCount())
	assert.Equal(t, "sentinel-1 flood mapping", (<-ch2).Query)

	// Cancelled channel is closed and drained.
	_, open := <-ch1
	assert.False(t, open)
}
