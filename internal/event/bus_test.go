package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(OrderFinished, func(e Event) { got = append(got, "first:"+e.OrderID) })
	bus.Subscribe(OrderFinished, func(e Event) { got = append(got, "second:"+e.OrderID) })
	bus.Subscribe(DayEnded, func(e Event) { got = append(got, "day") })

	bus.Publish(Event{Type: OrderFinished, OrderID: "o-1"})

	assert.Equal(t, []string{"first:o-1", "second:o-1"}, got)
}

func TestBus_NilBusIsNoop(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(Event{Type: LineAdvanced}) })
}
