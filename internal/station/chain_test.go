package station

import (
	"assembly-line/internal/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2014, 1, 1, 6, 0, 0, 0, time.UTC)

func newChain() *Chain {
	return NewChain(
		NewStation("S1", "body", "color"),
		NewStation("S2", "engine"),
		NewStation("S3", "seats"),
	)
}

func order(id string, phase time.Duration, cats ...types.Category) *types.Order {
	o := &types.Order{ID: id, Phase: phase}
	for i, c := range cats {
		o.Tasks = append(o.Tasks, &types.Task{ID: id + "-" + string(rune('a'+i)), Category: c})
	}
	return o
}

func TestWorkstation_WorkingSetFollowsCapabilities(t *testing.T) {
	s := NewStation("S1", "body", "color")
	assert.True(t, s.IsDone(), "empty station is done")

	o := order("o1", time.Hour, "body", "engine", "color")
	s.assign(o)

	pending := s.PendingTasks()
	require.Len(t, pending, 2)
	assert.Equal(t, types.Category("body"), pending[0].Category)
	assert.Equal(t, types.Category("color"), pending[1].Category)
	assert.Equal(t, []types.Category{"body", "color"}, s.Capabilities())
	assert.False(t, s.IsDone())

	// engine 任务不属于本工站
	assert.False(t, s.perform("o1-b"))
	assert.True(t, s.perform("o1-a"))
	assert.False(t, s.perform("o1-a"), "already done")
	assert.True(t, s.perform("o1-c"))
	assert.True(t, s.IsDone())
	assert.Empty(t, s.PendingTasks())
	assert.Len(t, s.AllTasks(), 2)
}

func TestChain_AttachRefusedAfterSealing(t *testing.T) {
	c := newChain()
	assert.False(t, c.Attach(NewStation("S1", "body")), "duplicate id")
	assert.True(t, c.Attach(NewStation("S4", "wheels")))
	assert.Equal(t, 4, c.Len())

	require.True(t, c.Assign(0, order("o1", time.Hour)))
	assert.False(t, c.Attach(NewStation("S5", "airco")))
	assert.Equal(t, 4, c.Len())
	assert.False(t, c.Assign(9, nil))
}

func TestChain_AdvanceShiftsOrders(t *testing.T) {
	c := newChain()
	o1 := order("o1", time.Hour, "body", "engine", "seats")
	c.Assign(0, o1)
	assert.False(t, c.CanAdvance())
	assert.Panics(t, func() { c.Advance(nil) })

	s1, ok := c.PerformTask("o1-a")
	require.True(t, ok)
	assert.Same(t, c.Head(), s1)
	assert.True(t, c.CanAdvance())

	o2 := order("o2", time.Hour, "body")
	out := c.Advance(o2)
	assert.Nil(t, out)
	assert.Same(t, o2, c.Head().Order())
	s2, ok := c.Station("S2")
	require.True(t, ok)
	assert.Same(t, o1, s2.Order())
	assert.Len(t, c.PendingTasks("S2"), 1)

	held, ok := c.PerformTask("o1-b")
	require.True(t, ok)
	assert.Same(t, s2, held)
	c.PerformTask("o2-a")
	c.Advance(nil)
	c.PerformTask("o1-c")
	out = c.Advance(nil)
	assert.Same(t, o1, out)
	assert.Equal(t, []*types.Order{o2}, c.Orders())
	assert.False(t, c.Idle())

	assert.Empty(t, c.PendingTasks("missing"))
	assert.Empty(t, c.AllTasks("missing"))
	held, ok = c.PerformTask("missing")
	assert.False(t, ok)
	assert.Nil(t, held)
}

func TestChain_AdjustDelay(t *testing.T) {
	c := newChain()
	a := order("a", 50*time.Minute)
	b := order("b", 70*time.Minute)
	c.Assign(0, a)
	c.Assign(1, b)

	assert.Equal(t, 70*time.Minute, c.MaxPhase())
	assert.Equal(t, 5*time.Minute, c.AdjustDelay(75*time.Minute))
	assert.Equal(t, -10*time.Minute, c.AdjustDelay(60*time.Minute))
	assert.Equal(t, -5*time.Minute, a.Delay)
	assert.Equal(t, -5*time.Minute, b.Delay)
}

func TestChain_RescheduleUsesSlidingWindow(t *testing.T) {
	c := newChain()
	// 头 50，中间 70，尾 70
	head := order("h", 50*time.Minute)
	mid := order("m", 70*time.Minute)
	tail := order("t", 70*time.Minute)
	c.Assign(0, head)
	c.Assign(1, mid)
	c.Assign(2, tail)

	assert.Equal(t, []time.Duration{70 * time.Minute, 70 * time.Minute, 50 * time.Minute}, c.Sequence())

	end := c.Reschedule([]time.Duration{60 * time.Minute, 50 * time.Minute}, t0)
	assert.Equal(t, t0.Add(70*time.Minute), tail.EstimatedEnd)
	assert.Equal(t, t0.Add(140*time.Minute), mid.EstimatedEnd)
	assert.Equal(t, t0.Add(200*time.Minute), head.EstimatedEnd)
	assert.Equal(t, head.EstimatedEnd, end)
}

func TestChain_RescheduleEmptyStationsCountZero(t *testing.T) {
	c := newChain()
	head := order("h", 50*time.Minute)
	c.Assign(0, head)

	c.Reschedule(nil, t0)
	assert.Equal(t, t0.Add(150*time.Minute), head.EstimatedEnd)
}

func TestWindowMax(t *testing.T) {
	seq := []time.Duration{1, 5, 2, 8, 3}
	assert.Equal(t, time.Duration(5), WindowMax(seq, 0, 3))
	assert.Equal(t, time.Duration(8), WindowMax(seq, 2, 3))
	assert.Equal(t, time.Duration(3), WindowMax(seq, 4, 3))
	assert.Equal(t, time.Duration(0), WindowMax(seq, 7, 3))
	assert.Equal(t, time.Duration(1), WindowMax(seq, -2, 3))
}
