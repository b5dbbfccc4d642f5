package engine

import (
	"assembly-line/internal/shift"
	"assembly-line/internal/station"
	"assembly-line/internal/types"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type recordingStats struct {
	finished  []types.Order
	days      []time.Time
	overtimes []time.Duration
}

func (r *recordingStats) FinishedOrder(o types.Order) { r.finished = append(r.finished, o) }

func (r *recordingStats) DayEnded(day time.Time, overtime time.Duration) {
	r.days = append(r.days, day)
	r.overtimes = append(r.overtimes, overtime)
}

func newTestChain() *station.Chain {
	return station.NewChain(
		station.NewStation("BODY", "body", "color"),
		station.NewStation("DRIVETRAIN", "engine", "gearbox"),
		station.NewStation("ACCESSORIES", "seats", "airco", "wheels"),
	)
}

// modelPhases 对应测试车型 A/B/C 的标准工序时长
var modelPhases = map[string]time.Duration{
	"A": 50 * time.Minute,
	"B": 70 * time.Minute,
	"C": 60 * time.Minute,
}

var modelChoices = map[string][][2]string{
	"A": {{"body", "sedan"}, {"color", "red"}, {"engine", "standard"}, {"gearbox", "manual"}, {"seats", "leather"}, {"wheels", "comfort"}},
	"B": {{"body", "break"}, {"color", "blue"}, {"engine", "performance"}, {"gearbox", "automatic"}, {"seats", "vinyl"}, {"airco", "auto"}, {"wheels", "sports"}},
	"C": {{"body", "sport"}, {"color", "black"}, {"engine", "ultra"}, {"gearbox", "automatic"}, {"seats", "leather"}, {"airco", "manual"}, {"wheels", "winter"}},
}

var orderSeq int

func newOrder(model string) types.Order {
	orderSeq++
	id := fmt.Sprintf("%s-%d", model, orderSeq)
	o := types.Order{ID: id, Model: model, Phase: modelPhases[model]}
	for i, c := range modelChoices[model] {
		o.Tasks = append(o.Tasks, &types.Task{
			ID:       fmt.Sprintf("%s/t%d", id, i),
			Category: types.Category(c[0]),
			Choice:   c[1],
		})
	}
	return o
}

func newTestCoordinator(t *testing.T, start time.Time, opts Options) (*Coordinator, *recordingStats) {
	t.Helper()
	clock, err := shift.NewClock(start, 6, 22)
	require.NoError(t, err)
	stats := &recordingStats{}
	if opts.Statistics == nil {
		opts.Statistics = stats
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCoordinator(newTestChain(), clock, opts), stats
}

// completeAll 完成所有工站上的待办任务
func completeAll(t *testing.T, c *Coordinator) {
	t.Helper()
	for _, s := range c.chain.Stations() {
		for _, task := range c.PendingTasks(s.GetID()) {
			require.True(t, c.PerformTask(task.ID), "perform %s", task.ID)
		}
	}
}

func queueIDs(c *Coordinator) []string {
	var ids []string
	for _, o := range c.Queue() {
		ids = append(ids, o.ID)
	}
	return ids
}
