package persistence

import (
	"assembly-line/internal/types"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)

func finished(id string, delay time.Duration) types.Order {
	end := day1.Add(9 * time.Hour)
	return types.Order{ID: id, Model: "A", Delay: delay, EndTime: &end}
}

func TestJournal_SummaryReplaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "production.jsonl")
	j, err := NewJournal(path)
	require.NoError(t, err)

	require.NoError(t, j.AppendOrder(finished("o1", 10*time.Minute)))
	require.NoError(t, j.AppendOrder(finished("o2", -4*time.Minute)))
	require.NoError(t, j.AppendDay(day1, 30*time.Minute))
	require.NoError(t, j.AppendOrder(finished("o3", 0)))
	require.NoError(t, j.Close())

	// 重新打开后仍能读到之前的记录，损坏的行被忽略
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{broken\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	j, err = NewJournal(path)
	require.NoError(t, err)
	defer j.Close()

	s, err := j.Summary()
	require.NoError(t, err)
	assert.Equal(t, 3, s.Orders)
	assert.Equal(t, 2*time.Minute, s.AverageDelay)
	assert.Equal(t, 30*time.Minute, s.TotalOvertime)
	require.Len(t, s.Days, 1)
	assert.True(t, day1.Equal(s.Days[0].Day))
	assert.Equal(t, 2, s.Days[0].Orders)
	assert.Equal(t, 3*time.Minute, s.Days[0].AverageDelay)
	assert.Equal(t, 1, s.Current.Orders)

	// Summary 之后还能继续追加
	require.NoError(t, j.AppendDay(day1.AddDate(0, 0, 1), 0))
	s, err = j.Summary()
	require.NoError(t, err)
	assert.Len(t, s.Days, 2)
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "production.jsonl")
	j, err := NewJournal(path)
	require.NoError(t, err)
	defer j.Close()

	r := NewRecorder(j, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.FinishedOrder(finished("o1", 6*time.Minute))
	r.DayEnded(day1, 0)
	r.FinishedOrder(finished("o2", 0))

	s := r.Summary()
	assert.Equal(t, 2, s.Orders)
	assert.Equal(t, 3*time.Minute, s.AverageDelay)
	require.Len(t, s.Days, 1)
	assert.Equal(t, 1, s.Current.Orders)

	replayed, err := j.Summary()
	require.NoError(t, err)
	assert.Equal(t, s.Orders, replayed.Orders)
	assert.Equal(t, s.AverageDelay, replayed.AverageDelay)
	assert.Len(t, replayed.Days, 1)
}

func TestRecorder_RecoverFromJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "production.jsonl")
	j, err := NewJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.AppendOrder(finished("o1", 10*time.Minute)))
	require.NoError(t, j.AppendDay(day1, 20*time.Minute))
	require.NoError(t, j.Close())

	j, err = NewJournal(path)
	require.NoError(t, err)
	defer j.Close()

	r := NewRecorder(j, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n, err := r.Recover()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 新的下线订单在历史之上继续累计
	r.FinishedOrder(finished("o2", 0))
	s := r.Summary()
	assert.Equal(t, 2, s.Orders)
	assert.Equal(t, 5*time.Minute, s.AverageDelay)
	assert.Equal(t, 20*time.Minute, s.TotalOvertime)
	require.Len(t, s.Days, 1)
	assert.Equal(t, 1, s.Current.Orders)

	n, err = NewRecorder(nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Recover()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecorder_WithoutJournal(t *testing.T) {
	r := NewRecorder(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.DayEnded(day1, 15*time.Minute)
	s := r.Summary()
	assert.Equal(t, 15*time.Minute, s.TotalOvertime)
	assert.Equal(t, 0, s.Days[0].Orders)
}
