package web

import (
	"assembly-line/internal/types"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStateTracker_KeepsLatestLineAndRecentActivity(t *testing.T) {
	st := NewStateTracker(nil)
	assert.Nil(t, st.GetStateSnapshot().Line)

	line := &types.LineSnapshot{State: "RUNNING"}
	for i := 0; i < maxRecent+5; i++ {
		st.Record(line, Activity{Type: "OrderQueued"})
	}
	st.Record(nil, Activity{Type: "AdvanceRejected"})

	s := st.GetStateSnapshot()
	require.NotNil(t, s.Line)
	assert.Equal(t, "RUNNING", s.Line.State)
	assert.Len(t, s.Recent, maxRecent)
	assert.Equal(t, "AdvanceRejected", s.Recent[maxRecent-1].Type)

	// 返回的是副本
	s.Recent[0].Type = "changed"
	assert.NotEqual(t, "changed", st.GetStateSnapshot().Recent[0].Type)
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(discard())
	go hub.Run(ctx)
	st := NewStateTracker(hub)

	srv := httptest.NewServer(hub.ServeWs(func() interface{} { return st.GetStateSnapshot() }))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var initial DashboardState
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Empty(t, initial.Recent)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	st.Record(&types.LineSnapshot{State: "IDLE"}, Activity{Type: "DayEnded"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pushed DashboardState
	require.NoError(t, conn.ReadJSON(&pushed))
	require.NotNil(t, pushed.Line)
	assert.Equal(t, "IDLE", pushed.Line.State)
	require.Len(t, pushed.Recent, 1)
	assert.Equal(t, "DayEnded", pushed.Recent[0].Type)
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub(discard())
	// 没有运行主循环，缓冲写满后 Broadcast 也不能阻塞
	for i := 0; i < broadcastBuffer+10; i++ {
		hub.Broadcast(map[string]int{"i": i})
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}
