package web

import (
	"assembly-line/internal/types"
	"sync"
	"time"
)

// maxRecent 状态追踪器保留的最近事件条数
const maxRecent = 50

// Activity 是推送给看板的一条动态
type Activity struct {
	Type    string    `json:"type"`
	OrderID string    `json:"order_id,omitempty"`
	Time    time.Time `json:"time"`
	Detail  string    `json:"detail,omitempty"`
}

// DashboardState 代表看板需要的全部数据：产线快照加最近动态
type DashboardState struct {
	Line   *types.LineSnapshot `json:"line,omitempty"`
	Recent []Activity          `json:"recent"`
}

// StateTracker 负责保存最新的产线快照，并通知前端更新
type StateTracker struct {
	mu    sync.RWMutex
	state DashboardState
	hub   *Hub
}

// NewStateTracker 创建一个新的 StateTracker 实例，hub 为 nil 时只记录不推送
func NewStateTracker(hub *Hub) *StateTracker {
	return &StateTracker{
		state: DashboardState{Recent: []Activity{}},
		hub:   hub,
	}
}

// Record 保存最新快照和一条动态，并向所有客户端广播
func (st *StateTracker) Record(line *types.LineSnapshot, a Activity) {
	st.mu.Lock()
	if line != nil {
		st.state.Line = line
	}
	st.state.Recent = append(st.state.Recent, a)
	if len(st.state.Recent) > maxRecent {
		st.state.Recent = st.state.Recent[len(st.state.Recent)-maxRecent:]
	}
	snapshot := st.copyLocked()
	st.mu.Unlock()

	if st.hub != nil {
		st.hub.Broadcast(snapshot)
	}
}

// GetStateSnapshot 返回当前看板状态的副本
// 用于新客户端连接时获取一次全量数据
func (st *StateTracker) GetStateSnapshot() DashboardState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.copyLocked()
}

func (st *StateTracker) copyLocked() DashboardState {
	return DashboardState{
		Line:   st.state.Line,
		Recent: append([]Activity(nil), st.state.Recent...),
	}
}
