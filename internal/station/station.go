package station

import (
	"assembly-line/internal/types"
	"slices"
	"time"
)

// Workstation 表示装配线上的一个工站
// 工站拥有固定的能力集合，同一时刻最多承载一个订单
type Workstation struct {
	ID           types.StationID
	capabilities map[types.Category]bool
	order        *types.Order
	tasks        []*types.Task // 当前订单中本工站能完成的任务
}

// NewStation 创建一个具有指定能力集合的工站
func NewStation(id types.StationID, categories ...types.Category) *Workstation {
	caps := make(map[types.Category]bool, len(categories))
	for _, c := range categories {
		caps[c] = true
	}
	return &Workstation{ID: id, capabilities: caps}
}

func (s *Workstation) GetID() types.StationID {
	return s.ID
}

// Can 判断工站是否能完成某个类别的任务
func (s *Workstation) Can(c types.Category) bool {
	return s.capabilities[c]
}

// Capabilities 返回排序后的能力列表
func (s *Workstation) Capabilities() []types.Category {
	out := make([]types.Category, 0, len(s.capabilities))
	for c := range s.capabilities {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Order 返回工站当前承载的订单，空闲时为 nil
func (s *Workstation) Order() *types.Order {
	return s.order
}

// assign 替换工站上的订单并按能力集合重新筛选任务
func (s *Workstation) assign(o *types.Order) {
	s.order = o
	s.tasks = nil
	if o == nil {
		return
	}
	for _, t := range o.Tasks {
		if s.capabilities[t.Category] {
			s.tasks = append(s.tasks, t)
		}
	}
}

// IsDone 工站空闲，或本工站负责的任务全部完成
func (s *Workstation) IsDone() bool {
	for _, t := range s.tasks {
		if !t.Done {
			return false
		}
	}
	return true
}

// phase 返回当前订单的标准工序时长，空闲工站为 0
func (s *Workstation) phase() time.Duration {
	if s.order == nil {
		return 0
	}
	return s.order.PhaseDuration()
}

func (s *Workstation) perform(taskID string) bool {
	for _, t := range s.tasks {
		if t.ID == taskID && !t.Done {
			t.Done = true
			return true
		}
	}
	return false
}

// PendingTasks 返回本工站尚未完成的任务副本
func (s *Workstation) PendingTasks() []types.Task {
	out := []types.Task{}
	for _, t := range s.tasks {
		if !t.Done {
			out = append(out, *t)
		}
	}
	return out
}

// AllTasks 返回本工站负责的全部任务副本
func (s *Workstation) AllTasks() []types.Task {
	out := make([]types.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}
