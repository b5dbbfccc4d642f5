package station

import (
	"assembly-line/internal/types"
	"time"
)

// Chain 是按顺序排列的工站序列，下标 0 为入口（头），最后一个为出口（尾）
// 工站 i 的下一站是 i+1，链在开始装配后不再变化
type Chain struct {
	stations []*Workstation
	index    map[types.StationID]int
	sealed   bool
}

// NewChain 按给定顺序创建工站链
func NewChain(stations ...*Workstation) *Chain {
	c := &Chain{index: make(map[types.StationID]int)}
	for _, s := range stations {
		c.Attach(s)
	}
	return c
}

// Attach 将工站追加到链尾
// 链一旦承载过订单就被封闭，之后的追加和重复 ID 都不生效
func (c *Chain) Attach(s *Workstation) bool {
	if c.sealed || s == nil {
		return false
	}
	if _, dup := c.index[s.ID]; dup {
		return false
	}
	c.index[s.ID] = len(c.stations)
	c.stations = append(c.stations, s)
	return true
}

func (c *Chain) Len() int { return len(c.stations) }

func (c *Chain) Head() *Workstation { return c.stations[0] }

func (c *Chain) Tail() *Workstation { return c.stations[len(c.stations)-1] }

// Stations 返回工站列表（头到尾）
func (c *Chain) Stations() []*Workstation {
	return c.stations
}

// Station 按 ID 查找工站
func (c *Chain) Station(id types.StationID) (*Workstation, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.stations[i], true
}

// Orders 返回链上所有在制订单（头到尾），返回的是引擎内部的实时对象
func (c *Chain) Orders() []*types.Order {
	var out []*types.Order
	for _, s := range c.stations {
		if s.order != nil {
			out = append(out, s.order)
		}
	}
	return out
}

// Idle 判断所有工站是否都为空
func (c *Chain) Idle() bool {
	for _, s := range c.stations {
		if s.order != nil {
			return false
		}
	}
	return true
}

// CanAdvance 当且仅当每个工站都空闲或已完成时链才能前进
func (c *Chain) CanAdvance() bool {
	for _, s := range c.stations {
		if !s.IsDone() {
			return false
		}
	}
	return true
}

// Assign 替换指定位置工站的订单，order 为 nil 时清空
func (c *Chain) Assign(i int, o *types.Order) bool {
	if i < 0 || i >= len(c.stations) {
		return false
	}
	if o != nil {
		c.sealed = true
	}
	c.stations[i].assign(o)
	return true
}

// Advance 将每个订单推进到下一工站，newHead 进入入口工站
// 返回从出口掉落的订单（可能为 nil），调用方负责收尾
// 调用前必须确认 CanAdvance 为 true
func (c *Chain) Advance(newHead *types.Order) *types.Order {
	if !c.CanAdvance() {
		panic("station: advance called on a chain that cannot advance")
	}
	last := len(c.stations) - 1
	out := c.stations[last].order
	for i := last; i > 0; i-- {
		c.stations[i].assign(c.stations[i-1].order)
	}
	c.Assign(0, newHead)
	return out
}

// PerformTask 从头到尾查找持有该任务的工站并标记完成，返回该工站
// 没有工站持有该任务时返回 nil, false
func (c *Chain) PerformTask(taskID string) (*Workstation, bool) {
	for _, s := range c.stations {
		if s.perform(taskID) {
			return s, true
		}
	}
	return nil, false
}

// PendingTasks 返回指定工站未完成的任务，未知工站返回空列表
func (c *Chain) PendingTasks(id types.StationID) []types.Task {
	s, ok := c.Station(id)
	if !ok {
		return []types.Task{}
	}
	return s.PendingTasks()
}

// AllTasks 返回指定工站负责的全部任务，未知工站返回空列表
func (c *Chain) AllTasks(id types.StationID) []types.Task {
	s, ok := c.Station(id)
	if !ok {
		return []types.Task{}
	}
	return s.AllTasks()
}

// MaxPhase 返回链上在制订单中最长的标准工序时长
func (c *Chain) MaxPhase() time.Duration {
	var m time.Duration
	for _, s := range c.stations {
		m = max(m, s.phase())
	}
	return m
}

// AdjustDelay 按实际工序时长与理论最长工序的差值累加每个在制订单的延误
// 差值可能为负，表示比计划提前
func (c *Chain) AdjustDelay(actual time.Duration) time.Duration {
	delay := actual - c.MaxPhase()
	for _, o := range c.Orders() {
		o.Delay += delay
	}
	return delay
}

// Sequence 返回按下线顺序（尾到头）排列的工序时长，空工站记为 0
func (c *Chain) Sequence() []time.Duration {
	seq := make([]time.Duration, 0, len(c.stations))
	for i := len(c.stations) - 1; i >= 0; i-- {
		seq = append(seq, c.stations[i].phase())
	}
	return seq
}

// Reschedule 从尾到头重新计算链上每个订单的预计完成时间
// 下线位置 e 的工序时长取序列 [e, e+L) 窗口内的最大值：后面更慢的订单会拖住前面的订单
// lookahead 是队列中即将进入的订单的工序时长，返回入口位置的预计时间
func (c *Chain) Reschedule(lookahead []time.Duration, from time.Time) time.Time {
	n := len(c.stations)
	seq := append(c.Sequence(), lookahead...)
	at := from
	for e := 0; e < n; e++ {
		at = at.Add(WindowMax(seq, e, n))
		if o := c.stations[n-1-e].order; o != nil {
			o.EstimatedEnd = at
		}
	}
	return at
}

// WindowMax 返回 seq[start:start+size] 中的最大值，越界部分忽略
func WindowMax(seq []time.Duration, start, size int) time.Duration {
	var m time.Duration
	for i := start; i < start+size && i < len(seq); i++ {
		if i >= 0 {
			m = max(m, seq[i])
		}
	}
	return m
}
