package types

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// StationID 定义工站 ID
// 使用字符串类型，方便在日志和配置中直接使用
type StationID string

// Category 定义装配任务的类别 (e.g., body, color, engine)
// 工站通过类别集合声明自己能完成哪些任务
type Category string

// Task 表示订单中的一个装配任务
// 任务只属于一个订单，唯一的修改操作是标记完成
type Task struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Choice   string   `json:"choice"` // 该类别下选择的具体选项 (e.g., sedan, red)
	Done     bool     `json:"done"`
}

// Order 表示生产线上的一个订单
type Order struct {
	ID    string  `json:"id"`
	Model string  `json:"model"`
	Tasks []*Task `json:"tasks"`
	// Phase 标准工序时长，由车型决定，而不是实际耗时
	Phase time.Duration `json:"phase"`
	// Delay 累计延误，可以为负（提前完成）
	Delay    time.Duration `json:"delay"`
	Deadline *time.Time    `json:"deadline,omitempty"`
	// StartTime 进入首个工站的时间
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	EstimatedEnd time.Time  `json:"estimated_end"`
	// Arrival 进入队列的序号，用于恢复到达顺序
	Arrival int64 `json:"arrival"`
}

// PhaseDuration 返回订单在单个工站的标准工序时长
func (o *Order) PhaseDuration() time.Duration {
	return o.Phase
}

// IsDone 判断订单所有任务是否完成
func (o *Order) IsDone() bool {
	for _, t := range o.Tasks {
		if !t.Done {
			return false
		}
	}
	return true
}

// HasDeadline 判断订单是否带有交付期限
func (o *Order) HasDeadline() bool {
	return o.Deadline != nil
}

// ConfigurationKey 返回订单配置的规范化表示
// 按 (类别, 选项) 排序后拼接，相同配置的订单得到相同的 key
func (o *Order) ConfigurationKey() string {
	parts := make([]string, len(o.Tasks))
	for i, t := range o.Tasks {
		parts[i] = fmt.Sprintf("%s=%s", t.Category, t.Choice)
	}
	slices.Sort(parts)
	return strings.Join(parts, ";")
}

// SameConfiguration 判断两个订单的配置是否相同
// 只比较任务的 (类别, 选项) 多重集合，忽略时间戳和完成状态
func (o *Order) SameConfiguration(other *Order) bool {
	if o == nil || other == nil {
		return false
	}
	if len(o.Tasks) != len(other.Tasks) {
		return false
	}
	return o.ConfigurationKey() == other.ConfigurationKey()
}

// Snapshot 返回订单的值拷贝，任务对象相互独立
// 订单跨越引擎边界（统计、界面）时都应使用快照
func (o *Order) Snapshot() Order {
	cp := *o
	cp.Tasks = make([]*Task, len(o.Tasks))
	for i, t := range o.Tasks {
		tc := *t
		cp.Tasks[i] = &tc
	}
	if o.Deadline != nil {
		d := *o.Deadline
		cp.Deadline = &d
	}
	if o.EndTime != nil {
		e := *o.EndTime
		cp.EndTime = &e
	}
	return cp
}

// Clone 返回一个可以交给引擎的独立订单指针
func (o Order) Clone() *Order {
	cp := o.Snapshot()
	return &cp
}
