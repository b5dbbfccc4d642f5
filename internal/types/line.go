package types

import "time"

// StrategyKind 标识队列排序策略
type StrategyKind string

const (
	StrategyArrival            StrategyKind = "ARRIVAL"             // 按到达顺序（考虑交付期限）
	StrategySpecificationBatch StrategyKind = "SPECIFICATION_BATCH" // 相同配置的订单优先成批生产
)

// StrategyDescriptor 描述一个策略，不持有任何队列引用，只用于展示和选择
type StrategyDescriptor struct {
	Kind    StrategyKind `json:"kind"`
	Example *Order       `json:"example,omitempty"` // 批量策略的样例订单
	Active  bool         `json:"active"`
}

// StationSnapshot 是工站的只读视图
type StationSnapshot struct {
	ID           StationID  `json:"id"`
	Capabilities []Category `json:"capabilities"`
	Order        *Order     `json:"order,omitempty"`
	Pending      []Task     `json:"pending"`
}

// LineSnapshot 是整条产线在某一时刻的只读快照
// 对外（界面、统计、API）暴露的都是快照，修改它不会影响引擎
type LineSnapshot struct {
	Time     time.Time          `json:"time"`
	Overtime time.Duration      `json:"overtime"`
	State    string             `json:"state"`
	Strategy StrategyDescriptor `json:"strategy"`
	Stations []StationSnapshot  `json:"stations"`
	Queue    []Order            `json:"queue"`
}
