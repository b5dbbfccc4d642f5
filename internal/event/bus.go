package event

import (
	"assembly-line/internal/types"
	"sync"
	"time"
)

// EventType 定义事件的类型
type EventType string

// 定义所有业务事件类型
const (
	OrderQueued     EventType = "OrderQueued"     // 订单进入待产队列
	OrderFinished   EventType = "OrderFinished"   // 订单从出口工站下线
	LineAdvanced    EventType = "LineAdvanced"    // 产线成功推进一个工序
	AdvanceRejected EventType = "AdvanceRejected" // 推进请求被拒绝，状态未改变
	DayEnded        EventType = "DayEnded"        // 工作日结束，时间拨到下一班次
	StrategyChanged EventType = "StrategyChanged" // 队列策略切换
	TaskPerformed   EventType = "TaskPerformed"   // 某个工站完成了一个任务
)

// Event 结构体定义了事件的数据负载
type Event struct {
	Type      EventType           // 事件类型
	OrderID   string              // 关联的订单 ID
	Order     *types.Order        // 订单快照
	StationID types.StationID     // 关联的工站 ID (仅任务相关事件)
	Time      time.Time           // 事件发生时的模拟时间
	Duration  time.Duration       // 推进时长、延误或加班，视事件类型而定
	Reason    string              // 拒绝原因 (仅 AdvanceRejected)
	Line      *types.LineSnapshot // 事件发生后的产线快照
}

// Handler 是事件处理函数的签名
type Handler func(e Event)

// Bus 是一个简单的内存事件总线
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler // 存储事件类型到多个处理函数的映射
}

// NewBus 创建一个新的事件总线实例
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe 订阅一个特定类型的事件
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish 发布一个事件，所有订阅了该事件类型的处理器都将被调用
// 处理器按订阅顺序同步执行，保证日志和统计的顺序与引擎一致
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(e)
	}
}
