package engine

import (
	"assembly-line/internal/event"
	"assembly-line/internal/fsm"
	"assembly-line/internal/shift"
	"assembly-line/internal/station"
	"assembly-line/internal/types"
	"log/slog"
	"time"
)

// DefaultPhase 队列为空时估算下一个订单装配时间所用的工序时长
const DefaultPhase = 50 * time.Minute

// BatchThreshold 一个配置至少有这么多个相同订单才值得成批生产
const BatchThreshold = 3

// Statistics 是统计模块的窄接口，引擎只把快照交给它
type Statistics interface {
	FinishedOrder(o types.Order)
	DayEnded(day time.Time, overtime time.Duration)
}

// Options 是 Coordinator 的可选依赖
type Options struct {
	Statistics   Statistics
	Bus          *event.Bus
	Rule         *BackfillRule
	DefaultPhase time.Duration
	Logger       *slog.Logger
}

// Coordinator 负责产线的调度：推进工站链、重算预计完成时间、切换策略、处理跨日
// 链、时钟和队列都只归它所有；它不是并发安全的，由调用方串行化访问
type Coordinator struct {
	chain         *station.Chain
	clock         *shift.Clock
	queue         []*types.Order
	strategy      Strategy
	fsm           *fsm.FSM
	stats         Statistics
	bus           *event.Bus
	rule          *BackfillRule
	defaultPhase  time.Duration
	arrivals      int64
	chainEstimate time.Time // 链上订单中最晚的预计完成时间
	logger        *slog.Logger
}

// NewCoordinator 创建一个新的 Coordinator 实例
func NewCoordinator(chain *station.Chain, clock *shift.Clock, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultPhase <= 0 {
		opts.DefaultPhase = DefaultPhase
	}
	c := &Coordinator{
		chain:        chain,
		clock:        clock,
		strategy:     ArrivalStrategy(),
		fsm:          fsm.NewFSM("line"),
		stats:        opts.Statistics,
		bus:          opts.Bus,
		rule:         opts.Rule,
		defaultPhase: opts.DefaultPhase,
		logger:       opts.Logger.With("component", "coordinator"),
	}
	c.fsm.RegisterCallback(fsm.StateIdle, func(from fsm.State) {
		c.logger.Info("产线清空", "from", from, "time", c.clock.Now())
	})
	c.fsm.RegisterCallback(fsm.StateRunning, func(from fsm.State) {
		if from == fsm.StateIdle {
			c.logger.Info("产线开始运转", "time", c.clock.Now())
		}
	})
	return c
}

// CurrentTime 返回当前模拟时间
func (c *Coordinator) CurrentTime() time.Time {
	return c.clock.Now()
}

// State 返回产线生命周期状态
func (c *Coordinator) State() fsm.State {
	return c.fsm.Current
}

// AddOrder 按当前策略把订单加入队列，返回入队后的快照（含预计完成时间）
func (c *Coordinator) AddOrder(o types.Order) types.Order {
	order := o.Clone()
	order.EndTime = nil
	order.EstimatedEnd = time.Time{}
	c.arrivals++
	order.Arrival = c.arrivals

	c.queue = c.strategy.Insert(c.queue, order)
	_ = c.fsm.Fire(fsm.EventOrderQueued)
	c.logger.Info("接收到订单", "order_id", order.ID, "model", order.Model, "strategy", c.strategy.Kind)

	c.backfill()
	c.reschedule()

	snap := order.Snapshot()
	c.publish(event.Event{Type: event.OrderQueued, OrderID: order.ID, Order: &snap})
	return snap
}

// TryAdvance 尝试将产线推进 d
// 校验失败时返回 false 且不修改任何状态；成功时完成整个推进流程并返回 true
func (c *Coordinator) TryAdvance(d time.Duration) bool {
	if reason, ok := c.validateAdvance(d); !ok {
		c.logger.Warn("拒绝推进", "duration", d, "reason", reason, "time", c.clock.Now())
		c.publish(event.Event{Type: event.AdvanceRejected, Duration: d, Reason: reason, Time: c.clock.Now()})
		return false
	}
	_ = c.fsm.Fire(fsm.EventBeginAdvance)

	delay := c.chain.AdjustDelay(d)
	c.clock.Advance(d)

	if tail := c.chain.Tail().Order(); tail != nil {
		c.finalize(tail)
	}
	c.chain.Advance(nil)

	c.checkRollover()
	c.reassessStrategy()
	c.backfill()
	c.reschedule()

	if c.chain.Idle() && len(c.queue) == 0 {
		_ = c.fsm.Fire(fsm.EventDrained)
	} else {
		_ = c.fsm.Fire(fsm.EventCommit)
	}
	c.logger.Info("产线推进", "duration", d, "delay", delay, "time", c.clock.Now())
	c.publish(event.Event{Type: event.LineAdvanced, Duration: d, Time: c.clock.Now()})
	return true
}

// validateAdvance 检查推进是否可行，返回拒绝原因
func (c *Coordinator) validateAdvance(d time.Duration) (string, bool) {
	if d < 0 {
		return "negative duration", false
	}
	if !c.chain.CanAdvance() {
		return "stations have pending tasks", false
	}
	var pending time.Duration
	if !c.chain.Idle() {
		pending = max(0, c.chainEstimate.Sub(c.clock.Now()))
	}
	if d > c.clock.Slack(pending) {
		return "would pass the next shift start", false
	}
	return "", true
}

// finalize 收尾从出口工站下线的订单
func (c *Coordinator) finalize(o *types.Order) {
	end := c.clock.Now()
	o.EndTime = &end
	snap := o.Snapshot()
	if c.stats != nil {
		c.stats.FinishedOrder(snap)
	}
	c.logger.Info("订单下线", "order_id", o.ID, "delay", o.Delay)
	c.publish(event.Event{Type: event.OrderFinished, OrderID: o.ID, Order: &snap, Time: end, Duration: o.Delay})
}

// nextAssembly 估算下一个订单完整走完产线所需时间
func (c *Coordinator) nextAssembly() time.Duration {
	phase := c.defaultPhase
	if len(c.queue) > 0 {
		phase = c.queue[0].PhaseDuration()
	}
	return phase * time.Duration(c.chain.Len())
}

// checkRollover 产线空闲且今天已来不及再装配一个订单（或已过午夜）时结束当前工作日
func (c *Coordinator) checkRollover() {
	if !c.chain.Idle() {
		return
	}
	late := c.clock.Now().After(c.clock.WindowEnd().Add(-c.nextAssembly()))
	if !late && !c.clock.BeforeShift() {
		return
	}
	day, overtime := c.clock.Rollover()
	if c.stats != nil {
		c.stats.DayEnded(day, overtime)
	}
	c.logger.Info("工作日结束", "day", day.Format(time.DateOnly), "overtime", overtime, "next_start", c.clock.Now())
	c.publish(event.Event{Type: event.DayEnded, Time: day, Duration: overtime})
}

// reassessStrategy 批量策略下已没有匹配样例的订单时退回到达策略
func (c *Coordinator) reassessStrategy() {
	if c.strategy.Kind != types.StrategySpecificationBatch {
		return
	}
	for _, o := range c.chain.Orders() {
		if c.strategy.Matches(o) {
			return
		}
	}
	for _, o := range c.queue {
		if c.strategy.Matches(o) {
			return
		}
	}
	c.logger.Info("批量订单已全部完成，恢复到达策略")
	c.setStrategy(ArrivalStrategy())
}

// projectAssembly 估算队首订单此刻进入入口工站后的完成时间
func (c *Coordinator) projectAssembly() time.Time {
	n := c.chain.Len()
	seq := c.chain.Sequence()
	seq[n-1] = c.queue[0].PhaseDuration()
	for _, o := range c.queue[1:min(len(c.queue), n)] {
		seq = append(seq, o.PhaseDuration())
	}
	at := c.clock.Now()
	for e := 0; e < n; e++ {
		at = at.Add(station.WindowMax(seq, e, n))
	}
	return at
}

// backfill 入口工站空闲时，把仍能在今天窗口内完成的队首订单送上产线
func (c *Coordinator) backfill() {
	if c.chain.Head().Order() != nil || len(c.queue) == 0 {
		return
	}
	next := c.queue[0]
	projected := c.projectAssembly()
	windowEnd := c.clock.WindowEnd()
	if projected.After(windowEnd) {
		ok, err := c.rule.Accept(projected.Sub(windowEnd), c.clock.Overtime(), len(c.queue), next.Model, next.HasDeadline())
		if err != nil {
			c.logger.Error("回填规则求值失败", "error", err, "rule", c.rule.String())
		}
		if !ok {
			c.logger.Debug("队首订单今天无法完成，暂不上线", "order_id", next.ID, "projected", projected)
			return
		}
	}
	c.queue = c.queue[1:]
	next.StartTime = c.clock.Now()
	c.chain.Assign(0, next)
	c.logger.Info("订单上线", "order_id", next.ID, "station_id", c.chain.Head().GetID())
}

// reschedule 重新计算链上和队列中所有订单的预计完成时间
func (c *Coordinator) reschedule() {
	c.estimate(c.queue)
}

// estimate 假设 queue 紧跟在当前链之后，计算链上订单和 queue 中订单的预计完成时间
func (c *Coordinator) estimate(queue []*types.Order) {
	n := c.chain.Len()
	durations := make([]time.Duration, len(queue))
	for i, o := range queue {
		durations[i] = o.PhaseDuration()
	}

	now := c.clock.Now()
	at := c.chain.Reschedule(durations[:min(len(durations), n-1)], now)

	c.chainEstimate = time.Time{}
	for _, o := range c.chain.Orders() {
		if o.EstimatedEnd.After(c.chainEstimate) {
			c.chainEstimate = o.EstimatedEnd
		}
	}

	// 队列继续沿用滑动窗口；超出当天窗口的订单改到下一个班次在空产线上重新开始
	seq := append(c.chain.Sequence(), durations...)
	origin := n
	day := c.clock.ShiftDay(now)
	windowEnd := c.clock.WindowEnd()
	for k, o := range queue {
		est := at.Add(station.WindowMax(seq, origin+k, n))
		for roll := 0; roll < 2 && est.After(windowEnd); roll++ {
			day = day.AddDate(0, 0, 1)
			windowEnd = c.clock.ShiftEnd(day)
			seq = append(make([]time.Duration, n-1), durations[k:]...)
			origin = n - 1 - k
			est = c.clock.ShiftStart(day)
			for e := 0; e < n; e++ {
				est = est.Add(station.WindowMax(seq, e, n))
			}
		}
		o.EstimatedEnd = est
		at = est
	}
}

// PerformTask 在持有该任务的工站上把任务标记为完成
func (c *Coordinator) PerformTask(taskID string) bool {
	s, ok := c.chain.PerformTask(taskID)
	if !ok {
		return false
	}
	c.publish(event.Event{Type: event.TaskPerformed, OrderID: s.Order().ID, StationID: s.GetID(), Time: c.clock.Now()})
	return true
}

// PendingTasks 返回工站未完成的任务快照，未知工站返回空列表
func (c *Coordinator) PendingTasks(id types.StationID) []types.Task {
	return c.chain.PendingTasks(id)
}

// AllTasks 返回工站负责的全部任务快照，未知工站返回空列表
func (c *Coordinator) AllTasks(id types.StationID) []types.Task {
	return c.chain.AllTasks(id)
}

// SwitchStrategy 切换队列策略：example 为 nil 时恢复到达策略，否则按其配置成批生产
func (c *Coordinator) SwitchStrategy(example *types.Order) {
	if example == nil {
		c.setStrategy(ArrivalStrategy())
	} else {
		c.setStrategy(BatchStrategy(*example))
	}
	c.reschedule()
}

func (c *Coordinator) setStrategy(s Strategy) {
	c.strategy = s
	c.queue = s.Refactor(c.queue, c.estimate)
	c.logger.Info("切换队列策略", "kind", s.Kind)
	desc := s.Descriptor(true)
	c.publish(event.Event{Type: event.StrategyChanged, Order: desc.Example, Time: c.clock.Now()})
}

// Strategies 返回当前策略以及其余可选策略，第一个元素总是当前策略
func (c *Coordinator) Strategies() []types.StrategyDescriptor {
	out := []types.StrategyDescriptor{c.strategy.Descriptor(true)}
	if c.strategy.Kind != types.StrategyArrival {
		out = append(out, ArrivalStrategy().Descriptor(false))
	}
	for _, o := range c.BatchEligibleOrders() {
		if c.strategy.Matches(&o) {
			continue
		}
		out = append(out, BatchStrategy(o).Descriptor(false))
	}
	return out
}

// BatchEligibleOrders 返回链上和队列中至少出现 BatchThreshold 次的配置，每种配置一个快照
func (c *Coordinator) BatchEligibleOrders() []types.Order {
	all := append(c.chain.Orders(), c.queue...)
	counts := make(map[string]int)
	var firstSeen []*types.Order
	for _, o := range all {
		key := o.ConfigurationKey()
		if counts[key] == 0 {
			firstSeen = append(firstSeen, o)
		}
		counts[key]++
	}
	out := []types.Order{}
	for _, o := range firstSeen {
		if counts[o.ConfigurationKey()] >= BatchThreshold {
			out = append(out, o.Snapshot())
		}
	}
	return out
}

// Queue 返回待产队列的快照
func (c *Coordinator) Queue() []types.Order {
	out := make([]types.Order, len(c.queue))
	for i, o := range c.queue {
		out[i] = o.Snapshot()
	}
	return out
}

// Snapshot 返回整条产线的只读快照
func (c *Coordinator) Snapshot() types.LineSnapshot {
	snap := types.LineSnapshot{
		Time:     c.clock.Now(),
		Overtime: c.clock.Overtime(),
		State:    string(c.fsm.Current),
		Strategy: c.strategy.Descriptor(true),
		Queue:    c.Queue(),
	}
	for _, s := range c.chain.Stations() {
		ss := types.StationSnapshot{
			ID:           s.GetID(),
			Capabilities: s.Capabilities(),
			Pending:      s.PendingTasks(),
		}
		if o := s.Order(); o != nil {
			cp := o.Snapshot()
			ss.Order = &cp
		}
		snap.Stations = append(snap.Stations, ss)
	}
	return snap
}

func (c *Coordinator) publish(e event.Event) {
	if c.bus == nil {
		return
	}
	line := c.Snapshot()
	e.Line = &line
	c.bus.Publish(e)
}
