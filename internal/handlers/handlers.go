package handlers

import (
	"assembly-line/internal/event"
	"assembly-line/internal/metrics"
	"assembly-line/internal/web"
	"fmt"
	"log/slog"
	"time"
)

// allEvents 看板关心的全部事件
var allEvents = []event.EventType{
	event.OrderQueued,
	event.OrderFinished,
	event.LineAdvanced,
	event.AdvanceRejected,
	event.DayEnded,
	event.StrategyChanged,
	event.TaskPerformed,
}

// RegisterEventHandlers 将所有事件处理器注册到事件总线
// 引擎只发布事件，监控、看板和审计日志各自订阅
func RegisterEventHandlers(bus *event.Bus, st *web.StateTracker, logger *slog.Logger) {
	registerMetrics(bus)
	if st != nil {
		registerDashboard(bus, st)
	}
	registerAudit(bus, logger.With("component", "audit"))
}

// --- 指标处理器 (Metrics Handler) ---
func registerMetrics(bus *event.Bus) {
	// 每个事件都带着最新快照，用它刷新队列长度
	for _, t := range allEvents {
		bus.Subscribe(t, func(e event.Event) {
			if e.Line != nil {
				metrics.OrdersInQueue.Set(float64(len(e.Line.Queue)))
			}
		})
	}
	bus.Subscribe(event.OrderFinished, func(e event.Event) {
		if e.Order == nil {
			return
		}
		metrics.OrdersFinishedTotal.WithLabelValues(e.Order.Model).Inc()
		metrics.OrderDelayMinutes.WithLabelValues(e.Order.Model).Observe(e.Order.Delay.Minutes())
	})
	bus.Subscribe(event.LineAdvanced, func(e event.Event) {
		metrics.AdvancesTotal.WithLabelValues("accepted").Inc()
	})
	bus.Subscribe(event.AdvanceRejected, func(e event.Event) {
		metrics.AdvancesTotal.WithLabelValues("rejected").Inc()
	})
	bus.Subscribe(event.DayEnded, func(e event.Event) {
		metrics.OvertimeMinutes.Set(e.Duration.Minutes())
	})
	bus.Subscribe(event.StrategyChanged, func(e event.Event) {
		if e.Line != nil {
			metrics.StrategySwitchesTotal.WithLabelValues(string(e.Line.Strategy.Kind)).Inc()
		}
	})
}

// --- Web UI 处理器 (Web UI Handler) ---
func registerDashboard(bus *event.Bus, st *web.StateTracker) {
	for _, t := range allEvents {
		bus.Subscribe(t, func(e event.Event) {
			st.Record(e.Line, web.Activity{
				Type:    string(e.Type),
				OrderID: e.OrderID,
				Time:    e.Time,
				Detail:  describe(e),
			})
		})
	}
}

// describe 生成看板上显示的一行说明
func describe(e event.Event) string {
	switch e.Type {
	case event.OrderFinished:
		return fmt.Sprintf("delay %s", e.Duration)
	case event.LineAdvanced:
		return fmt.Sprintf("advanced %s", e.Duration)
	case event.AdvanceRejected:
		return fmt.Sprintf("%s rejected: %s", e.Duration, e.Reason)
	case event.DayEnded:
		return fmt.Sprintf("%s overtime %s", e.Time.Format(time.DateOnly), e.Duration)
	case event.TaskPerformed:
		return string(e.StationID)
	case event.StrategyChanged:
		if e.Line != nil {
			return string(e.Line.Strategy.Kind)
		}
	}
	return ""
}

// --- 日志处理器 (Logging Handler) ---
// 订阅关键业务事件，记录审计日志
func registerAudit(bus *event.Bus, logger *slog.Logger) {
	bus.Subscribe(event.OrderFinished, func(e event.Event) {
		logger.Info("订单完成", "order_id", e.OrderID, "end_time", e.Time, "delay", e.Duration)
	})
	bus.Subscribe(event.AdvanceRejected, func(e event.Event) {
		logger.Warn("推进被拒绝", "duration", e.Duration, "reason", e.Reason)
	})
	bus.Subscribe(event.DayEnded, func(e event.Event) {
		logger.Info("工作日结束", "day", e.Time.Format(time.DateOnly), "overtime", e.Duration)
	})
}
