package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 定义 Prometheus 监控指标
var (
	// OrdersInQueue 仪表盘：当前待产队列中的订单数量
	// 用于监控系统积压情况
	OrdersInQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "line_orders_in_queue",
		Help: "The number of orders currently waiting in the pending queue",
	})

	// OrdersFinishedTotal 计数器：下线订单总数，按车型分类
	OrdersFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_orders_finished_total",
		Help: "The total number of orders that left the tail station",
	}, []string{"model"})

	// AdvancesTotal 计数器：推进请求数，按结果 (accepted/rejected) 分类
	AdvancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_advances_total",
		Help: "The total number of advance requests",
	}, []string{"result"})

	// OvertimeMinutes 仪表盘：最近一个工作日的加班分钟数
	OvertimeMinutes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "line_overtime_minutes",
		Help: "Overtime recorded at the last day boundary",
	})

	// OrderDelayMinutes 直方图：订单下线时的累计延误分布
	// 用于分析标准工序时长是否贴合实际
	OrderDelayMinutes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "line_order_delay_minutes",
		Help:    "Cumulative delay of finished orders",
		Buckets: []float64{-60, -30, -10, 0, 10, 30, 60, 120},
	}, []string{"model"})

	// StrategySwitchesTotal 计数器：策略切换次数
	StrategySwitchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_strategy_switches_total",
		Help: "The total number of queue strategy switches",
	}, []string{"kind"})
)
