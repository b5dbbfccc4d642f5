package persistence

import (
	"assembly-line/internal/types"
	"log/slog"
	"sync"
	"time"
)

// DaySummary 单个工作日的产量和延误
type DaySummary struct {
	Day          time.Time     `json:"day" yaml:"day"`
	Orders       int           `json:"orders" yaml:"orders"`
	TotalDelay   time.Duration `json:"total_delay" yaml:"total_delay"`
	AverageDelay time.Duration `json:"average_delay" yaml:"average_delay"`
	Overtime     time.Duration `json:"overtime" yaml:"overtime"`
}

// Summary 汇总统计，Current 是尚未结束的工作日
type Summary struct {
	Days          []DaySummary  `json:"days" yaml:"days"`
	Current       DaySummary    `json:"current" yaml:"current"`
	Orders        int           `json:"orders" yaml:"orders"`
	AverageDelay  time.Duration `json:"average_delay" yaml:"average_delay"`
	TotalOvertime time.Duration `json:"total_overtime" yaml:"total_overtime"`
	totalDelay    time.Duration
}

func (s *Summary) addOrder(o types.Order) {
	s.Current.Orders++
	s.Current.TotalDelay += o.Delay
	s.Current.AverageDelay = s.Current.TotalDelay / time.Duration(s.Current.Orders)

	s.Orders++
	s.totalDelay += o.Delay
	s.AverageDelay = s.totalDelay / time.Duration(s.Orders)
}

func (s *Summary) closeDay(day time.Time, overtime time.Duration) {
	d := s.Current
	d.Day = day
	d.Overtime = overtime
	s.Days = append(s.Days, d)
	s.Current = DaySummary{}
	s.TotalOvertime += overtime
}

// Recorder 实现引擎的统计接口：在内存中汇总，并在配置了日志时写入日志
type Recorder struct {
	mu      sync.Mutex
	summary Summary
	journal *Journal
	logger  *slog.Logger
}

// NewRecorder 创建统计记录器，journal 可以为 nil
func NewRecorder(journal *Journal, logger *slog.Logger) *Recorder {
	return &Recorder{journal: journal, logger: logger.With("component", "statistics")}
}

// FinishedOrder 记录一个下线订单
func (r *Recorder) FinishedOrder(o types.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.addOrder(o)
	if r.journal == nil {
		return
	}
	if err := r.journal.AppendOrder(o); err != nil {
		r.logger.Error("写入生产日志失败", "order_id", o.ID, "error", err)
	}
}

// DayEnded 记录一个工作日结束
func (r *Recorder) DayEnded(day time.Time, overtime time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.closeDay(day, overtime)
	if r.journal == nil {
		return
	}
	if err := r.journal.AppendDay(day, overtime); err != nil {
		r.logger.Error("写入生产日志失败", "day", day.Format(time.DateOnly), "error", err)
	}
}

// Recover 重放生产日志，用历史记录覆盖内存中的统计，返回恢复的订单数
// 启动时调用一次；没有配置日志时什么也不做
func (r *Recorder) Recover() (int, error) {
	if r.journal == nil {
		return 0, nil
	}
	s, err := r.journal.Summary()
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = s
	return s.Orders, nil
}

// Summary 返回统计快照，包含启动时从日志恢复的历史
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.summary
	s.Days = append([]DaySummary(nil), r.summary.Days...)
	return s
}
