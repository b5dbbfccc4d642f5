package scenario

import (
	"assembly-line/internal/engine"
	"assembly-line/internal/intake"
	"assembly-line/internal/types"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrStep 脚本中的某一步无法执行
var ErrStep = errors.New("scenario step failed")

// idleStep 空产线在 drain 时每次推进的时长
const idleStep = 10 * time.Minute

// maxDrainSteps 防止 drain 在异常配置下无限循环
const maxDrainSteps = 10000

// Step 是脚本中的一步，每一步只设置一个动作
type Step struct {
	Order    *intake.Request `yaml:"order,omitempty"`
	Perform  string          `yaml:"perform,omitempty"`  // 完成指定任务
	Complete bool            `yaml:"complete,omitempty"` // 完成所有工站上的待办任务
	Advance  string          `yaml:"advance,omitempty"`  // 推进时长，例如 50m
	Strategy *string         `yaml:"strategy,omitempty"` // 样例订单 ID，空字符串恢复到达策略
	Drain    bool            `yaml:"drain,omitempty"`    // 按最长工序反复推进直到产线和队列清空
	// Expect 为 true 时推进被拒绝视为失败
	Expect *bool `yaml:"expect,omitempty"`
}

// Script 是一个可重放的场景
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Load 解析 YAML 场景，未知字段视为错误
func Load(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("解析场景失败: %w", err)
	}
	return &s, nil
}

// StepResult 是单步执行结果
type StepResult struct {
	Index     int        `yaml:"index"`
	Action    string     `yaml:"action"`
	OrderID   string     `yaml:"order_id,omitempty"`
	Estimated *time.Time `yaml:"estimated,omitempty"`
	Accepted  bool       `yaml:"accepted"`
	Time      time.Time  `yaml:"time"`
}

// Report 是场景执行报告
type Report struct {
	Name  string       `yaml:"name"`
	Steps []StepResult `yaml:"steps"`
	// Estimates 最后一次下单之后每个订单的预计完成时间
	Estimates map[string]time.Time `yaml:"estimates"`
	Final     FinalState           `yaml:"final"`
}

// FinalState 执行结束时的产线概况
type FinalState struct {
	Time     time.Time          `yaml:"time"`
	State    string             `yaml:"state"`
	Strategy types.StrategyKind `yaml:"strategy"`
	Queue    int                `yaml:"queue"`
	Overtime time.Duration      `yaml:"overtime"`
}

// Runner 在协调器上重放脚本
type Runner struct {
	coord   *engine.Coordinator
	catalog *intake.Catalog
}

func NewRunner(coord *engine.Coordinator, catalog *intake.Catalog) *Runner {
	return &Runner{coord: coord, catalog: catalog}
}

// Run 按顺序执行每一步；ctx 取消或某一步失败时返回已执行部分的报告和错误
func (r *Runner) Run(ctx context.Context, s *Script) (*Report, error) {
	rep := &Report{Name: s.Name, Estimates: make(map[string]time.Time)}
	defer func() { rep.Final = r.final() }()

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := r.step(ctx, i, step)
		if err != nil {
			return rep, err
		}
		rep.Steps = append(rep.Steps, res)
		if step.Order != nil {
			r.collectEstimates(rep.Estimates)
		}
	}
	return rep, nil
}

func (r *Runner) step(ctx context.Context, i int, step Step) (StepResult, error) {
	res := StepResult{Index: i, Accepted: true}
	switch {
	case step.Order != nil:
		res.Action = "order"
		o, err := r.catalog.Build(*step.Order)
		if err != nil {
			return res, fmt.Errorf("%w: step %d: %w", ErrStep, i, err)
		}
		queued := r.coord.AddOrder(o)
		res.OrderID = queued.ID
		res.Estimated = &queued.EstimatedEnd

	case step.Perform != "":
		res.Action = "perform"
		res.Accepted = r.coord.PerformTask(step.Perform)

	case step.Complete:
		res.Action = "complete"
		r.completeAll()

	case step.Advance != "":
		res.Action = "advance"
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return res, fmt.Errorf("%w: step %d: %w", ErrStep, i, err)
		}
		res.Accepted = r.coord.TryAdvance(d)

	case step.Strategy != nil:
		res.Action = "strategy"
		if err := r.switchStrategy(*step.Strategy); err != nil {
			return res, fmt.Errorf("%w: step %d: %w", ErrStep, i, err)
		}

	case step.Drain:
		res.Action = "drain"
		if err := r.drain(ctx); err != nil {
			return res, fmt.Errorf("%w: step %d: %w", ErrStep, i, err)
		}

	default:
		return res, fmt.Errorf("%w: step %d has no action", ErrStep, i)
	}

	if step.Expect != nil && *step.Expect != res.Accepted {
		return res, fmt.Errorf("%w: step %d: %s accepted=%v, expected %v", ErrStep, i, res.Action, res.Accepted, *step.Expect)
	}
	res.Time = r.coord.CurrentTime()
	return res, nil
}

func (r *Runner) completeAll() {
	for _, st := range r.coord.Snapshot().Stations {
		for _, t := range st.Pending {
			r.coord.PerformTask(t.ID)
		}
	}
}

func (r *Runner) switchStrategy(exampleID string) error {
	if exampleID == "" {
		r.coord.SwitchStrategy(nil)
		return nil
	}
	line := r.coord.Snapshot()
	for _, st := range line.Stations {
		if st.Order != nil && st.Order.ID == exampleID {
			r.coord.SwitchStrategy(st.Order)
			return nil
		}
	}
	for _, o := range line.Queue {
		if o.ID == exampleID {
			r.coord.SwitchStrategy(&o)
			return nil
		}
	}
	return fmt.Errorf("unknown order %q", exampleID)
}

// drain 每次完成全部任务并按链上最长工序推进
func (r *Runner) drain(ctx context.Context) error {
	for n := 0; n < maxDrainSteps; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := r.coord.Snapshot()
		var longest time.Duration
		for _, st := range line.Stations {
			if st.Order != nil {
				longest = max(longest, st.Order.PhaseDuration())
			}
		}
		if longest == 0 && len(line.Queue) == 0 {
			return nil
		}
		if longest == 0 {
			longest = idleStep
		}
		r.completeAll()
		if !r.coord.TryAdvance(longest) {
			return fmt.Errorf("advance %s rejected at %s", longest, r.coord.CurrentTime())
		}
	}
	return fmt.Errorf("line not drained after %d advances", maxDrainSteps)
}

func (r *Runner) collectEstimates(out map[string]time.Time) {
	line := r.coord.Snapshot()
	for _, st := range line.Stations {
		if st.Order != nil {
			out[st.Order.ID] = st.Order.EstimatedEnd
		}
	}
	for _, o := range line.Queue {
		out[o.ID] = o.EstimatedEnd
	}
}

func (r *Runner) final() FinalState {
	line := r.coord.Snapshot()
	return FinalState{
		Time:     line.Time,
		State:    line.State,
		Strategy: line.Strategy.Kind,
		Queue:    len(line.Queue),
		Overtime: line.Overtime,
	}
}
