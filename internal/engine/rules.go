package engine

import (
	"fmt"
	"time"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// BackfillRule 是可配置的回填放行规则 (expr 语法)
// 当队首订单的预计完成时间超出当天工作窗口时，规则返回 true 仍允许它上线
// 例如: "overrun_minutes <= 30 && overtime_minutes == 0"
type BackfillRule struct {
	source  string
	program *vm.Program
}

// backfillEnv 构造规则求值环境，编译时也用它做类型检查
func backfillEnv(overrun, overtime time.Duration, queueLen int, model string, hasDeadline bool) map[string]interface{} {
	return map[string]interface{}{
		"overrun_minutes":  int(overrun / time.Minute),
		"overtime_minutes": int(overtime / time.Minute),
		"queue_length":     queueLen,
		"model":            model,
		"has_deadline":     hasDeadline,
	}
}

// NewBackfillRule 编译规则，空字符串返回 nil 规则（从不放行）
func NewBackfillRule(source string) (*BackfillRule, error) {
	if source == "" {
		return nil, nil
	}
	program, err := expr.Compile(source, expr.Env(backfillEnv(0, 0, 0, "", false)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("rule compilation failed: %w", err)
	}
	return &BackfillRule{source: source, program: program}, nil
}

func (r *BackfillRule) String() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Accept 对规则求值，nil 规则始终返回 false
func (r *BackfillRule) Accept(overrun, overtime time.Duration, queueLen int, model string, hasDeadline bool) (bool, error) {
	if r == nil {
		return false, nil
	}
	result, err := expr.Run(r.program, backfillEnv(overrun, overtime, queueLen, model, hasDeadline))
	if err != nil {
		return false, fmt.Errorf("rule execution failed: %w", err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("rule result is not a boolean")
	}
	return ok, nil
}
