package intake

import (
	"assembly-line/internal/config"
	"assembly-line/internal/types"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrBadDeadline  = errors.New("bad deadline")
)

// DefaultChoice 请求中没有指定选项的类别使用的默认选项
const DefaultChoice = "standard"

// Request 是外部提交的订单请求 (HTTP 或场景脚本)
type Request struct {
	ID       string            `json:"id,omitempty" yaml:"id,omitempty"`
	Model    string            `json:"model" yaml:"model"`
	Choices  map[string]string `json:"choices,omitempty" yaml:"choices,omitempty"`   // 类别 -> 选项
	Deadline string            `json:"deadline,omitempty" yaml:"deadline,omitempty"` // RFC3339
}

// Model 车型目录中的一项
type Model struct {
	Name       string           `json:"name"`
	Phase      time.Duration    `json:"phase"`
	Categories []types.Category `json:"categories"`
}

// Catalog 根据车型目录把请求转换成可以交给引擎的订单
// 配置组合是否合法不在这里检查
type Catalog struct {
	models map[string]Model
}

// NewCatalog 从配置构建车型目录
func NewCatalog(models []config.ModelConfig) *Catalog {
	c := &Catalog{models: make(map[string]Model, len(models))}
	for _, m := range models {
		model := Model{Name: m.Name, Phase: time.Duration(m.PhaseMinutes) * time.Minute}
		for _, cat := range m.Categories {
			model.Categories = append(model.Categories, types.Category(cat))
		}
		c.models[m.Name] = model
	}
	return c
}

// Models 返回按名称排序的车型列表
func (c *Catalog) Models() []Model {
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Model) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Build 生成订单：每个类别一个任务，ID 为空时分配 UUID
func (c *Catalog) Build(req Request) (types.Order, error) {
	model, ok := c.models[req.Model]
	if !ok {
		return types.Order{}, fmt.Errorf("%w: %q", ErrUnknownModel, req.Model)
	}

	o := types.Order{
		ID:    req.ID,
		Model: model.Name,
		Phase: model.Phase,
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if req.Deadline != "" {
		d, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			return types.Order{}, fmt.Errorf("%w: %v", ErrBadDeadline, err)
		}
		o.Deadline = &d
	}

	for _, cat := range model.Categories {
		choice := req.Choices[string(cat)]
		if choice == "" {
			choice = DefaultChoice
		}
		o.Tasks = append(o.Tasks, &types.Task{
			ID:       uuid.NewString(),
			Category: cat,
			Choice:   choice,
		})
	}
	return o, nil
}
