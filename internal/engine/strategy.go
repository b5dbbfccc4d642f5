package engine

import (
	"assembly-line/internal/types"
	"cmp"
	"slices"
)

// Strategy 是队列排序策略的标签联合：到达顺序，或以样例订单为键的批量策略
type Strategy struct {
	Kind    types.StrategyKind
	Example *types.Order // 仅批量策略使用，保存的是快照
}

// strategyFuncs 是每种策略的行为表
type strategyFuncs struct {
	insert   func(s Strategy, queue []*types.Order, o *types.Order) []*types.Order
	refactor func(s Strategy, snapshot []*types.Order, estimate Estimator) []*types.Order
}

// Estimator 为给定队列（排在当前链之后）重新计算每个订单的预计完成时间
type Estimator func(queue []*types.Order)

var strategyTable = map[types.StrategyKind]strategyFuncs{
	types.StrategyArrival: {
		insert:   arrivalInsert,
		refactor: arrivalRefactor,
	},
	types.StrategySpecificationBatch: {
		insert:   batchInsert,
		refactor: batchRefactor,
	},
}

// ArrivalStrategy 返回到达顺序策略
func ArrivalStrategy() Strategy {
	return Strategy{Kind: types.StrategyArrival}
}

// BatchStrategy 返回以 example 的配置为键的批量策略
func BatchStrategy(example types.Order) Strategy {
	return Strategy{Kind: types.StrategySpecificationBatch, Example: example.Clone()}
}

// Matches 判断订单是否与批量策略的样例配置相同，到达策略永远返回 false
func (s Strategy) Matches(o *types.Order) bool {
	return s.Kind == types.StrategySpecificationBatch && s.Example.SameConfiguration(o)
}

// Insert 按策略把订单插入队列，返回新队列
func (s Strategy) Insert(queue []*types.Order, o *types.Order) []*types.Order {
	return strategyTable[s.Kind].insert(s, queue, o)
}

// Refactor 切换策略时按新策略重排队列快照，不修改传入的切片
// estimate 可以为 nil，此时沿用订单上已有的预计完成时间
func (s Strategy) Refactor(snapshot []*types.Order, estimate Estimator) []*types.Order {
	return strategyTable[s.Kind].refactor(s, slices.Clone(snapshot), estimate)
}

// Descriptor 返回不持有队列引用的策略描述
func (s Strategy) Descriptor(active bool) types.StrategyDescriptor {
	d := types.StrategyDescriptor{Kind: s.Kind, Active: active}
	if s.Example != nil {
		d.Example = s.Example.Clone()
	}
	return d
}

// deadlineIndex 在 queue[lo:hi] 中为订单寻找插入位置
// 没有期限的订单放在区间末尾；有期限的订单插在第一个“排在它后面就会错过期限”的订单之前，
// 但不会越过期限不晚于自己的订单（同期限保持到达顺序）
func deadlineIndex(queue []*types.Order, o *types.Order, lo, hi int) int {
	if !o.HasDeadline() {
		return hi
	}
	for i := lo; i < hi; i++ {
		q := queue[i]
		if q.HasDeadline() && !q.Deadline.After(*o.Deadline) {
			continue
		}
		if q.EstimatedEnd.Add(o.PhaseDuration()).After(*o.Deadline) {
			return i
		}
	}
	return hi
}

func arrivalInsert(_ Strategy, queue []*types.Order, o *types.Order) []*types.Order {
	return slices.Insert(queue, deadlineIndex(queue, o, 0, len(queue)), o)
}

// arrivalRefactor 按到达序号重放所有订单
// 每插入一个订单都重算一次预计完成时间，期限订单的位置才和逐个入队时一致
func arrivalRefactor(s Strategy, snapshot []*types.Order, estimate Estimator) []*types.Order {
	slices.SortStableFunc(snapshot, func(a, b *types.Order) int {
		return cmp.Compare(a.Arrival, b.Arrival)
	})
	out := make([]*types.Order, 0, len(snapshot))
	for _, o := range snapshot {
		out = arrivalInsert(s, out, o)
		if estimate != nil {
			estimate(out)
		}
	}
	return out
}

// leadingRun 返回队列开头连续匹配样例的订单数
func leadingRun(s Strategy, queue []*types.Order) int {
	n := 0
	for n < len(queue) && s.Matches(queue[n]) {
		n++
	}
	return n
}

func batchInsert(s Strategy, queue []*types.Order, o *types.Order) []*types.Order {
	run := leadingRun(s, queue)
	if s.Matches(o) {
		return slices.Insert(queue, deadlineIndex(queue, o, 0, run), o)
	}
	return slices.Insert(queue, deadlineIndex(queue, o, run, len(queue)), o)
}

// batchRefactor 稳定分区：匹配样例的订单在前，其余在后
func batchRefactor(s Strategy, snapshot []*types.Order, _ Estimator) []*types.Order {
	matches := make([]*types.Order, 0, len(snapshot))
	var rest []*types.Order
	for _, o := range snapshot {
		if s.Matches(o) {
			matches = append(matches, o)
		} else {
			rest = append(rest, o)
		}
	}
	return append(matches, rest...)
}
