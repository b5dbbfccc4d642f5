package fsm

import (
	"fmt"
)

// State 定义状态类型
type State string

// Event 定义事件类型
type Event string

const (
	StateIdle           State = "IDLE"            // 链和队列中都没有订单
	StateRunning        State = "RUNNING"         // 至少有一个订单在链上或队列中
	StateAdvancePending State = "ADVANCE_PENDING" // 推进操作进行中
)

const (
	EventOrderQueued  Event = "ORDER_QUEUED"
	EventBeginAdvance Event = "BEGIN_ADVANCE"
	EventCommit       Event = "COMMIT"  // 推进完成，仍有订单
	EventDrained      Event = "DRAINED" // 推进完成，产线清空
)

// FSM 有限状态机，描述整条产线的生命周期
// 引擎是单线程的，这里不加锁
type FSM struct {
	Current State
	// transitions 定义状态转移表: CurrentState -> Event -> NextState
	transitions map[State]map[Event]State
	// callbacks 定义状态变更后的回调: State -> func(from State)
	callbacks map[State]func(from State)
	TargetID  string // 关联的产线 ID
}

func NewFSM(targetID string) *FSM {
	fsm := &FSM{
		Current:     StateIdle,
		TargetID:    targetID,
		transitions: make(map[State]map[Event]State),
		callbacks:   make(map[State]func(State)),
	}
	fsm.initTransitions()
	return fsm
}

func (f *FSM) initTransitions() {
	f.addTransition(StateIdle, EventOrderQueued, StateRunning)
	f.addTransition(StateRunning, EventOrderQueued, StateRunning)

	// 空产线也可以推进，相当于让时间流逝
	f.addTransition(StateIdle, EventBeginAdvance, StateAdvancePending)
	f.addTransition(StateRunning, EventBeginAdvance, StateAdvancePending)

	f.addTransition(StateAdvancePending, EventCommit, StateRunning)
	f.addTransition(StateAdvancePending, EventDrained, StateIdle)
}

func (f *FSM) addTransition(from State, event Event, to State) {
	if _, ok := f.transitions[from]; !ok {
		f.transitions[from] = make(map[Event]State)
	}
	f.transitions[from][event] = to
}

// RegisterCallback 注册状态进入时的回调
func (f *FSM) RegisterCallback(state State, callback func(from State)) {
	f.callbacks[state] = callback
}

// Fire 触发事件
func (f *FSM) Fire(event Event) error {
	nextState, ok := f.transitions[f.Current][event]
	if !ok {
		return fmt.Errorf("invalid transition for %s: cannot fire event %s from state %s", f.TargetID, event, f.Current)
	}

	prevState := f.Current
	f.Current = nextState

	// 回调中不要再调用 Fire
	if cb, exists := f.callbacks[nextState]; exists && prevState != nextState {
		cb(prevState)
	}
	return nil
}
