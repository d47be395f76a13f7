package viewmodel

import (
	"github.com/John-Robertt/closetube/internal/domain"
)

// State 是列表加载状态。加载失败时不会回落到任何内置样例数据。
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateEmpty   State = "empty"
	StateError   State = "error"
	StateLoaded  State = "loaded"
)

// View 是控制器在某一时刻的只读快照。
type View struct {
	Visible       []domain.Video       `json:"visible"`
	Total         int                  `json:"total"`
	Query         string               `json:"query"`
	SelectedGroup string               `json:"selectedGroup"`
	Filters       domain.FilterOptions `json:"filters"`
	State         State                `json:"state"`
	Err           error                `json:"-"`
	Error         string               `json:"error,omitempty"`
	Generation    uint64               `json:"generation"`
	// Revision 每次状态变化加一；观察者可据此丢弃乱序到达的旧快照。
	Revision uint64 `json:"revision"`
}

// Observer 接收控制器状态变化。
//
// 约束：
// - OnChange 在控制器锁之外调用，可在回调里读取控制器
// - 回调可能来自不同 goroutine，实现方需自行保证并发安全
type Observer interface {
	OnChange(v View)
}

// ObserverFunc 让普通函数满足 Observer。
type ObserverFunc func(View)

func (f ObserverFunc) OnChange(v View) { f(v) }

type nopObserver struct{}

func (nopObserver) OnChange(View) {}
