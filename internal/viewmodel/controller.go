package viewmodel

import (
	"context"
	"io"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/John-Robertt/closetube/internal/domain"
)

// Loader 按 Ticket 拉取视频列表；t.Group() 为空或“전체”表示全部。
// 是否采用结果只由 Complete 判断，Loader 不应自行丢弃结果。
type Loader interface {
	Load(ctx context.Context, t Ticket) ([]domain.Video, error)
}

// Ticket 标识一次异步加载；只有最新的 Ticket 能提交结果。
type Ticket struct {
	gen   uint64
	group string
}

func (t Ticket) Generation() uint64 { return t.gen }

// Group 返回发起加载时选中的主分组。
func (t Ticket) Group() string { return t.group }

// Controller 持有原始列表与搜索/分组/筛选状态，并派生可见列表。
//
// 约束：
// - 可见列表 = 原始列表经 Match 过滤后按 filters.SortBy 稳定排序；任何输入变化后立即重算
// - 原始列表永不被修改
// - 过期（generation 落后）的加载结果直接丢弃
type Controller struct {
	mu sync.Mutex

	raw           []domain.Video
	visible       []domain.Video
	query         string
	selectedGroup string
	filters       domain.FilterOptions

	state State
	err   error
	gen   uint64
	rev   uint64

	obs Observer
	log *log.Helper
}

type Option func(*Controller)

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.obs = o
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = log.NewHelper(l)
		}
	}
}

// WithFilters 设置初始筛选（例如配置里的 default_sort）。
func WithFilters(f domain.FilterOptions) Option {
	return func(c *Controller) { c.filters = f.Normalize() }
}

// WithSelectedGroup 设置初始主分组。
func WithSelectedGroup(g string) Option {
	return func(c *Controller) { c.selectedGroup = g }
}

func New(opts ...Option) *Controller {
	c := &Controller{
		raw:     []domain.Video{},
		visible: []domain.Video{},
		filters: domain.DefaultFilterOptions(),
		state:   StateIdle,
		obs:     nopObserver{},
		log:     log.NewHelper(log.NewStdLogger(io.Discard)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetVideos 同步替换原始列表；同时作废所有未完成的 Ticket。
func (c *Controller) SetVideos(videos []domain.Video) {
	c.mu.Lock()
	c.gen++
	c.raw = domain.CloneVideos(videos)
	if c.raw == nil {
		c.raw = []domain.Video{}
	}
	c.err = nil
	c.recomputeLocked()
	c.state = c.loadedStateLocked()
	v := c.snapshotLocked()
	c.mu.Unlock()

	c.obs.OnChange(v)
}

func (c *Controller) SetSearchQuery(q string) {
	c.update(func() { c.query = q })
}

func (c *Controller) SetSelectedGroup(g string) {
	c.update(func() { c.selectedGroup = g })
}

func (c *Controller) SetFilters(f domain.FilterOptions) {
	c.update(func() { c.filters = f.Normalize() })
}

// UpdateFilters 以当前筛选为输入计算新筛选（用于 Toggle 类操作，避免读-改-写竞争）。
func (c *Controller) UpdateFilters(fn func(domain.FilterOptions) domain.FilterOptions) {
	c.update(func() { c.filters = fn(c.filters.Clone()).Normalize() })
}

// ClearFilters 恢复默认筛选并清空搜索词。
func (c *Controller) ClearFilters() {
	c.update(func() {
		c.filters = domain.DefaultFilterOptions()
		c.query = ""
	})
}

// ApplyUpdate 用服务端返回的最新视频替换同 id 的条目（点赞/观看后）。未知 id 忽略。
func (c *Controller) ApplyUpdate(v domain.Video) bool {
	c.mu.Lock()
	idx := -1
	for i := range c.raw {
		if c.raw[i].ID == v.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	raw := domain.CloneVideos(c.raw)
	raw[idx] = v
	c.raw = raw
	c.recomputeLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.obs.OnChange(snap)
	return true
}

// Visible 返回可见列表的副本。
func (c *Controller) Visible() []domain.Video {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CloneVideos(c.visible)
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Begin 开始一次异步加载：generation 加一并进入 Loading。
func (c *Controller) Begin() Ticket {
	c.mu.Lock()
	c.gen++
	c.state = StateLoading
	c.err = nil
	t := Ticket{gen: c.gen, group: c.selectedGroup}
	c.rev++
	v := c.snapshotLocked()
	c.mu.Unlock()

	c.obs.OnChange(v)
	return t
}

// Complete 提交 Begin 对应的加载结果。
// Ticket 已过期时丢弃结果并返回 false。
// 失败时保留上一次的原始列表（首次加载则为空），状态为 Error。
func (c *Controller) Complete(t Ticket, videos []domain.Video, err error) bool {
	c.mu.Lock()
	if t.gen != c.gen {
		cur := c.gen
		c.mu.Unlock()
		c.log.Debugw("msg", "丢弃过期的加载结果", "ticket", t.gen, "current", cur)
		return false
	}
	if err != nil {
		c.state = StateError
		c.err = err
		c.rev++
	} else {
		c.raw = domain.CloneVideos(videos)
		if c.raw == nil {
			c.raw = []domain.Video{}
		}
		c.err = nil
		c.recomputeLocked()
		c.state = c.loadedStateLocked()
	}
	v := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.Warnw("msg", "加载视频列表失败", "generation", t.gen, "group", t.group, "err", err)
	}
	c.obs.OnChange(v)
	return true
}

// Reload 以当前主分组调用 loader 并提交结果（用户的显式“重试/刷新”入口）。
// 返回结果是否被采用。
func (c *Controller) Reload(ctx context.Context, l Loader) (bool, error) {
	t := c.Begin()
	videos, err := l.Load(ctx, t)
	return c.Complete(t, videos, err), err
}

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	c.recomputeLocked()
	v := c.snapshotLocked()
	c.mu.Unlock()

	c.obs.OnChange(v)
}

func (c *Controller) recomputeLocked() {
	m := domain.NewMatcher(c.query, c.selectedGroup, c.filters)
	visible := domain.FilterVideos(c.raw, m)
	domain.SortVideos(visible, c.filters.SortBy)
	c.visible = visible
	c.rev++
}

// loadedStateLocked 按原始列表是否为空区分 Loaded 与 Empty（筛选为空不算 Empty）。
func (c *Controller) loadedStateLocked() State {
	if len(c.raw) == 0 {
		return StateEmpty
	}
	return StateLoaded
}

func (c *Controller) snapshotLocked() View {
	v := View{
		Visible:       domain.CloneVideos(c.visible),
		Total:         len(c.raw),
		Query:         c.query,
		SelectedGroup: c.selectedGroup,
		Filters:       c.filters.Clone(),
		State:         c.state,
		Err:           c.err,
		Generation:    c.gen,
		Revision:      c.rev,
	}
	if c.err != nil {
		v.Error = c.err.Error()
	}
	return v
}
