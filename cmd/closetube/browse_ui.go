package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/John-Robertt/closetube/internal/domain"
	"github.com/John-Robertt/closetube/internal/stats"
	"github.com/John-Robertt/closetube/internal/store"
	"github.com/John-Robertt/closetube/internal/viewmodel"
)

// runBrowse 启动交互界面。界面运行期间日志被丢弃，避免写乱终端。
func runBrowse(ctx context.Context, e *env) error {
	quiet := log.NewStdLogger(io.Discard)
	if e.log != nil {
		e.log.Debugw("msg", "browse started", "api_url", e.cfg.APIURL)
	}

	filters := domain.DefaultFilterOptions()
	filters.SortBy = e.cfg.DefaultSort
	ctrl := viewmodel.New(
		viewmodel.WithLogger(quiet),
		viewmodel.WithFilters(filters),
		viewmodel.WithSelectedGroup(e.cfg.DefaultGroup),
	)
	m := newBrowseModel(ctx, ctrl, store.New(e.client, quiet), e.cfg.SearchDebounce)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type loadDoneMsg struct {
	ticket viewmodel.Ticket
	videos []domain.Video
	err    error
}

type searchTickMsg struct{ seq int }

type videoUpdatedMsg struct {
	video  domain.Video
	opened bool
	err    error
}

type commentsMsg struct {
	videoID  string
	comments []domain.Comment
	err      error
}

// browseModel 只负责展示与按键映射；列表状态全部在 Controller 中。
//
// 约束：
// - 每次重新加载都先 Begin 取得 Ticket，结果经 Complete 提交；过期结果被丢弃
// - 搜索输入按 debounce 合并：只有最后一次按键后的计时器会提交搜索词
type browseModel struct {
	ctx      context.Context
	ctrl     *viewmodel.Controller
	store    *store.Store
	debounce time.Duration
	now      func() time.Time

	table     table.Model
	search    textinput.Model
	searching bool
	searchSeq int

	visible  []domain.Video
	detail   *domain.Video
	comments []domain.Comment
	status   string
}

func newBrowseModel(ctx context.Context, ctrl *viewmodel.Controller, st *store.Store, debounce time.Duration) browseModel {
	columns := []table.Column{
		{Title: "제목", Width: 34},
		{Title: "플랫폼", Width: 10},
		{Title: "그룹", Width: 12},
		{Title: "길이", Width: 8},
		{Title: "조회", Width: 7},
		{Title: "♥", Width: 6},
		{Title: "업로드", Width: 10},
	}
	tbl := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	tbl.SetStyles(table.DefaultStyles())

	in := textinput.New()
	in.Prompt = "검색: "
	in.Placeholder = "제목, 설명, 작성자"
	in.CharLimit = 100
	in.SetValue(ctrl.Snapshot().Query)

	return browseModel{
		ctx:      ctx,
		ctrl:     ctrl,
		store:    st,
		debounce: debounce,
		now:      time.Now,
		table:    tbl,
		search:   in,
	}
}

func (m browseModel) Init() tea.Cmd {
	return m.reload()
}

// reload 开始一次加载；结果以 loadDoneMsg 回到 Update。
func (m *browseModel) reload() tea.Cmd {
	t := m.ctrl.Begin()
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		videos, err := st.Load(ctx, t)
		return loadDoneMsg{ticket: t, videos: videos, err: err}
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case loadDoneMsg:
		if !m.ctrl.Complete(msg.ticket, msg.videos, msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.status = "加载失败，按 r 重试"
		} else {
			m.status = ""
		}
		m.syncTable()
		return m, nil
	case searchTickMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		m.ctrl.SetSearchQuery(m.search.Value())
		m.syncTable()
		return m, nil
	case videoUpdatedMsg:
		if msg.err != nil {
			m.status = "操作失败：" + truncate(msg.err.Error(), 80)
			return m, nil
		}
		m.ctrl.ApplyUpdate(msg.video)
		m.syncTable()
		if m.detail != nil && m.detail.ID == msg.video.ID {
			v := msg.video
			m.detail = &v
		}
		if msg.opened {
			v := msg.video
			m.detail = &v
			m.comments = nil
			return m, m.loadComments(v.ID)
		}
		return m, nil
	case commentsMsg:
		if m.detail == nil || m.detail.ID != msg.videoID {
			return m, nil
		}
		if msg.err != nil {
			m.status = "评论加载失败：" + truncate(msg.err.Error(), 80)
			return m, nil
		}
		m.comments = msg.comments
		return m, nil
	}

	if m.searching {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	if m.detail != nil {
		switch msg.String() {
		case "esc", "backspace", "q":
			m.detail = nil
			m.comments = nil
		case "l":
			return m, m.like(m.detail.ID)
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case "g":
		m.ctrl.SetSelectedGroup(nextGroup(m.ctrl.Snapshot().SelectedGroup))
		cmd := m.reload()
		m.syncTable()
		return m, cmd
	case "p":
		m.ctrl.UpdateFilters(func(f domain.FilterOptions) domain.FilterOptions {
			f.Platforms = nextPlatform(f.Platforms)
			return f
		})
	case "d":
		m.ctrl.UpdateFilters(func(f domain.FilterOptions) domain.FilterOptions {
			f.Duration = nextDuration(f.Duration)
			return f
		})
	case "s":
		m.ctrl.UpdateFilters(func(f domain.FilterOptions) domain.FilterOptions {
			f.SortBy = nextSort(f.SortBy)
			return f
		})
	case "c":
		m.searchSeq++
		m.search.SetValue("")
		m.ctrl.ClearFilters()
	case "r":
		m.status = ""
		cmd := m.reload()
		m.syncTable()
		return m, cmd
	case "l":
		if v, ok := m.selected(); ok {
			return m, m.like(v.ID)
		}
		return m, nil
	case "enter":
		if v, ok := m.selected(); ok {
			return m, m.open(v.ID)
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	m.syncTable()
	return m, nil
}

func (m browseModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.searching = false
		m.search.Blur()
		m.searchSeq++
		m.ctrl.SetSearchQuery(m.search.Value())
		m.syncTable()
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}

	m.searchSeq++
	if m.debounce <= 0 {
		m.ctrl.SetSearchQuery(m.search.Value())
		m.syncTable()
		return m, cmd
	}
	seq := m.searchSeq
	tick := tea.Tick(m.debounce, func(time.Time) tea.Msg { return searchTickMsg{seq: seq} })
	return m, tea.Batch(cmd, tick)
}

func (m *browseModel) like(id string) tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		v, err := st.Like(ctx, id)
		return videoUpdatedMsg{video: v, err: err}
	}
}

func (m *browseModel) open(id string) tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		v, err := st.View(ctx, id)
		return videoUpdatedMsg{video: v, opened: true, err: err}
	}
}

func (m *browseModel) loadComments(id string) tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		cs, err := st.Comments(ctx, id)
		return commentsMsg{videoID: id, comments: cs, err: err}
	}
}

func (m browseModel) selected() (domain.Video, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return domain.Video{}, false
	}
	return m.visible[idx], true
}

// syncTable 用控制器的可见列表重建表格行，并尽量保持光标停在同一个视频上。
func (m *browseModel) syncTable() {
	prev, hadPrev := m.selected()

	m.visible = m.ctrl.Visible()
	now := m.now()
	rows := make([]table.Row, 0, len(m.visible))
	cursor := 0
	for i, v := range m.visible {
		rows = append(rows, table.Row{
			truncate(v.Title, 34),
			string(v.Platform()),
			orDash(v.Group),
			orDash(v.Duration),
			stats.FormatCount(v.Views),
			stats.FormatCount(v.Likes),
			domain.Humanize(v.CreatedAt, now),
		})
		if hadPrev && v.ID == prev.ID {
			cursor = i
		}
	}
	m.table.SetRows(rows)
	m.table.SetCursor(cursor)
}

func (m browseModel) View() string {
	v := m.ctrl.Snapshot()
	var b strings.Builder

	group := v.SelectedGroup
	if !domain.IsGroupSelected(group) {
		group = domain.AllGroups
	}
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render("CloseTube"), accentStyle.Render(group))

	if m.detail != nil {
		var d strings.Builder
		now := m.now()
		renderVideo(&d, *m.detail, now)
		renderComments(&d, m.comments, now)
		b.WriteString(d.String())
		b.WriteString(mutedStyle.Render("l 点赞 · esc 返回"))
		return b.String()
	}

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	} else if s := filterSummary(v); s != "" {
		b.WriteString(accentStyle.Render(s))
		b.WriteString("\n")
	}

	if len(m.visible) > 0 {
		b.WriteString(boxStyle.Render(m.table.View()))
		b.WriteString("\n")
	}
	if s := stateLine(v); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(errStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("/ 搜索 · g 分组 · p 平台 · d 时长 · s 排序 · c 清除 · r 刷新 · l 点赞 · enter 详情 · q 退出"))
	return b.String()
}

// nextGroup 按 全部 → 预置分组 → 全部 循环。
func nextGroup(cur string) string {
	if !domain.IsGroupSelected(cur) {
		return domain.KnownGroups[0]
	}
	for i, g := range domain.KnownGroups {
		if g == cur && i+1 < len(domain.KnownGroups) {
			return domain.KnownGroups[i+1]
		}
	}
	return ""
}

// nextPlatform 在 不限 → 单个平台 → 不限 之间循环（多选只在 list 命令中提供）。
func nextPlatform(cur []domain.Platform) []domain.Platform {
	known := domain.KnownPlatforms()
	if len(cur) == 0 {
		return []domain.Platform{known[0]}
	}
	for i, p := range known {
		if p == cur[0] && i+1 < len(known) {
			return []domain.Platform{known[i+1]}
		}
	}
	return []domain.Platform{}
}

func nextDuration(cur domain.DurationBucket) domain.DurationBucket {
	switch cur {
	case domain.DurationShort:
		return domain.DurationMedium
	case domain.DurationMedium:
		return domain.DurationLong
	case domain.DurationLong:
		return domain.DurationAll
	default:
		return domain.DurationShort
	}
}

func nextSort(cur domain.SortKey) domain.SortKey {
	keys := domain.SortKeys()
	for i, k := range keys {
		if k == cur {
			return keys[(i+1)%len(keys)]
		}
	}
	return keys[0]
}
