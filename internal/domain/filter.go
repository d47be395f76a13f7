package domain

import "strings"

// AllGroups 是主分组选择器上的“全部”，等价于不限制分组。
const AllGroups = "전체"

// KnownGroups 是界面上预置的分组标签（集合本身是开放的）。
var KnownGroups = []string{"가족", "친구들", "팀 프로젝트", "일상", "요리", "힐링", "엔터테인먼트", "라이프스타일"}

// FilterOptions 是搜索栏的高级筛选状态（临时 UI 状态，不持久化）。
type FilterOptions struct {
	Platforms []Platform     `json:"platform"`
	Duration  DurationBucket `json:"duration"`
	Groups    []string       `json:"group"`
	SortBy    SortKey        `json:"sortBy"`
}

// DefaultFilterOptions 返回默认值：不限平台/分组/时长，按最新排序。
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		Platforms: []Platform{},
		Duration:  DurationAll,
		Groups:    []string{},
		SortBy:    SortLatest,
	}
}

// HasActive 报告是否偏离默认值（用于“已应用筛选”提示）。
func (f FilterOptions) HasActive() bool {
	return len(f.Platforms) > 0 ||
		(f.Duration != DurationAll && f.Duration != "") ||
		len(f.Groups) > 0 ||
		(f.SortBy != SortLatest && f.SortBy != "")
}

// Clone 深拷贝切片字段，保证调用方修改不会影响已提交的筛选状态。
func (f FilterOptions) Clone() FilterOptions {
	out := f
	out.Platforms = append([]Platform{}, f.Platforms...)
	out.Groups = append([]string{}, f.Groups...)
	return out
}

// Normalize 去掉空值与重复项（保持首次出现顺序），并补齐空的 Duration/SortBy。
func (f FilterOptions) Normalize() FilterOptions {
	out := FilterOptions{Duration: f.Duration, SortBy: f.SortBy}
	if out.Duration == "" {
		out.Duration = DurationAll
	}
	if out.SortBy == "" {
		out.SortBy = SortLatest
	}

	out.Platforms = make([]Platform, 0, len(f.Platforms))
	seenP := make(map[Platform]struct{}, len(f.Platforms))
	for _, p := range f.Platforms {
		if p == "" {
			continue
		}
		if _, ok := seenP[p]; ok {
			continue
		}
		seenP[p] = struct{}{}
		out.Platforms = append(out.Platforms, p)
	}

	out.Groups = make([]string, 0, len(f.Groups))
	seenG := make(map[string]struct{}, len(f.Groups))
	for _, g := range f.Groups {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seenG[g]; ok {
			continue
		}
		seenG[g] = struct{}{}
		out.Groups = append(out.Groups, g)
	}
	return out
}

// TogglePlatform 返回切换了 p 之后的新筛选值（原值不变）。
func (f FilterOptions) TogglePlatform(p Platform) FilterOptions {
	out := f.Clone()
	for i, x := range out.Platforms {
		if x == p {
			out.Platforms = append(out.Platforms[:i], out.Platforms[i+1:]...)
			return out
		}
	}
	out.Platforms = append(out.Platforms, p)
	return out
}

// ToggleGroup 返回切换了分组 g 之后的新筛选值（原值不变）。
func (f FilterOptions) ToggleGroup(g string) FilterOptions {
	out := f.Clone()
	for i, x := range out.Groups {
		if x == g {
			out.Groups = append(out.Groups[:i], out.Groups[i+1:]...)
			return out
		}
	}
	out.Groups = append(out.Groups, g)
	return out
}

// IsGroupSelected 判断主分组选择器是否处于“有选择”的状态。
func IsGroupSelected(selectedGroup string) bool {
	g := strings.TrimSpace(selectedGroup)
	return g != "" && g != AllGroups
}

// EffectiveGroups 把两个分组选择器合并为一个“允许的分组集合”：
// 主选择器有值时视为单元素集合并覆盖高级筛选；否则使用高级筛选的集合。
// nil 表示不限制。
func EffectiveGroups(selectedGroup string, f FilterOptions) []string {
	if IsGroupSelected(selectedGroup) {
		return []string{strings.TrimSpace(selectedGroup)}
	}
	if len(f.Groups) == 0 {
		return nil
	}
	return f.Groups
}

// Match 判断单个视频是否出现在可见列表中（纯谓词，无副作用）。
//
// 全部满足才算命中：
// - 文本：query 非空时，title/description/author 之一包含 query（忽略大小写）
// - 分组：video.Group 属于 EffectiveGroups
// - 平台：filters.Platforms 非空时，ClassifyPlatform(url) 必须在集合内
// - 时长：filters.Duration 对应的桶包含该视频时长
func Match(v Video, query, selectedGroup string, f FilterOptions) bool {
	return NewMatcher(query, selectedGroup, f).Match(v)
}

// Matcher 预先规整好查询与集合，便于对整份列表重复求值。
type Matcher struct {
	query     string
	groups    map[string]struct{}
	platforms map[Platform]struct{}
	duration  DurationBucket
}

func NewMatcher(query, selectedGroup string, f FilterOptions) Matcher {
	m := Matcher{
		query:    strings.ToLower(strings.TrimSpace(query)),
		duration: f.Duration,
	}
	if gs := EffectiveGroups(selectedGroup, f); gs != nil {
		m.groups = make(map[string]struct{}, len(gs))
		for _, g := range gs {
			m.groups[g] = struct{}{}
		}
	}
	if len(f.Platforms) > 0 {
		m.platforms = make(map[Platform]struct{}, len(f.Platforms))
		for _, p := range f.Platforms {
			m.platforms[p] = struct{}{}
		}
	}
	return m
}

func (m Matcher) Match(v Video) bool {
	if m.query != "" &&
		!strings.Contains(strings.ToLower(v.Title), m.query) &&
		!strings.Contains(strings.ToLower(v.Description), m.query) &&
		!strings.Contains(strings.ToLower(v.Author), m.query) {
		return false
	}
	if m.groups != nil {
		if _, ok := m.groups[v.Group]; !ok {
			return false
		}
	}
	if m.platforms != nil {
		if _, ok := m.platforms[ClassifyPlatform(v.URL)]; !ok {
			return false
		}
	}
	if m.duration != DurationAll && m.duration != "" {
		d, ok := ParseDuration(v.Duration)
		if !m.duration.Contains(d, ok) {
			return false
		}
	}
	return true
}

// FilterVideos 返回命中的子集（新切片，输入不变）。
func FilterVideos(videos []Video, m Matcher) []Video {
	out := make([]Video, 0, len(videos))
	for _, v := range videos {
		if m.Match(v) {
			out = append(out, v)
		}
	}
	return out
}
