package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/closetube/internal/config"
	"github.com/John-Robertt/closetube/internal/domain"
	"github.com/John-Robertt/closetube/internal/stats"
	"github.com/John-Robertt/closetube/internal/viewmodel"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

// platformBadge 给平台名上色（与 Web 端的品牌色一致）。
func platformBadge(p domain.Platform) string {
	color := "244"
	switch p {
	case domain.PlatformYouTube:
		color = "196"
	case domain.PlatformInstagram:
		color = "205"
	case domain.PlatformTikTok:
		color = "51"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(p))
}

// stateLine 描述加载状态；Loaded 返回计数摘要。
func stateLine(v viewmodel.View) string {
	switch v.State {
	case viewmodel.StateLoading:
		return mutedStyle.Render("불러오는 중…")
	case viewmodel.StateEmpty:
		return mutedStyle.Render("아직 공유된 영상이 없습니다")
	case viewmodel.StateError:
		return errStyle.Render("영상을 불러오지 못했습니다：" + truncate(v.Error, 120))
	case viewmodel.StateIdle:
		return ""
	}
	if len(v.Visible) == 0 {
		return mutedStyle.Render(fmt.Sprintf("没有符合条件的视频（共 %d 个）", v.Total))
	}
	return mutedStyle.Render(fmt.Sprintf("显示 %d / %d", len(v.Visible), v.Total))
}

// filterSummary 列出生效中的搜索与筛选；全为默认时返回空串。
func filterSummary(v viewmodel.View) string {
	var parts []string
	if q := strings.TrimSpace(v.Query); q != "" {
		parts = append(parts, fmt.Sprintf("搜索=%q", q))
	}
	if domain.IsGroupSelected(v.SelectedGroup) {
		parts = append(parts, "分组="+v.SelectedGroup)
	} else if len(v.Filters.Groups) > 0 {
		parts = append(parts, "分组∈"+strings.Join(v.Filters.Groups, ","))
	}
	if len(v.Filters.Platforms) > 0 {
		ps := make([]string, 0, len(v.Filters.Platforms))
		for _, p := range v.Filters.Platforms {
			ps = append(ps, string(p))
		}
		parts = append(parts, "平台="+strings.Join(ps, ","))
	}
	if v.Filters.Duration != "" && v.Filters.Duration != domain.DurationAll {
		parts = append(parts, "时长="+string(v.Filters.Duration))
	}
	if v.Filters.SortBy != "" && v.Filters.SortBy != domain.SortLatest {
		parts = append(parts, "排序="+string(v.Filters.SortBy))
	}
	return strings.Join(parts, "  ")
}

func renderList(w io.Writer, v viewmodel.View, now time.Time) {
	if s := filterSummary(v); s != "" {
		fmt.Fprintln(w, accentStyle.Render(s))
	}
	for _, x := range v.Visible {
		fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(truncate(x.Title, 60)), mutedStyle.Render(x.ID))
		fmt.Fprintf(w, "  %s · %s · %s · 조회 %s · ♥ %s · %s\n",
			platformBadge(x.Platform()),
			orDash(x.Group),
			orDash(x.Duration),
			stats.FormatCount(x.Views),
			stats.FormatCount(x.Likes),
			domain.Humanize(x.CreatedAt, now),
		)
	}
	if s := stateLine(v); s != "" {
		fmt.Fprintln(w, s)
	}
}

func renderVideo(w io.Writer, v domain.Video, now time.Time) {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render(v.Title))
	if d := strings.TrimSpace(v.Description); d != "" {
		fmt.Fprintln(&b, d)
	}
	fmt.Fprintf(&b, "%s · %s · %s\n", platformBadge(v.Platform()), orDash(v.Group), orDash(v.Duration))
	fmt.Fprintf(&b, "作者 %s · %s\n", orDash(v.Author), domain.Humanize(v.CreatedAt, now))
	fmt.Fprintf(&b, "조회 %s · ♥ %s · 댓글 %s\n", stats.FormatCount(v.Views), stats.FormatCount(v.Likes), stats.FormatCount(v.Comments))
	fmt.Fprintf(&b, "%s\n", v.URL)
	var flags []string
	if v.Privacy.DownloadDisabled {
		flags = append(flags, "禁止下载")
	}
	if v.Privacy.ExternalShareDisabled {
		flags = append(flags, "禁止外部分享")
	}
	if len(flags) > 0 {
		fmt.Fprint(&b, mutedStyle.Render(strings.Join(flags, " · ")))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderComments(w io.Writer, cs []domain.Comment, now time.Time) {
	if len(cs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("아직 댓글이 없습니다"))
		return
	}
	for _, c := range cs {
		fmt.Fprintf(w, "%s %s  %s\n", accentStyle.Render(orDash(c.AuthorAvatar)), titleStyle.Render(c.Author), mutedStyle.Render(domain.Humanize(c.CreatedAt, now)))
		fmt.Fprintf(w, "  %s\n", c.Text)
	}
}

func renderPreview(w io.Writer, p domain.LinkPreview) {
	fmt.Fprintf(w, "%s  %s\n", platformBadge(p.Platform), titleStyle.Render(orDash(p.Title)))
	if p.Description != "" {
		fmt.Fprintf(w, "  %s\n", truncate(p.Description, 160))
	}
	fmt.Fprintf(w, "  作者：%s  时长：%s\n", orDash(p.Author), orDash(p.Duration))
	fmt.Fprintf(w, "  缩略图：%s\n", orDash(p.Thumbnail))
}

func renderStats(w io.Writer, r stats.Report) {
	t := r.Totals
	fmt.Fprintln(w, boxStyle.Render(fmt.Sprintf("视频 %d · 조회 %s · ♥ %s · 댓글 %s\n平均观看 %s · 总时长 %s",
		t.Videos, stats.FormatCount(t.Views), stats.FormatCount(t.Likes), stats.FormatCount(t.Comments),
		stats.FormatCount(t.AvgViews), t.Duration,
	)))

	fmt.Fprintln(w, titleStyle.Render("平台分布"))
	for _, b := range r.Platforms {
		fmt.Fprintf(w, "  %-10s %s %3d (%.0f%%)\n", b.Label, bar(b.Count, t.Videos, 20), b.Count, r.Percent(b.Count))
	}
	fmt.Fprintln(w, titleStyle.Render("分组分布"))
	for _, b := range r.Groups {
		fmt.Fprintf(w, "  %s %s %d\n", b.Label, bar(b.Count, t.Videos, 20), b.Count)
	}
	fmt.Fprintln(w, titleStyle.Render("最近 7 天"))
	for _, d := range r.Activity {
		fmt.Fprintf(w, "  %s %s\n", d.Date, strings.Repeat("▇", d.Count))
	}
	fmt.Fprintln(w, titleStyle.Render("热门"))
	for i, v := range r.Top {
		fmt.Fprintf(w, "  %d. %s  조회 %s\n", i+1, truncate(v.Title, 50), stats.FormatCount(v.Views))
	}
	if t.UnknownDuration > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d 个视频的时长无法解析，未计入总时长", t.UnknownDuration)))
	}
}

func renderPing(w io.Writer, res pingResult, cfg config.EffectiveConfig) {
	fmt.Fprintf(w, "%s %s (%s)\n", okStyle.Render(res.Status), res.APIURL, formatShortDuration(time.Duration(res.LatencyMS)*time.Millisecond))
	fmt.Fprintf(w, "  proxy: %s\n", formatProxy(cfg.ProxyURL))
	fmt.Fprintf(w, "  timeout: %s\n", cfg.Timeout)
	if len(res.Sources) > 0 {
		fmt.Fprintf(w, "  config: %s\n", strings.Join(res.Sources, ", "))
	}
}

func bar(n, total, width int) string {
	if total <= 0 || width <= 0 {
		return strings.Repeat("░", width)
	}
	filled := n * width / total
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// formatProxy 只展示 scheme://host 与是否带认证，不回显密码。
func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

// truncate 按字符（不是字节）截断，避免切坏多字节文字。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
