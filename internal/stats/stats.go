package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/John-Robertt/closetube/internal/domain"
)

// ActivityDays 是“最近活动”覆盖的天数（含今天）。
const ActivityDays = 7

// DefaultTopN 是热门视频榜的默认长度。
const DefaultTopN = 5

// Report 是统计面板的稳定输出（stdout JSON / stats --out 文件）。
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	Totals Totals `json:"totals"`

	Platforms []Bucket   `json:"platforms"`
	Groups    []Bucket   `json:"groups"`
	Activity  []DayCount `json:"activity"`
	Top       []TopVideo `json:"top"`
}

type Totals struct {
	Videos   int   `json:"videos"`
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	// AvgViews 是 views/videos 四舍五入后的整数；没有视频时为 0。
	AvgViews int64 `json:"avg_views"`
	// Duration 是所有可解析时长之和，以 h:mm:ss / m:ss 展示。
	Duration string `json:"duration"`
	// UnknownDuration 是时长无法解析的视频数。
	UnknownDuration int `json:"unknown_duration"`
}

// Bucket 是分布中的一项。
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DayCount 是某一天（UTC，YYYY-MM-DD）新增的视频数。
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type TopVideo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Views int64  `json:"views"`
	Likes int64  `json:"likes"`
}

// Compute 从视频列表计算统计报告。
//
// 约束：
// - 输入列表不被修改
// - 分布按数量降序、同数量按标签字典序；平台分布固定包含三个已知平台（Unknown 仅在出现时列出）
// - 最近活动从最早一天到今天排列；createdAt 未知的视频不计入
// - 热门榜按 views 降序，同 views 保持输入顺序
func Compute(videos []domain.Video, now time.Time, topN int) Report {
	now = now.UTC()
	r := Report{GeneratedAt: now}

	var total time.Duration
	platforms := map[string]int{}
	for _, p := range domain.KnownPlatforms() {
		platforms[string(p)] = 0
	}
	groups := map[string]int{}
	for _, v := range videos {
		r.Totals.Videos++
		r.Totals.Views += v.Views
		r.Totals.Likes += v.Likes
		r.Totals.Comments += v.Comments

		if d, ok := domain.ParseDuration(v.Duration); ok {
			total += d
		} else {
			r.Totals.UnknownDuration++
		}

		platforms[string(v.Platform())]++
		g := strings.TrimSpace(v.Group)
		if g == "" {
			g = "-"
		}
		groups[g]++
	}
	if r.Totals.Videos > 0 {
		r.Totals.AvgViews = int64(math.Round(float64(r.Totals.Views) / float64(r.Totals.Videos)))
	}
	r.Totals.Duration = domain.FormatDuration(total)

	r.Platforms = buckets(platforms)
	r.Groups = buckets(groups)
	r.Activity = activity(videos, now)
	r.Top = top(videos, topN)
	return r
}

// Percent 返回 count 占全部视频的百分比；没有视频时为 0。
func (r Report) Percent(count int) float64 {
	if r.Totals.Videos == 0 {
		return 0
	}
	return float64(count) / float64(r.Totals.Videos) * 100
}

func buckets(m map[string]int) []Bucket {
	out := make([]Bucket, 0, len(m))
	for k, n := range m {
		if k == string(domain.PlatformUnknown) && n == 0 {
			continue
		}
		out = append(out, Bucket{Label: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func activity(videos []domain.Video, now time.Time) []DayCount {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]DayCount, ActivityDays)
	index := make(map[string]int, ActivityDays)
	for i := 0; i < ActivityDays; i++ {
		day := today.AddDate(0, 0, i-(ActivityDays-1)).Format("2006-01-02")
		out[i] = DayCount{Date: day}
		index[day] = i
	}
	for _, v := range videos {
		if v.CreatedAt.IsZero() {
			continue
		}
		if i, ok := index[v.CreatedAt.UTC().Format("2006-01-02")]; ok {
			out[i].Count++
		}
	}
	return out
}

func top(videos []domain.Video, n int) []TopVideo {
	if n <= 0 {
		n = DefaultTopN
	}
	sorted := domain.CloneVideos(videos)
	domain.SortVideos(sorted, domain.SortViews)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]TopVideo, 0, len(sorted))
	for _, v := range sorted {
		out = append(out, TopVideo{ID: v.ID, Title: v.Title, Views: v.Views, Likes: v.Likes})
	}
	return out
}

// FormatCount 以 1.2K / 3.4M 的形式展示计数。
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
