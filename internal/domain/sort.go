package domain

import (
	"sort"
	"strings"
)

// SortKey 选择可见列表的排序方式。
type SortKey string

const (
	SortLatest SortKey = "latest"
	SortOldest SortKey = "oldest"
	SortViews  SortKey = "views"
	SortLikes  SortKey = "likes"
)

// SortKeys 返回所有已知排序键（界面循环切换的顺序）。
func SortKeys() []SortKey {
	return []SortKey{SortLatest, SortOldest, SortViews, SortLikes}
}

func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortLatest, SortOldest, SortViews, SortLikes:
		return k, true
	default:
		return "", false
	}
}

// Compare 返回 a 与 b 在该排序键下的先后：<0 表示 a 在前，0 表示不重排。
// 未知键恒返回 0；CreatedAt 为零值（未知时间）时视为最早。
func (k SortKey) Compare(a, b Video) int {
	switch k {
	case SortLatest:
		return -compareTime(a, b)
	case SortOldest:
		return compareTime(a, b)
	case SortViews:
		return -compareInt(a.Views, b.Views)
	case SortLikes:
		return -compareInt(a.Likes, b.Likes)
	default:
		return 0
	}
}

// SortVideos 原地稳定排序；相等元素保持输入顺序。
func SortVideos(videos []Video, key SortKey) {
	sort.SliceStable(videos, func(i, j int) bool {
		return key.Compare(videos[i], videos[j]) < 0
	})
}

func compareTime(a, b Video) int {
	switch {
	case a.CreatedAt.Before(b.CreatedAt):
		return -1
	case a.CreatedAt.After(b.CreatedAt):
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
