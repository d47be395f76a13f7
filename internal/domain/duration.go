package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DurationBucket 是按播放时长的粗粒度筛选项。
type DurationBucket string

const (
	DurationAll    DurationBucket = "all"
	DurationShort  DurationBucket = "short"  // ≤ 1 分钟
	DurationMedium DurationBucket = "medium" // 1–10 分钟
	DurationLong   DurationBucket = "long"   // ≥ 10 分钟
)

func ParseDurationBucket(s string) (DurationBucket, bool) {
	switch b := DurationBucket(strings.ToLower(strings.TrimSpace(s))); b {
	case DurationAll, DurationShort, DurationMedium, DurationLong:
		return b, true
	case "":
		return DurationAll, true
	default:
		return "", false
	}
}

// Contains 判断时长是否落在桶内。known=false（时长无法解析）时只有 all 命中。
func (b DurationBucket) Contains(d time.Duration, known bool) bool {
	if b == DurationAll || b == "" {
		return true
	}
	if !known {
		return false
	}
	switch b {
	case DurationShort:
		return d <= time.Minute
	case DurationMedium:
		return d > time.Minute && d < 10*time.Minute
	case DurationLong:
		return d >= 10*time.Minute
	default:
		return false
	}
}

var isoDurationRE = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration 解析展示用时长：m:ss、h:mm:ss，或 ISO-8601 的 PT#H#M#S。
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if m := isoDurationRE.FindStringSubmatch(strings.ToUpper(s)); m != nil {
		if m[1] == "" && m[2] == "" && m[3] == "" {
			return 0, false
		}
		var (
			d  time.Duration
			ok bool
		)
		for i, unit := range []time.Duration{time.Hour, time.Minute, time.Second} {
			if m[i+1] == "" {
				continue
			}
			n, err := strconv.Atoi(m[i+1])
			if err != nil {
				return 0, false
			}
			if d, ok = addUnits(d, n, unit); !ok {
				return 0, false
			}
		}
		return d, true
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		// 除首段外，分/秒必须 < 60。
		if i > 0 && n >= 60 {
			return 0, false
		}
		nums[i] = n
	}
	units := []time.Duration{time.Minute, time.Second}
	if len(nums) == 3 {
		units = []time.Duration{time.Hour, time.Minute, time.Second}
	}
	var d time.Duration
	for i, unit := range units {
		var ok bool
		if d, ok = addUnits(d, nums[i], unit); !ok {
			return 0, false
		}
	}
	return d, true
}

// addUnits 返回 d + n*unit；结果超出 time.Duration 范围时 ok=false。
func addUnits(d time.Duration, n int, unit time.Duration) (time.Duration, bool) {
	if n < 0 || int64(n) > (math.MaxInt64-int64(d))/int64(unit) {
		return 0, false
	}
	return d + time.Duration(n)*unit, true
}

// FormatDuration 渲染为 m:ss 或 h:mm:ss。
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
