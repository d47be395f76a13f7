package domain

import "strings"

// Platform 是由视频 URL 推断出的托管平台。
type Platform string

const (
	PlatformYouTube   Platform = "YouTube"
	PlatformInstagram Platform = "Instagram"
	PlatformTikTok    Platform = "TikTok"
	PlatformUnknown   Platform = "Unknown"
)

// KnownPlatforms 返回可供筛选的平台（固定顺序）。
func KnownPlatforms() []Platform {
	return []Platform{PlatformYouTube, PlatformInstagram, PlatformTikTok}
}

// ClassifyPlatform 按子串判定平台：大小写敏感，对原始 URL 匹配，不做规范化。
// 纯函数且全定义（任何输入都有结果）。
func ClassifyPlatform(url string) Platform {
	switch {
	case strings.Contains(url, "youtube.com"), strings.Contains(url, "youtu.be"):
		return PlatformYouTube
	case strings.Contains(url, "instagram.com"):
		return PlatformInstagram
	case strings.Contains(url, "tiktok.com"):
		return PlatformTikTok
	default:
		return PlatformUnknown
	}
}

// ParsePlatform 把用户输入映射到平台（忽略大小写）。
func ParsePlatform(s string) (Platform, bool) {
	s = strings.TrimSpace(s)
	for _, p := range KnownPlatforms() {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}
