package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/closetube/internal/domain"
)

const maxPageBytes = 4 << 20

// Resolve 抓取视频页面并解析出预览信息（用于上传表单自动填充）。
//
// 约束：
// - 只接受可识别平台的 http/https 链接
// - 不做缓存、不做重试（重试由 httpx 传输层统一处理）
func Resolve(ctx context.Context, c *http.Client, rawURL string) (domain.LinkPreview, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := domain.ValidateVideoURL(rawURL); err != nil {
		return domain.LinkPreview{}, err
	}
	html, pageURL, err := Fetch(ctx, c, rawURL)
	if err != nil {
		return domain.LinkPreview{}, err
	}
	p, err := Parse(html, pageURL)
	if err != nil {
		return domain.LinkPreview{}, err
	}
	// 以用户输入的链接为准（页面可能跳转到带追踪参数的地址）。
	p.URL = rawURL
	p.Platform = domain.ClassifyPlatform(rawURL)
	if p.Thumbnail == "" {
		p.Thumbnail = FallbackThumbnail(rawURL)
	}
	return p, nil
}

// Fetch 下载页面 HTML，返回最终落地的 URL（跟随重定向之后）。
func Fetch(ctx context.Context, c *http.Client, pageURL string) ([]byte, string, error) {
	if c == nil {
		return nil, "", errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")

	resp, err := c.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	if reason := blockedReason(finalURL); reason != "" {
		return nil, finalURL, &BlockedError{URL: finalURL, Reason: reason}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, finalURL, &HTTPStatusError{URL: pageURL, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, finalURL, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, finalURL, errors.New("empty response body")
	}
	return b, finalURL, nil
}

// blockedReason 识别登录墙/同意页（不尝试绕过）。
func blockedReason(finalURL string) string {
	u, err := url.Parse(finalURL)
	if err != nil {
		return ""
	}
	switch {
	case strings.HasPrefix(u.Host, "consent."):
		return "consent"
	case strings.Contains(u.Path, "/accounts/login"), strings.HasPrefix(u.Path, "/login"):
		return "login"
	default:
		return ""
	}
}

// Parse 从页面 HTML 中提取预览信息（纯函数：相同输入得到相同输出）。
//
// 优先级：
// - 标题：og:title > twitter:title > <title>
// - 缩略图：og:image > twitter:image
// - 时长：itemprop=duration（ISO-8601）> og:video:duration（秒）
// - 作者：itemprop=author 下的 name > meta[name=author]
func Parse(html []byte, pageURL string) (domain.LinkPreview, error) {
	if len(html) == 0 {
		return domain.LinkPreview{}, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.LinkPreview{}, err
	}

	title := firstNonEmpty(
		metaContent(doc, "property", "og:title"),
		metaContent(doc, "name", "twitter:title"),
		trimSiteSuffix(normSpace(doc.Find("title").First().Text())),
	)
	if title == "" {
		return domain.LinkPreview{}, errors.New("未找到标题（疑似登录页/非视频页面）")
	}

	p := domain.LinkPreview{
		URL:      strings.TrimSpace(pageURL),
		Platform: domain.ClassifyPlatform(pageURL),
		Title:    title,
		Description: firstNonEmpty(
			metaContent(doc, "property", "og:description"),
			metaContent(doc, "name", "description"),
		),
		Author: firstNonEmpty(
			itempropAuthor(doc),
			metaContent(doc, "name", "author"),
		),
	}

	if img := firstNonEmpty(
		metaContent(doc, "property", "og:image"),
		metaContent(doc, "name", "twitter:image"),
	); img != "" {
		p.Thumbnail = resolveURL(pageURL, img)
	}

	if d, ok := domain.ParseDuration(metaContent(doc, "itemprop", "duration")); ok {
		p.Duration = domain.FormatDuration(d)
	} else if secs, err := strconv.Atoi(metaContent(doc, "property", "og:video:duration")); err == nil && secs > 0 {
		p.Duration = domain.FormatDuration(time.Duration(secs) * time.Second)
	}
	return p, nil
}

// FallbackThumbnail 为 YouTube 链接推导缩略图地址；其它平台返回空串。
func FallbackThumbnail(videoURL string) string {
	id := YouTubeID(videoURL)
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", id)
}

// YouTubeID 从 watch?v=、youtu.be/、/shorts/、/embed/ 形式的链接中提取视频 id。
func YouTubeID(videoURL string) string {
	u, err := url.Parse(strings.TrimSpace(videoURL))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id = strings.TrimPrefix(u.Path, prefix)
				break
			}
		}
	}
	if i := strings.IndexAny(id, "/?&"); i >= 0 {
		id = id[:i]
	}
	if !validYouTubeID(id) {
		return ""
	}
	return id
}

func validYouTubeID(id string) bool {
	if len(id) < 6 || len(id) > 20 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func metaContent(doc *goquery.Document, attr, key string) string {
	var out string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		if !ok || !strings.EqualFold(strings.TrimSpace(v), key) {
			return true
		}
		c, _ := s.Attr("content")
		if c = normSpace(c); c != "" {
			out = c
			return false
		}
		return true
	})
	return out
}

func itempropAuthor(doc *goquery.Document) string {
	author := doc.Find("[itemprop='author']").First()
	if author.Length() == 0 {
		return ""
	}
	if v, ok := author.Find("[itemprop='name']").First().Attr("content"); ok {
		return normSpace(v)
	}
	return normSpace(author.Find("[itemprop='name']").First().Text())
}

// trimSiteSuffix 去掉 <title> 末尾的站点名，例如 "xxx - YouTube"。
func trimSiteSuffix(s string) string {
	for _, suffix := range []string{" - YouTube", " | TikTok", " • Instagram", " | Instagram"} {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(s, suffix))
		}
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
