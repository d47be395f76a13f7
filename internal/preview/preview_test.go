package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/closetube/internal/domain"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func TestParse_YouTubeFixture(t *testing.T) {
	p, err := Parse(readFixture(t, "youtube.html"), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if p.Title != "가족 여행 하이라이트" {
		t.Fatalf("标题不正确：%q", p.Title)
	}
	if p.Description != "올해 여름 가족과 함께한 특별한 여행" {
		t.Fatalf("描述应规整空白：%q", p.Description)
	}
	if p.Duration != "3:24" {
		t.Fatalf("时长不正确：%q", p.Duration)
	}
	if p.Author != "엄마" {
		t.Fatalf("作者不正确：%q", p.Author)
	}
	if p.Platform != domain.PlatformYouTube {
		t.Fatalf("平台不正确：%s", p.Platform)
	}
	if p.Thumbnail != "" {
		t.Fatalf("页面没有 og:image 时 Parse 不应自行推导缩略图：%q", p.Thumbnail)
	}
}

func TestParse_TikTokFixtureFallbacks(t *testing.T) {
	p, err := Parse(readFixture(t, "tiktok.html"), "https://www.tiktok.com/@family/video/1")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if p.Title != "동생 생일 파티" {
		t.Fatalf("应回退到 twitter:title：%q", p.Title)
	}
	if p.Thumbnail != "https://p16-sign.tiktokcdn.com/cover/abc.jpeg" {
		t.Fatalf("协议相对地址应补全为 https：%q", p.Thumbnail)
	}
	if p.Duration != "0:48" {
		t.Fatalf("应回退到 og:video:duration：%q", p.Duration)
	}
	if p.Author != "아빠" {
		t.Fatalf("应回退到 meta author：%q", p.Author)
	}
}

func TestParse_TitleTagFallbackAndDeterminism(t *testing.T) {
	html := []byte(`<html><head><title>  파스타   만들기 - YouTube </title></head></html>`)
	a, err := Parse(html, "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if a.Title != "파스타 만들기" {
		t.Fatalf("应去掉站点后缀：%q", a.Title)
	}
	b, _ := Parse(html, "https://youtu.be/abcdefghijk")
	if a != b {
		t.Fatalf("Parse 应为纯函数：%+v vs %+v", a, b)
	}
}

func TestParse_LoginPageFails(t *testing.T) {
	if _, err := Parse(readFixture(t, "login.html"), "https://www.instagram.com/reel/x/"); err == nil {
		t.Fatalf("登录页应解析失败")
	}
	if _, err := Parse(nil, "https://www.instagram.com/reel/x/"); err == nil {
		t.Fatalf("空 html 应报错")
	}
}

func TestYouTubeID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":      "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?t=10":                "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ&list=x": "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":       "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":        "dQw4w9WgXcQ",
		"https://www.youtube.com/":                         "",
		"https://www.tiktok.com/@u/video/1":                "",
		"https://youtu.be/bad id!":                         "",
	}
	for in, want := range cases {
		if got := YouTubeID(in); got != want {
			t.Fatalf("YouTubeID(%q) 期望 %q，实际 %q", in, want, got)
		}
	}
	if got := FallbackThumbnail("https://youtu.be/dQw4w9WgXcQ"); got != "https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Fatalf("缩略图回退不正确：%q", got)
	}
}

// rewriteTransport 把所有请求改写到测试服务器，保留原始路径与查询。
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	r2.URL.Scheme = rt.target.Scheme
	r2.URL.Host = rt.target.Host
	r2.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r2)
}

func newRewriteClient(t *testing.T, h http.Handler) *http.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	return &http.Client{Transport: rewriteTransport{target: u}}
}

func TestResolve_FillsFallbackThumbnail(t *testing.T) {
	page := readFixture(t, "youtube.html")
	c := newRewriteClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "dQw4w9WgXcQ" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}))

	raw := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	p, err := Resolve(context.Background(), c, raw)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if p.URL != raw {
		t.Fatalf("URL 应保持用户输入：%q", p.URL)
	}
	if p.Thumbnail != "https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Fatalf("应使用 YouTube 缩略图回退：%q", p.Thumbnail)
	}

	form := p.ApplyTo(domain.NewUploadData())
	if form.Title != "가족 여행 하이라이트" || form.Duration != "3:24" {
		t.Fatalf("自动填充不正确：%+v", form)
	}
}

func TestResolve_RejectsUnknownPlatform(t *testing.T) {
	_, err := Resolve(context.Background(), http.DefaultClient, "https://vimeo.com/1")
	if !domain.IsValidation(err) {
		t.Fatalf("未知平台应返回校验错误，实际 %v", err)
	}
}

func TestFetch_StatusAndBlocked(t *testing.T) {
	c := newRewriteClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reel/private/":
			http.Redirect(w, r, "/accounts/login/?next=/reel/private/", http.StatusFound)
		case "/accounts/login/":
			_, _ = w.Write([]byte("<html><title>Login</title></html>"))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))

	_, _, err := Fetch(context.Background(), c, "https://www.instagram.com/reel/private/")
	var be *BlockedError
	if !errors.As(err, &be) || be.Reason != "login" {
		t.Fatalf("期望 BlockedError(login)，实际 %v", err)
	}

	_, _, err = Fetch(context.Background(), c, "https://www.tiktok.com/@u/video/1")
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("期望 HTTP 429，实际 %v", err)
	}

	if _, _, err := Fetch(context.Background(), nil, "https://youtu.be/x"); err == nil {
		t.Fatalf("nil client 应报错")
	}
}
