package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func baseOf(t *testing.T, c *http.Client) (*Transport, *http.Transport) {
	t.Helper()
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	base, ok := tr.Base.(*http.Transport)
	if !ok {
		t.Fatalf("期望 *http.Transport，实际 %T", tr.Base)
	}
	return tr, base
}

func TestNewPreviewClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewPreviewClient("http://127.0.0.1:8080", 0)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, base := baseOf(t, c)
	if base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !base.DisableKeepAlives {
		t.Fatalf("期望禁用 keep-alive，但 Base.DisableKeepAlives=false")
	}
	if !tr.DisableKeepAlives {
		t.Fatalf("期望设置 Request.Close=true 的额外保险，但 DisableKeepAlives=false")
	}
	if c.Timeout != DefaultTimeout {
		t.Fatalf("期望默认超时 %v，实际 %v", DefaultTimeout, c.Timeout)
	}
}

func TestNewPreviewClient_NoProxyKeepsDefault(t *testing.T) {
	c, err := NewPreviewClient("", 5*time.Second)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	_, base := baseOf(t, c)
	if base.Proxy != nil {
		t.Fatalf("不期望启用代理，但 Proxy!=nil")
	}
	if base.DisableKeepAlives {
		t.Fatalf("不期望禁用 keep-alive，但 Base.DisableKeepAlives=true")
	}
	if c.Timeout != 5*time.Second {
		t.Fatalf("期望超时 5s，实际 %v", c.Timeout)
	}
}

func TestNewPreviewClient_InvalidProxyURL(t *testing.T) {
	if _, err := NewPreviewClient("http://[::1", 0); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := NewPreviewClient("127.0.0.1:7890", 0); err == nil {
		t.Fatalf("缺少 scheme 的代理地址应报错")
	}
}

func TestNewAPIClient_FixedUserAgent(t *testing.T) {
	c := NewAPIClient(0)
	tr, base := baseOf(t, c)
	if base.Proxy != nil {
		t.Fatalf("API client 不应走代理")
	}
	if tr.userAgent() != APIUserAgent {
		t.Fatalf("期望 UA=%q，实际 %q", APIUserAgent, tr.userAgent())
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func respond(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader("x")), Header: http.Header{}}
}

func TestTransport_RetriesGatewayErrorsOnGet(t *testing.T) {
	var calls atomic.Int32
	tr := &Transport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			n := calls.Add(1)
			if r.Header.Get("User-Agent") != "test-ua" {
				t.Errorf("期望 UA=test-ua，实际 %q", r.Header.Get("User-Agent"))
			}
			switch n {
			case 1:
				return nil, errors.New("connection reset")
			case 2:
				return respond(http.StatusServiceUnavailable), nil
			default:
				return respond(http.StatusOK), nil
			}
		}),
		UserAgent: "test-ua",
		RetryMax:  2,
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.test/videos", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望最终 200，实际 %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Fatalf("期望 3 次尝试，实际 %d", calls.Load())
	}
}

func TestTransport_LastAttemptReturnsGatewayStatus(t *testing.T) {
	tr := &Transport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return respond(http.StatusBadGateway), nil
		}),
		RetryMax: 1,
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("重试用尽后应把 502 交给调用方，实际 %d", resp.StatusCode)
	}
}

func TestTransport_DoesNotRetryPostOrClientErrors(t *testing.T) {
	var calls atomic.Int32
	tr := &Transport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls.Add(1)
			if r.Method == http.MethodPost {
				return nil, errors.New("connection reset")
			}
			return respond(http.StatusNotFound), nil
		}),
		RetryMax: 3,
	}

	req, _ := http.NewRequest(http.MethodPost, "http://example.test/videos/1/like", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if calls.Load() != 1 {
		t.Fatalf("POST 不应重试，实际尝试 %d 次", calls.Load())
	}

	calls.Store(0)
	req, _ = http.NewRequest(http.MethodGet, "http://example.test/videos/x", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("404 应直接返回：resp=%v err=%v", resp, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("404 不应重试，实际尝试 %d 次", calls.Load())
	}
}

func TestTransport_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	tr := &Transport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls.Add(1)
			cancel()
			return nil, errors.New("dial failed")
		}),
		RetryMax: 5,
		Backoff:  time.Hour,
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.test/", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if calls.Load() != 1 {
		t.Fatalf("ctx 取消后不应继续重试，实际尝试 %d 次", calls.Load())
	}
}

func TestUAPool_ReturnsKnownAgent(t *testing.T) {
	ua := globalUA.random()
	if !strings.HasPrefix(ua, "Mozilla/5.0") {
		t.Fatalf("UA 不符合预期：%q", ua)
	}
}
