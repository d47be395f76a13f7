package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/John-Robertt/closetube/internal/domain"
)

// DefaultBaseURL 是未配置时使用的 API 地址。
const DefaultBaseURL = "http://localhost:8000"

const maxBodyBytes = 8 << 20

// Client 是 CloseTube REST API 的 JSON 客户端。
//
// 约束：
// - 所有调用都带 ctx，调用方负责取消
// - 不做用户层面的自动重试（传输层对幂等 GET 的有界重试除外）
// - 列表响应会经过 domain.ValidateList 校验，违反不变量时返回 ErrInvalidResponse
type Client struct {
	base *url.URL
	hc   *http.Client
	log  *log.Helper
}

// New 构造 Client。hc 为 nil 时使用 http.DefaultClient；logger 为 nil 时丢弃日志。
func New(baseURL string, hc *http.Client, logger log.Logger) (*Client, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewStdLogger(io.Discard)
	}
	return &Client{base: u, hc: hc, log: log.NewHelper(logger)}, nil
}

// ParseBaseURL 校验并规整 API 地址（必须是 http/https 绝对地址）。
func ParseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("API 地址无效：%w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("API 地址必须是 http/https 绝对地址：%q", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

// ListVideos 对应 GET /videos。
func (c *Client) ListVideos(ctx context.Context) ([]domain.Video, error) {
	return c.listVideos(ctx, nil)
}

// ListVideosByGroup 对应 GET /videos?group=<label>。
func (c *Client) ListVideosByGroup(ctx context.Context, group string) ([]domain.Video, error) {
	return c.listVideos(ctx, url.Values{"group": {group}})
}

func (c *Client) listVideos(ctx context.Context, q url.Values) ([]domain.Video, error) {
	var out []domain.Video
	if err := c.do(ctx, http.MethodGet, c.endpoint(q, "videos"), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Video{}
	}
	if err := domain.ValidateList(out); err != nil {
		return nil, fmt.Errorf("%w：%w", ErrInvalidResponse, err)
	}
	return out, nil
}

// CreateVideo 对应 POST /videos。
func (c *Client) CreateVideo(ctx context.Context, d domain.UploadData) (domain.Video, error) {
	var v domain.Video
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "videos"), d, &v)
	return v, err
}

// IncrementViews 对应 POST /videos/{id}/view，返回更新后的视频。
func (c *Client) IncrementViews(ctx context.Context, id string) (domain.Video, error) {
	return c.videoAction(ctx, id, "view")
}

// Like 对应 POST /videos/{id}/like，返回更新后的视频。
func (c *Client) Like(ctx context.Context, id string) (domain.Video, error) {
	return c.videoAction(ctx, id, "like")
}

func (c *Client) videoAction(ctx context.Context, id, action string) (domain.Video, error) {
	var v domain.Video
	if strings.TrimSpace(id) == "" {
		return v, &domain.ValidationError{Field: "id", Reason: "视频 id 为空"}
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint(nil, "videos", id, action), nil, &v); err != nil {
		return v, err
	}
	if v.ID != id {
		return v, fmt.Errorf("%w：期望视频 %q，实际 %q", ErrInvalidResponse, id, v.ID)
	}
	return v, nil
}

// ListComments 对应 GET /videos/{id}/comments。
func (c *Client) ListComments(ctx context.Context, videoID string) ([]domain.Comment, error) {
	var out []domain.Comment
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "videos", videoID, "comments"), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Comment{}
	}
	return out, nil
}

// AddComment 对应 POST /videos/{id}/comments。
func (c *Client) AddComment(ctx context.Context, videoID string, in domain.CommentInput) (domain.Comment, error) {
	var cm domain.Comment
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "videos", videoID, "comments"), in, &cm)
	return cm, err
}

// Health 是 GET /health 的响应。
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, c.endpoint(nil, "health"), nil, &h)
	return h, err
}

// endpoint 以 base 为前缀拼接路径段（每段单独转义）。
func (c *Client) endpoint(q url.Values, segs ...string) *url.URL {
	u := *c.base
	escaped := make([]string, 0, len(segs))
	raw := make([]string, 0, len(segs))
	for _, s := range segs {
		raw = append(raw, s)
		escaped = append(escaped, url.PathEscape(s))
	}
	u.Path = c.base.Path + "/" + strings.Join(raw, "/")
	u.RawPath = c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return &u
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debugw("msg", "API 请求失败", "method", method, "url", u.String(), "err", err)
		return err
	}
	defer resp.Body.Close()
	c.log.Debugw("msg", "API 请求完成", "method", method, "url", u.String(), "status", resp.StatusCode, "dur_ms", time.Since(start).Milliseconds())

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusErrorFrom(method, u.String(), resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w：%s %s：%w", ErrInvalidResponse, method, u.String(), err)
	}
	return nil
}

// statusErrorFrom 尽量从错误响应体里提取说明：兼容 {"detail": "..."}、{"error": "...", "fields": [...]}。
func statusErrorFrom(method, u string, code int, body []byte) error {
	se := &StatusError{Method: method, URL: u, StatusCode: code}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
		Fields []FieldError    `json:"fields"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		se.Message = payload.Error
		se.Fields = payload.Fields
		if se.Message == "" && len(payload.Detail) > 0 {
			var s string
			if json.Unmarshal(payload.Detail, &s) == nil {
				se.Message = s
			} else {
				se.Message = string(payload.Detail)
			}
		}
	} else if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 200 {
		se.Message = s
	}
	return se
}

// IsStatus 判断 err 是否为指定状态码的 StatusError。
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
