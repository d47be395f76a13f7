package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/closetube/internal/domain"
)

var (
	// ErrNotFound 对应 404（未知视频 id 等）。
	ErrNotFound = errors.New("资源不存在")
	// ErrInvalidResponse 表示响应体无法解码或违反数据模型不变量。
	ErrInvalidResponse = errors.New("API 响应无效")
)

// StatusError 表示 API 返回了非 2xx 状态码。
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// Message 是服务端 {"detail": "..."} 或 {"error": "..."} 中的说明（可能为空）。
	Message string
	// Fields 是 400 响应里的字段级错误（可能为空）。
	Fields []FieldError
}

// FieldError 是服务端返回的字段校验失败。
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("%s %s：HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s：HTTP %d：%s", e.Method, e.URL, e.StatusCode, msg)
}

// Is 让 errors.Is(err, ErrNotFound) 对 404 成立。
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e != nil && e.StatusCode == 404
}

// Kind 是面向界面的错误分类：决定显示“重试”还是就地提示。
type Kind string

const (
	KindNone       Kind = ""
	KindCanceled   Kind = "canceled"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
)

// Classify 把错误归到一个 Kind。
//
// 规则：
// - 本地校验失败与 4xx（除 404）归为 validation
// - 无法连接、超时、5xx、无效响应都可以重试：前者 network，后两者 server
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if domain.IsValidation(err) {
		return KindValidation
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode >= 400 && se.StatusCode < 500 {
			return KindValidation
		}
		return KindServer
	}
	if errors.Is(err, ErrInvalidResponse) {
		return KindServer
	}
	// 其余（拨号失败、超时、连接被重置等）都视为网络问题。
	return KindNetwork
}

// Retryable 报告用户手动重试是否有意义。
func Retryable(err error) bool {
	switch Classify(err) {
	case KindNetwork, KindServer:
		return true
	default:
		return false
	}
}
