package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Importance 是回忆的重要程度。
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// ParseImportance 忽略大小写；空串视为默认的 medium。
func ParseImportance(s string) (Importance, bool) {
	switch i := Importance(strings.ToLower(strings.TrimSpace(s))); i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return i, true
	case "":
		return ImportanceMedium, true
	default:
		return "", false
	}
}

// MemoryInput 是“回忆盒”里新增一条回忆时提交的内容。
type MemoryInput struct {
	VideoID     string     `json:"videoId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Importance  Importance `json:"importance"`
	SharedWith  []string   `json:"sharedWith"`
}

// Normalize 去掉首尾空白与空/重复的标签和分享对象；importance 为空时取 medium。
func (in MemoryInput) Normalize() MemoryInput {
	out := MemoryInput{
		VideoID:     strings.TrimSpace(in.VideoID),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Tags:        uniqueTrimmed(in.Tags),
		Importance:  in.Importance,
		SharedWith:  uniqueTrimmed(in.SharedWith),
	}
	if imp, ok := ParseImportance(string(in.Importance)); ok {
		out.Importance = imp
	}
	return out
}

// Validate 要求 videoId 与标题非空、importance 为已知值。
func (in MemoryInput) Validate() error {
	var errs []error
	if strings.TrimSpace(in.VideoID) == "" {
		errs = append(errs, &ValidationError{Field: "videoId", Reason: "请选择视频"})
	}
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, &ValidationError{Field: "title", Reason: "请输入回忆标题"})
	}
	if _, ok := ParseImportance(string(in.Importance)); !ok {
		errs = append(errs, &ValidationError{Field: "importance", Reason: fmt.Sprintf("只能是 low/medium/high，实际是 %q", in.Importance)})
	}
	return errors.Join(errs...)
}

// Memory 是保存后的回忆（只有数据形态，不做持久化）。
type Memory struct {
	ID string `json:"id"`
	MemoryInput
	CreatedAt time.Time `json:"createdAt"`
}

// NewMemory 校验并规整输入，生成一条回忆。
func NewMemory(id string, in MemoryInput, now time.Time) (Memory, error) {
	if err := in.Validate(); err != nil {
		return Memory{}, err
	}
	return Memory{ID: id, MemoryInput: in.Normalize(), CreatedAt: now.UTC()}, nil
}

// UnmarshalJSON 与 Video 一致：createdAt 接受日期串（例如 "2024-01-15"），无法识别时为零值。
func (m *Memory) UnmarshalJSON(b []byte) error {
	type alias Memory
	aux := struct {
		*alias
		CreatedAt json.RawMessage `json:"createdAt"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.CreatedAt = decodeTimestamp(aux.CreatedAt)
	return nil
}

// MaxRecommendMessageLength 是推荐留言的最大字符数。
const MaxRecommendMessageLength = 200

// Recommendation 是把视频推荐给好友的请求。
type Recommendation struct {
	VideoID   string   `json:"videoId"`
	FriendIDs []string `json:"friendIds"`
	Message   string   `json:"message"`
	URL       string   `json:"url"`
}

// NewRecommendation 以视频为来源构造推荐（留言去掉首尾空白，好友去重）。
func NewRecommendation(v Video, friendIDs []string, message string) Recommendation {
	return Recommendation{
		VideoID:   v.ID,
		FriendIDs: uniqueTrimmed(friendIDs),
		Message:   strings.TrimSpace(message),
		URL:       v.URL,
	}
}

// Validate 要求至少选择一位好友。
func (r Recommendation) Validate() error {
	var errs []error
	if strings.TrimSpace(r.VideoID) == "" {
		errs = append(errs, &ValidationError{Field: "videoId", Reason: "视频 id 为空"})
	}
	if len(uniqueTrimmed(r.FriendIDs)) == 0 {
		errs = append(errs, &ValidationError{Field: "friendIds", Reason: "请至少选择一位好友"})
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(r.Message)); n > MaxRecommendMessageLength {
		errs = append(errs, &ValidationError{Field: "message", Reason: fmt.Sprintf("留言不能超过 %d 个字符", MaxRecommendMessageLength)})
	}
	if strings.TrimSpace(r.URL) == "" {
		errs = append(errs, &ValidationError{Field: "url", Reason: "视频链接为空"})
	}
	return errors.Join(errs...)
}

func uniqueTrimmed(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
