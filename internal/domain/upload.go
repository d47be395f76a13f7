package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// UploadData 是上传表单提交给 API 的内容（上传的是外链，不是文件）。
type UploadData struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Thumbnail   string  `json:"thumbnail"`
	Duration    string  `json:"duration"`
	Author      string  `json:"author"`
	Group       string  `json:"group"`
	Privacy     Privacy `json:"privacy"`
}

// NewUploadData 返回带表单默认值的 UploadData：默认禁止下载与外部分享。
func NewUploadData() UploadData {
	return UploadData{
		Privacy: Privacy{DownloadDisabled: true, ExternalShareDisabled: true},
	}
}

// ValidationError 描述单个字段的校验失败（多处失败用 errors.Join 汇总）。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s：%s", e.Field, e.Reason)
}

// IsValidation 判断 err 链上是否有字段校验失败。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationFields 展开 err 中所有 ValidationError（保持顺序）。
func ValidationFields(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var out []*ValidationError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ve, ok := e.(*ValidationError); ok {
			out = append(out, ve)
			return
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, x := range j.Unwrap() {
				walk(x)
			}
			return
		}
		walk(errors.Unwrap(e))
	}
	walk(err)
	return out
}

// Validate 校验上传表单：url/title/group 必填；url 必须是 http(s) 绝对地址且平台可识别。
func (d UploadData) Validate() error {
	var errs []error
	if err := ValidateVideoURL(d.URL); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(d.Title) == "" {
		errs = append(errs, &ValidationError{Field: "title", Reason: "请输入标题"})
	}
	if strings.TrimSpace(d.Group) == "" {
		errs = append(errs, &ValidationError{Field: "group", Reason: "请选择分组"})
	}
	return errors.Join(errs...)
}

// ValidateVideoURL 校验视频外链。
func ValidateVideoURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &ValidationError{Field: "url", Reason: "请输入 URL"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "url", Reason: fmt.Sprintf("不是合法的 http/https 地址：%q", raw)}
	}
	if ClassifyPlatform(raw) == PlatformUnknown {
		return &ValidationError{Field: "url", Reason: "仅支持 YouTube / Instagram / TikTok 链接"}
	}
	return nil
}

// MaxCommentLength 是单条评论的最大字符数。
const MaxCommentLength = 500

// CommentInput 是新增评论的请求体。
type CommentInput struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

func (c CommentInput) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Author) == "" {
		errs = append(errs, &ValidationError{Field: "author", Reason: "作者不能为空"})
	}
	text := strings.TrimSpace(c.Text)
	switch {
	case text == "":
		errs = append(errs, &ValidationError{Field: "text", Reason: "评论内容不能为空"})
	case utf8.RuneCountInString(text) > MaxCommentLength:
		errs = append(errs, &ValidationError{Field: "text", Reason: fmt.Sprintf("评论不能超过 %d 个字符", MaxCommentLength)})
	}
	return errors.Join(errs...)
}

// LinkPreview 是从视频页面解析出的预览信息（用于自动填充上传表单）。
type LinkPreview struct {
	URL         string   `json:"url"`
	Platform    Platform `json:"platform"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Thumbnail   string   `json:"thumbnail"`
	Duration    string   `json:"duration"`
	Author      string   `json:"author"`
}

// ApplyTo 用预览填充表单中仍为空的字段（用户已填写的不覆盖）。
func (p LinkPreview) ApplyTo(d UploadData) UploadData {
	if strings.TrimSpace(d.Title) == "" {
		d.Title = p.Title
	}
	if strings.TrimSpace(d.Description) == "" {
		d.Description = p.Description
	}
	if strings.TrimSpace(d.Thumbnail) == "" {
		d.Thumbnail = p.Thumbnail
	}
	if strings.TrimSpace(d.Duration) == "" {
		d.Duration = p.Duration
	}
	if strings.TrimSpace(d.Author) == "" {
		d.Author = p.Author
	}
	return d
}
