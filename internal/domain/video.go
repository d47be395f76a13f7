package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Video 是外部 API 返回的视频快照（外链 + 元数据 + 互动计数）。
//
// 约束：
// - 同一次拉取的列表内 ID 唯一
// - Views/Likes/Comments 永不为负
// - CreatedAt 是唯一的规范时间表示；展示用的相对时间（"2일 전"）只在展示层由 Humanize 生成
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    string    `json:"duration"` // 展示串，例如 "3:24"
	Author      string    `json:"author"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
	Group       string    `json:"group"`
	Privacy     Privacy   `json:"privacy"`
}

// Privacy 是建议性标记，客户端逻辑不做强制。
type Privacy struct {
	DownloadDisabled      bool `json:"downloadDisabled"`
	ExternalShareDisabled bool `json:"externalShareDisabled"`
}

// Platform 返回由 URL 推断出的托管平台。
func (v Video) Platform() Platform { return ClassifyPlatform(v.URL) }

// UnmarshalJSON 宽松解析 createdAt：无法识别的串（例如相对时间）解码为零值，而不是让整个列表失败。
func (v *Video) UnmarshalJSON(b []byte) error {
	type alias Video
	aux := struct {
		*alias
		CreatedAt json.RawMessage `json:"createdAt"`
	}{alias: (*alias)(v)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	v.CreatedAt = decodeTimestamp(aux.CreatedAt)
	return nil
}

// ValidateList 校验一次拉取结果是否满足数据模型不变量。
func ValidateList(videos []Video) error {
	seen := make(map[string]struct{}, len(videos))
	var errs []error
	for i := range videos {
		v := &videos[i]
		if v.ID == "" {
			errs = append(errs, fmt.Errorf("videos[%d]: id 为空", i))
			continue
		}
		if _, ok := seen[v.ID]; ok {
			errs = append(errs, fmt.Errorf("videos[%d]: 重复的 id %q", i, v.ID))
		}
		seen[v.ID] = struct{}{}
		if v.Views < 0 || v.Likes < 0 || v.Comments < 0 {
			errs = append(errs, fmt.Errorf("videos[%d]: 计数为负（views=%d likes=%d comments=%d）", i, v.Views, v.Likes, v.Comments))
		}
	}
	return errors.Join(errs...)
}

// CloneVideos 返回浅拷贝（Video 只含值类型字段，浅拷贝即完全独立）。
func CloneVideos(in []Video) []Video {
	if in == nil {
		return nil
	}
	return append(make([]Video, 0, len(in)), in...)
}

// Comment 是视频下的一条评论。
type Comment struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"videoId"`
	Author       string    `json:"author"`
	AuthorAvatar string    `json:"authorAvatar"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (c *Comment) UnmarshalJSON(b []byte) error {
	type alias Comment
	aux := struct {
		*alias
		CreatedAt json.RawMessage `json:"createdAt"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.CreatedAt = decodeTimestamp(aux.CreatedAt)
	return nil
}

// Group 是侧边栏展示的分享圈。
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	Icon        string `json:"icon"`
}
