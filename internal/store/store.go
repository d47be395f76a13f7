package store

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/John-Robertt/closetube/internal/domain"
	"github.com/John-Robertt/closetube/internal/viewmodel"
)

// VideoAPI 是 Store 依赖的远端接口（由 api.Client 实现）。
type VideoAPI interface {
	ListVideos(ctx context.Context) ([]domain.Video, error)
	ListVideosByGroup(ctx context.Context, group string) ([]domain.Video, error)
	CreateVideo(ctx context.Context, d domain.UploadData) (domain.Video, error)
	IncrementViews(ctx context.Context, id string) (domain.Video, error)
	Like(ctx context.Context, id string) (domain.Video, error)
	ListComments(ctx context.Context, videoID string) ([]domain.Comment, error)
	AddComment(ctx context.Context, videoID string, in domain.CommentInput) (domain.Comment, error)
}

// Store 持有从 API 拉取到的规范视频列表。
//
// 约束：
// - 列表只在拉取成功时整体替换
// - 刷新失败时保留上一次的列表
// - 点赞/观看只用服务端返回的视频更新对应条目，不做本地乐观自增
type Store struct {
	api VideoAPI
	log *log.Helper

	mu        sync.Mutex
	videos    []domain.Video
	ticketGen uint64
	lastGroup string
	loaded    bool
}

var _ viewmodel.Loader = (*Store)(nil)

func New(api VideoAPI, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewStdLogger(io.Discard)
	}
	return &Store{
		api:    api,
		log:    log.NewHelper(logger),
		videos: []domain.Video{},
	}
}

// Videos 返回当前规范列表的副本。
func (s *Store) Videos() []domain.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneVideos(s.videos)
}

// Loaded 报告是否至少成功刷新过一次。
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Refresh 拉取列表（group 非空且不是“전체”时走服务端分组过滤）并替换规范列表。
// 并发调用时以完成顺序为准；需要按发起顺序裁决时使用 Load。
func (s *Store) Refresh(ctx context.Context, group string) ([]domain.Video, error) {
	list, err := s.fetch(ctx, group)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(list, group)
	return domain.CloneVideos(s.videos), nil
}

// Load 实现 viewmodel.Loader：按 Ticket 的分组拉取并总是返回拉取结果，由控制器决定是否采用。
//
// 约束：
// - 规范列表只接受 generation 不落后于已缓存结果的 Ticket，与控制器的裁决保持一致
// - 失败时保留上一次的列表
func (s *Store) Load(ctx context.Context, t viewmodel.Ticket) ([]domain.Video, error) {
	list, err := s.fetch(ctx, t.Group())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Generation() < s.ticketGen {
		s.log.Debugw("msg", "加载结果落后于缓存，不替换规范列表", "generation", t.Generation(), "cached", s.ticketGen)
		return domain.CloneVideos(list), nil
	}
	s.ticketGen = t.Generation()
	s.applyLocked(list, t.Group())
	return domain.CloneVideos(list), nil
}

func (s *Store) fetch(ctx context.Context, group string) ([]domain.Video, error) {
	var (
		list []domain.Video
		err  error
	)
	if domain.IsGroupSelected(group) {
		list, err = s.api.ListVideosByGroup(ctx, group)
	} else {
		list, err = s.api.ListVideos(ctx)
	}
	if err == nil {
		err = domain.ValidateList(list)
	}
	if err != nil {
		s.log.Warnw("msg", "刷新视频列表失败", "group", group, "err", err)
		return nil, fmt.Errorf("刷新视频列表：%w", err)
	}
	if list == nil {
		list = []domain.Video{}
	}
	return list, nil
}

func (s *Store) applyLocked(list []domain.Video, group string) {
	s.videos = domain.CloneVideos(list)
	s.lastGroup = group
	s.loaded = true
	s.log.Debugw("msg", "刷新视频列表完成", "group", group, "count", len(list))
}

// Like 点赞并用服务端返回的视频更新缓存。
func (s *Store) Like(ctx context.Context, id string) (domain.Video, error) {
	v, err := s.api.Like(ctx, id)
	if err != nil {
		s.log.Warnw("msg", "点赞失败", "id", id, "err", err)
		return domain.Video{}, err
	}
	s.replace(v)
	return v, nil
}

// View 记录一次观看并用服务端返回的视频更新缓存。
func (s *Store) View(ctx context.Context, id string) (domain.Video, error) {
	v, err := s.api.IncrementViews(ctx, id)
	if err != nil {
		s.log.Warnw("msg", "记录观看失败", "id", id, "err", err)
		return domain.Video{}, err
	}
	s.replace(v)
	return v, nil
}

// Upload 校验并创建视频，然后显式重新拉取列表（沿用上一次刷新的分组）。
// 创建成功但重新拉取失败时仍返回新视频，同时返回拉取错误。
func (s *Store) Upload(ctx context.Context, d domain.UploadData) (domain.Video, error) {
	if err := d.Validate(); err != nil {
		return domain.Video{}, err
	}
	v, err := s.api.CreateVideo(ctx, d)
	if err != nil {
		s.log.Warnw("msg", "上传失败", "url", d.URL, "err", err)
		return domain.Video{}, err
	}
	s.log.Infow("msg", "上传成功", "id", v.ID, "group", v.Group)

	s.mu.Lock()
	group := s.lastGroup
	s.mu.Unlock()
	if _, err := s.Refresh(ctx, group); err != nil {
		return v, fmt.Errorf("上传成功但刷新列表失败：%w", err)
	}
	return v, nil
}

func (s *Store) Comments(ctx context.Context, videoID string) ([]domain.Comment, error) {
	if videoID == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "视频 id 为空"}
	}
	return s.api.ListComments(ctx, videoID)
}

// AddComment 校验后提交评论；成功时把缓存中该视频的评论数加一。
func (s *Store) AddComment(ctx context.Context, videoID string, in domain.CommentInput) (domain.Comment, error) {
	if videoID == "" {
		return domain.Comment{}, &domain.ValidationError{Field: "id", Reason: "视频 id 为空"}
	}
	if err := in.Validate(); err != nil {
		return domain.Comment{}, err
	}
	c, err := s.api.AddComment(ctx, videoID, in)
	if err != nil {
		return domain.Comment{}, err
	}
	s.mu.Lock()
	for i := range s.videos {
		if s.videos[i].ID == videoID {
			s.videos[i].Comments++
			break
		}
	}
	s.mu.Unlock()
	return c, nil
}

// Find 按 id 返回缓存中的视频。
func (s *Store) Find(id string) (domain.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.ID == id {
			return v, true
		}
	}
	return domain.Video{}, false
}

func (s *Store) replace(v domain.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.videos {
		if s.videos[i].ID == v.ID {
			s.videos[i] = v
			return
		}
	}
}
