package devapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/closetube/internal/domain"
)

// memState 是开发服务器的内存数据；进程退出即丢失。
type memState struct {
	mu       sync.Mutex
	videos   []domain.Video
	comments map[string][]domain.Comment
	now      func() time.Time
	newID    func() string
}

func newMemState(seed []domain.Video, now func() time.Time, newID func() string) *memState {
	s := &memState{
		videos:   domain.CloneVideos(seed),
		comments: map[string][]domain.Comment{},
		now:      now,
		newID:    newID,
	}
	if s.videos == nil {
		s.videos = []domain.Video{}
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// list 返回按 createdAt 倒序的列表；group 为空或“전체”时不过滤。
func (s *memState) list(group string) []domain.Video {
	s.mu.Lock()
	defer s.mu.Unlock()

	group = strings.TrimSpace(group)
	out := make([]domain.Video, 0, len(s.videos))
	for _, v := range s.videos {
		if domain.IsGroupSelected(group) && v.Group != group {
			continue
		}
		out = append(out, v)
	}
	domain.SortVideos(out, domain.SortLatest)
	return out
}

func (s *memState) create(d domain.UploadData) domain.Video {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := domain.Video{
		ID:          s.newID(),
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		URL:         strings.TrimSpace(d.URL),
		Thumbnail:   d.Thumbnail,
		Duration:    d.Duration,
		Author:      d.Author,
		CreatedAt:   s.now().UTC(),
		Group:       strings.TrimSpace(d.Group),
		Privacy:     d.Privacy,
	}
	s.videos = append(s.videos, v)
	return v
}

// bump 对指定视频执行原子自增并返回更新后的副本。
func (s *memState) bump(id string, fn func(*domain.Video)) (domain.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.videos {
		if s.videos[i].ID == id {
			fn(&s.videos[i])
			return s.videos[i], true
		}
	}
	return domain.Video{}, false
}

func (s *memState) exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.videos {
		if s.videos[i].ID == id {
			return true
		}
	}
	return false
}

func (s *memState) listComments(videoID string) []domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.Comment{}, s.comments[videoID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memState) addComment(videoID string, in domain.CommentInput) (domain.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.videos {
		if s.videos[i].ID == videoID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Comment{}, false
	}
	author := strings.TrimSpace(in.Author)
	c := domain.Comment{
		ID:           s.newID(),
		VideoID:      videoID,
		Author:       author,
		AuthorAvatar: avatarFor(author),
		Text:         strings.TrimSpace(in.Text),
		CreatedAt:    s.now().UTC(),
	}
	s.comments[videoID] = append(s.comments[videoID], c)
	s.videos[idx].Comments++
	return c, true
}

// avatarFor 取作者名的首字作为头像占位。
func avatarFor(author string) string {
	for _, r := range author {
		return string(r)
	}
	return "?"
}
