package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/closetube/internal/devapi"
	"github.com/John-Robertt/closetube/internal/domain"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newDevServer(t *testing.T) *Client {
	t.Helper()
	app := devapi.New(devapi.Options{
		Seed: devapi.DefaultSeed(fixedNow),
		Now:  func() time.Time { return fixedNow },
	})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", srv.Client(), nil)
	require.NoError(t, err)
	return c
}

func TestParseBaseURL(t *testing.T) {
	u, err := ParseBaseURL("")
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, u.String())

	u, err = ParseBaseURL("https://api.example.com/v1/?x=1")
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/v1", u.String())

	_, err = ParseBaseURL("localhost:8000")
	require.Error(t, err)
	_, err = ParseBaseURL("ftp://example.com")
	require.Error(t, err)
}

func TestClient_Endpoint(t *testing.T) {
	c, err := New("http://api.test/base", nil, nil)
	require.NoError(t, err)

	require.Equal(t, "http://api.test/base/videos?group=%ED%8C%80+%ED%94%84%EB%A1%9C%EC%A0%9D%ED%8A%B8",
		c.endpoint(map[string][]string{"group": {"팀 프로젝트"}}, "videos").String())
	require.Equal(t, "http://api.test/base/videos/a%2Fb/like", c.endpoint(nil, "videos", "a/b", "like").String())
}

func TestClient_ListVideos(t *testing.T) {
	c := newDevServer(t)
	ctx := context.Background()

	all, err := c.ListVideos(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	require.False(t, all[0].CreatedAt.IsZero())

	team, err := c.ListVideosByGroup(ctx, "팀 프로젝트")
	require.NoError(t, err)
	require.Len(t, team, 2)
	for _, v := range team {
		require.Equal(t, "팀 프로젝트", v.Group)
	}
}

func TestClient_LikeViewAndNotFound(t *testing.T) {
	c := newDevServer(t)
	ctx := context.Background()

	v, err := c.Like(ctx, "4")
	require.NoError(t, err)
	require.EqualValues(t, 16, v.Likes)

	v, err = c.IncrementViews(ctx, "4")
	require.NoError(t, err)
	require.EqualValues(t, 19, v.Views)

	_, err = c.Like(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, IsStatus(err, http.StatusNotFound))
	require.Equal(t, KindNotFound, Classify(err))

	_, err = c.Like(ctx, " ")
	require.Equal(t, KindValidation, Classify(err))
}

func TestClient_CreateVideoAndValidationError(t *testing.T) {
	c := newDevServer(t)
	ctx := context.Background()

	d := domain.NewUploadData()
	d.URL = "https://www.tiktok.com/@me/video/1"
	d.Title = "춤"
	d.Group = "일상"
	v, err := c.CreateVideo(ctx, d)
	require.NoError(t, err)
	require.NotEmpty(t, v.ID)
	require.Equal(t, domain.PlatformTikTok, v.Platform())
	require.True(t, v.Privacy.DownloadDisabled)

	_, err = c.CreateVideo(ctx, domain.UploadData{Title: "x"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
	require.NotEmpty(t, se.Fields)
	require.Equal(t, KindValidation, Classify(err))
	require.False(t, Retryable(err))
}

func TestClient_Comments(t *testing.T) {
	c := newDevServer(t)
	ctx := context.Background()

	cm, err := c.AddComment(ctx, "1", domain.CommentInput{Author: "아빠", Text: "좋다"})
	require.NoError(t, err)
	require.Equal(t, "1", cm.VideoID)

	list, err := c.ListComments(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "좋다", list[0].Text)

	_, err = c.ListComments(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Health(t *testing.T) {
	c := newDevServer(t)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", h.Status)
	require.True(t, h.Timestamp.Equal(fixedNow))
}

func TestClient_InvalidResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("group") == "broken" {
			_, _ = w.Write([]byte(`{"oops":`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":"1"},{"id":"1"}]`))
	})
	mux.HandleFunc("/videos/1/like", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"maintenance"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL, srv.Client(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.ListVideos(ctx)
	require.ErrorIs(t, err, ErrInvalidResponse, "重复 id 应视为无效响应")
	require.Equal(t, KindServer, Classify(err))

	_, err = c.ListVideosByGroup(ctx, "broken")
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = c.Like(ctx, "1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "maintenance", se.Message)
	require.True(t, Retryable(err))
}

func TestClassify_NetworkAndCanceled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := New(addr, &http.Client{Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = c.ListVideos(context.Background())
	require.Error(t, err)
	require.Equal(t, KindNetwork, Classify(err))
	require.True(t, Retryable(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.ListVideos(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, KindCanceled, Classify(err))
	require.Equal(t, KindNone, Classify(nil))
}
