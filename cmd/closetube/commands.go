package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/k0kubun/pp/v3"

	"github.com/John-Robertt/closetube/internal/api"
	"github.com/John-Robertt/closetube/internal/domain"
	"github.com/John-Robertt/closetube/internal/infra/fsx"
	"github.com/John-Robertt/closetube/internal/infra/httpx"
	"github.com/John-Robertt/closetube/internal/preview"
	"github.com/John-Robertt/closetube/internal/stats"
	"github.com/John-Robertt/closetube/internal/viewmodel"
)

const listUsage = `用法：
  closetube list [--q TEXT] [--group G] [--platform P]... [--filter-group G]...
                 [--duration all|short|medium|long] [--sort latest|oldest|views|likes] [--dump]

参数：
  --q             按标题/描述/作者搜索（不区分大小写）
  --group         主分组（服务端过滤；"전체" 表示全部；默认读配置 default_group）
  --platform      只看某平台，可重复：YouTube|Instagram|TikTok
  --filter-group  高级筛选中的分组，可重复（--group 有值时被覆盖）
  --duration      时长：short(≤1分钟) medium(1-10分钟) long(≥10分钟)
  --sort          排序（默认读配置 default_sort，最终默认 latest）
  --dump          把控制器快照以易读格式打印到 stderr
`

func listCmd(args []string) int {
	la, err := parseListArgs(args)
	if err != nil {
		return usageError(os.Stderr, err, listUsage)
	}
	e, code := setup(la.globalArgs)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	filters := domain.DefaultFilterOptions()
	filters.SortBy = e.cfg.DefaultSort
	if la.SortSet {
		filters.SortBy = la.Sort
	}
	filters.Platforms = la.Platforms
	filters.Groups = la.FilterGroups
	filters.Duration = la.Duration

	group := e.cfg.DefaultGroup
	if la.GroupSet {
		group = la.Group
	}

	ctrl := viewmodel.New(
		viewmodel.WithLogger(e.logger),
		viewmodel.WithFilters(filters),
		viewmodel.WithSelectedGroup(group),
	)
	ctrl.SetSearchQuery(la.Query)

	_, loadErr := ctrl.Reload(ctx, e.store)
	view := ctrl.Snapshot()
	if la.Dump {
		dumpView(e.out.stderr, view)
	}
	if loadErr != nil {
		if !e.out.tty {
			e.out.emit(view, nil)
		}
		// JSON 模式下 stdout 已输出带 error 字段的快照，这里只写 stderr。
		e.out.printError(loadErr)
		return e.exitCode(api.Classify(loadErr))
	}

	now := time.Now()
	e.out.emit(view, func(w io.Writer) { renderList(w, view, now) })
	return exitOK
}

func dumpView(w io.Writer, v viewmodel.View) {
	p := pp.New()
	p.SetColoringEnabled(false)
	p.SetExportedOnly(true)
	_, _ = p.Fprintln(w, v)
}

const statsUsage = `用法：
  closetube stats [--group G] [--top N] [--out FILE]

参数：
  --group  只统计某个分组
  --top    热门榜长度（默认 5）
  --out    同时把统计结果原子写入 FILE（JSON）
`

func statsCmd(args []string) int {
	sa, err := parseStatsArgs(args)
	if err != nil {
		return usageError(os.Stderr, err, statsUsage)
	}
	e, code := setup(sa.globalArgs)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	group := e.cfg.DefaultGroup
	if sa.GroupSet {
		group = sa.Group
	}
	videos, err := e.store.Refresh(ctx, group)
	if err != nil {
		return e.fail(err)
	}
	rep := stats.Compute(videos, time.Now(), sa.Top)

	if sa.Out != "" {
		if err := writeJSONFile(sa.Out, rep); err != nil {
			fmt.Fprintf(e.out.stderr, "写入 %s 失败：%v\n", sa.Out, err)
			return exitRuntime
		}
		e.log.Infow("msg", "stats written", "path", sa.Out)
	}

	e.out.emit(rep, func(w io.Writer) { renderStats(w, rep) })
	return exitOK
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFile(path, b)
}

const uploadUsage = `用法：
  closetube upload --url U --title T --group G [--description D] [--author A]
                   [--thumbnail URL] [--duration M:SS] [--allow-download] [--allow-share] [--no-preview]

参数：
  --url             视频外链（YouTube / Instagram / TikTok）
  --title --group   必填；未填写的标题等字段会尝试用链接预览自动填充
  --allow-download  允许下载（默认禁止）
  --allow-share     允许外部分享（默认禁止）
  --no-preview      不抓取链接预览
`

func uploadCmd(args []string) int {
	ua, err := parseUploadArgs(args)
	if err != nil {
		return usageError(os.Stderr, err, uploadUsage)
	}
	e, code := setup(ua.globalArgs)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	data := ua.Data
	if !ua.NoPreview {
		if err := domain.ValidateVideoURL(data.URL); err != nil {
			return e.fail(err)
		}
		if p, err := e.resolvePreview(ctx, data.URL); err != nil {
			// 预览只是辅助：失败时继续用用户输入上传。
			e.log.Warnw("msg", "link preview failed", "url", data.URL, "error", err)
		} else {
			data = p.ApplyTo(data)
		}
	}

	v, err := e.store.Upload(ctx, data)
	if v.ID == "" && err != nil {
		return e.fail(err)
	}
	if err != nil {
		e.log.Warnw("msg", "refetch after upload failed", "error", err)
	}
	now := time.Now()
	e.out.emit(v, func(w io.Writer) {
		fmt.Fprintln(w, okStyle.Render("上传成功"))
		renderVideo(w, v, now)
	})
	return exitOK
}

const previewUsage = `用法：
  closetube preview URL

抓取视频页面并解析标题/描述/缩略图/时长/作者。
代理来自配置 proxy.url 或环境变量 CLOSETUBE_PROXY。
`

func previewCmd(args []string) int {
	ia, err := parseIDArgs(args, "URL", false)
	if err != nil {
		return usageError(os.Stderr, err, previewUsage)
	}
	e, code := setup(ia.globalArgs)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	p, err := e.resolvePreview(ctx, ia.ID)
	if err != nil {
		return e.fail(err)
	}
	e.out.emit(p, func(w io.Writer) { renderPreview(w, p) })
	return exitOK
}

func (e *env) resolvePreview(ctx context.Context, rawURL string) (domain.LinkPreview, error) {
	c, err := httpx.NewPreviewClient(e.cfg.ProxyURL, e.cfg.Timeout)
	if err != nil {
		return domain.LinkPreview{}, err
	}
	start := time.Now()
	p, err := preview.Resolve(ctx, c, rawURL)
	e.log.Debugw("msg", "link preview", "url", rawURL, "elapsed", formatShortDuration(time.Since(start)), "error", err)
	return p, err
}

const likeUsage = `用法：
  closetube like ID
`

func likeCmd(args []string) int {
	ia, err := parseIDArgs(args, "视频 ID", false)
	if err != nil {
		return usageError(os.Stderr, err, likeUsage)
	}
	e, code := setup(ia.globalArgs)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	v, err := e.store.Like(ctx, ia.ID)
	if err != nil {
		return e.fail(err)
	}
	e.out.emit(v, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s  ♥ %s\n", okStyle.Render("已点赞"), v.Title, stats.FormatCount(v.Likes))
	})
	return exitOK
}

const viewUsage = `用法：
  closetube view ID

记录一次观看并显示视频详情。
`

func viewCmd(args []string) int {
	ia, err := parseIDArgs(args, "视频 ID", false)
	if err != nil {
		return usageError(os.Stderr, err, viewUsage)
	}
	e, code := setup(ia.globalArgs)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	v, err := e.store.View(ctx, ia.ID)
	if err != nil {
		return e.fail(err)
	}
	now := time.Now()
	e.out.emit(v, func(w io.Writer) { renderVideo(w, v, now) })
	return exitOK
}

const commentsUsage = `用法：
  closetube comments ID
`

func commentsCmd(args []string) int {
	ia, err := parseIDArgs(args, "视频 ID", false)
	if err != nil {
		return usageError(os.Stderr, err, commentsUsage)
	}
	e, code := setup(ia.globalArgs)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	cs, err := e.store.Comments(ctx, ia.ID)
	if err != nil {
		return e.fail(err)
	}
	if cs == nil {
		cs = []domain.Comment{}
	}
	now := time.Now()
	e.out.emit(cs, func(w io.Writer) { renderComments(w, cs, now) })
	return exitOK
}

const commentUsage = `用法：
  closetube comment ID --author A --text T
`

func commentCmd(args []string) int {
	ia, err := parseIDArgs(args, "视频 ID", true)
	if err != nil {
		return usageError(os.Stderr, err, commentUsage)
	}
	e, code := setup(ia.globalArgs)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	c, err := e.store.AddComment(ctx, ia.ID, domain.CommentInput{Author: ia.Author, Text: ia.Text})
	if err != nil {
		return e.fail(err)
	}
	now := time.Now()
	e.out.emit(c, func(w io.Writer) { renderComments(w, []domain.Comment{c}, now) })
	return exitOK
}

const pingUsage = `用法：
  closetube ping

检查 API 的 /health，并显示生效的连接配置。
`

// pingResult 是 ping 的输出。
type pingResult struct {
	APIURL    string    `json:"api_url"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LatencyMS int64     `json:"latency_ms"`
	Sources   []string  `json:"sources"`
}

func pingCmd(args []string) int {
	g, err := parseGlobalOnly(args)
	if err != nil {
		return usageError(os.Stderr, err, pingUsage)
	}
	e, code := setup(g)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	start := time.Now()
	h, err := e.client.Health(ctx)
	if err != nil {
		return e.fail(err)
	}
	res := pingResult{
		APIURL:    e.client.BaseURL(),
		Status:    h.Status,
		Timestamp: h.Timestamp,
		LatencyMS: time.Since(start).Milliseconds(),
		Sources:   e.cfg.Sources,
	}
	if res.Sources == nil {
		res.Sources = []string{}
	}
	e.out.emit(res, func(w io.Writer) { renderPing(w, res, e.cfg) })
	return exitOK
}

const browseUsage = `用法：
  closetube browse

交互式浏览（需要终端）：
  /       搜索（输入停顿后生效；esc 结束输入）
  g       切换主分组          p  切换平台筛选
  d       切换时长筛选        s  切换排序
  c       清除筛选与搜索      r  重新加载
  l       点赞                enter  打开详情（计一次观看）
  q       退出
`

func browseCmd(args []string) int {
	g, err := parseGlobalOnly(args)
	if err != nil {
		return usageError(os.Stderr, err, browseUsage)
	}
	if !isTTY(os.Stdout) || !isTTY(os.Stdin) {
		fmt.Fprintln(os.Stderr, "browse 需要交互终端；非交互环境请使用 list")
		return exitUsage
	}
	e, code := setup(g)
	if e == nil {
		return code
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := runBrowse(ctx, e); err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		return exitRuntime
	}
	return exitOK
}
