package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/John-Robertt/closetube/internal/api"
	"github.com/John-Robertt/closetube/internal/config"
	"github.com/John-Robertt/closetube/internal/domain"
	"github.com/John-Robertt/closetube/internal/infra/httpx"
	"github.com/John-Robertt/closetube/internal/store"
)

// 退出码。
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

type command struct {
	run   func(args []string) int
	usage string
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"list":     {run: listCmd, usage: listUsage},
		"stats":    {run: statsCmd, usage: statsUsage},
		"upload":   {run: uploadCmd, usage: uploadUsage},
		"like":     {run: likeCmd, usage: likeUsage},
		"view":     {run: viewCmd, usage: viewUsage},
		"comments": {run: commentsCmd, usage: commentsUsage},
		"comment":  {run: commentCmd, usage: commentUsage},
		"preview":  {run: previewCmd, usage: previewUsage},
		"ping":     {run: pingCmd, usage: pingUsage},
		"browse":   {run: browseCmd, usage: browseUsage},
	}
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(os.Stdout)
		return
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage(os.Stderr)
		os.Exit(exitUsage)
	}
	for _, a := range args[1:] {
		if isHelp(a) {
			fmt.Fprint(os.Stdout, cmd.usage)
			return
		}
	}
	if code := cmd.run(args[1:]); code != exitOK {
		os.Exit(code)
	}
}

// env 是一次命令执行所需的全部依赖。
type env struct {
	cfg    config.EffectiveConfig
	logger log.Logger
	log    *log.Helper
	client *api.Client
	store  *store.Store
	out    output
}

// setup 加载配置并构造 API 客户端与 Store。失败时已向 stderr 输出说明，返回退出码。
func setup(g globalArgs) (*env, int) {
	out := stdOutput()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(out.stderr, "读取当前目录失败：%v\n", err)
		return nil, exitRuntime
	}
	cfg, err := config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath:        g.ConfigPath,
		APIURL:            g.APIURL,
		APIURLSet:         g.APIURLSet,
		TimeoutSeconds:    g.TimeoutSeconds,
		TimeoutSecondsSet: g.TimeoutSecondsSet,
	})
	if err != nil {
		out.emitError(err, config.Code(err))
		return nil, exitUsage
	}

	logger := newLogger(out.stderr, g.Verbose)
	helper := log.NewHelper(logger)
	helper.Debugw("msg", "config loaded", "api_url", cfg.APIURL, "sources", cfg.Sources, "timeout", cfg.Timeout.String())

	client, err := api.New(cfg.APIURL, httpx.NewAPIClient(cfg.Timeout), logger)
	if err != nil {
		out.emitError(err, string(api.KindValidation))
		return nil, exitUsage
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		log:    helper,
		client: client,
		store:  store.New(client, logger),
		out:    out,
	}, exitOK
}

// newLogger 构造写往 w（通常是 stderr）的根 logger；stdout 只留给命令输出。
func newLogger(w io.Writer, verbose bool) log.Logger {
	level := log.LevelWarn
	if verbose {
		level = log.LevelDebug
	}
	l := log.With(log.NewStdLogger(w),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
	)
	return log.NewFilter(l, log.FilterLevel(level))
}

// commandContext 在收到 Ctrl-C 时取消进行中的请求。
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// output 封装 stdout 契约：
// - stdout 是 TTY：输出给人看的文本
// - 否则 stdout 只输出一个 JSON 值，说明与日志走 stderr
type output struct {
	stdout io.Writer
	stderr io.Writer
	tty    bool
}

func stdOutput() output {
	return output{stdout: os.Stdout, stderr: os.Stderr, tty: isTTY(os.Stdout)}
}

// emit 按契约输出结果；text 只在 TTY 下调用。
func (o output) emit(v any, text func(w io.Writer)) {
	if o.tty && text != nil {
		text(o.stdout)
		return
	}
	enc := json.NewEncoder(o.stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// errorReport 是失败时的 JSON 输出。
type errorReport struct {
	Error  string             `json:"error"`
	Kind   string             `json:"kind,omitempty"`
	Fields []fieldErrorReport `json:"fields,omitempty"`
}

type fieldErrorReport struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (o output) emitError(err error, kind string) {
	if !o.tty {
		enc := json.NewEncoder(o.stdout)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(errorReport{Error: err.Error(), Kind: kind, Fields: fieldErrors(err)})
	}
	o.printError(err)
}

// printError 只向 stderr 输出错误说明（字段错误逐行列出）。
func (o output) printError(err error) {
	if fields := fieldErrors(err); len(fields) > 0 {
		for _, f := range fields {
			fmt.Fprintf(o.stderr, "%s: %s\n", f.Field, f.Reason)
		}
		return
	}
	fmt.Fprintf(o.stderr, "错误：%v\n", err)
}

// fieldErrors 汇总本地校验与服务端 400 返回的字段错误。
func fieldErrors(err error) []fieldErrorReport {
	var out []fieldErrorReport
	for _, ve := range domain.ValidationFields(err) {
		out = append(out, fieldErrorReport{Field: ve.Field, Reason: ve.Reason})
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		for _, f := range se.Fields {
			out = append(out, fieldErrorReport{Field: f.Field, Reason: f.Reason})
		}
	}
	return out
}

// fail 输出错误并按分类返回退出码。
func (e *env) fail(err error) int {
	kind := api.Classify(err)
	e.out.emitError(err, string(kind))
	return e.exitCode(kind)
}

// exitCode：校验类为 2，其余为 1；网络错误额外提示检查服务地址。
func (e *env) exitCode(kind api.Kind) int {
	switch kind {
	case api.KindValidation:
		return exitUsage
	case api.KindNetwork:
		fmt.Fprintf(e.out.stderr, "无法连接 %s，请确认服务已启动或稍后重试\n", e.cfg.APIURL)
	}
	return exitRuntime
}

func usageError(w io.Writer, err error, usage string) int {
	fmt.Fprintf(w, "参数错误：%v\n\n", err)
	fmt.Fprint(w, usage)
	return exitUsage
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  closetube <命令> [参数]

命令：
  list      列出视频（搜索/分组/筛选/排序）
  stats     统计面板
  upload    上传视频外链
  like      点赞
  view      打开视频（计一次观看）
  comments  查看评论
  comment   发表评论
  preview   解析视频链接的预览信息
  ping      检查 API 连通性
  browse    交互式浏览（需要终端）

公共参数：
  --api URL       API 地址（默认 http://localhost:8000）
  --config PATH   配置文件（默认 ./closetube.json，可选）
  --timeout SEC   请求超时秒数（1-120）
  -v, --verbose   输出调试日志到 stderr

stdout 不是终端时只输出一个 JSON 值。
使用 "closetube <命令> --help" 查看详细说明。
`)
}
