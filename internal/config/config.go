package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/John-Robertt/closetube/internal/domain"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件/.env/环境变量无法读取、解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是 cwd 下自动发现的配置文件名（可选）。
	FileName = "closetube.json"
	// DotEnvName 是 cwd 下自动读取的 .env 文件名（可选）。
	DotEnvName = ".env"

	DefaultAPIURL           = "http://localhost:8000"
	DefaultTimeoutSeconds   = 20
	DefaultSearchDebounceMS = 300
)

// 环境变量名。
const (
	EnvAPIURL         = "CLOSETUBE_API_URL"
	EnvProxy          = "CLOSETUBE_PROXY"
	EnvTimeout        = "CLOSETUBE_TIMEOUT"
	EnvSearchDebounce = "CLOSETUBE_SEARCH_DEBOUNCE_MS"
	EnvDefaultGroup   = "CLOSETUBE_DEFAULT_GROUP"
	EnvDefaultSort    = "CLOSETUBE_DEFAULT_SORT"

	// envAPIURLCompat 是 Web 前端使用的变量名，作为 CLOSETUBE_API_URL 的兜底。
	envAPIURLCompat = "NEXT_PUBLIC_API_URL"
)

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖配置文件中的任何值（包括空串）。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时尝试 <cwd>/closetube.json（可选）。
	ConfigPath string

	APIURL    string
	APIURLSet bool

	TimeoutSeconds    int
	TimeoutSecondsSet bool
}

// LookupFunc 与 os.LookupEnv 签名一致。
type LookupFunc func(key string) (string, bool)

// FileConfig 对应 closetube.json 的解析结构。
type FileConfig struct {
	APIURL           string       `json:"api_url"`
	Proxy            *ProxyConfig `json:"proxy"`
	TimeoutSeconds   int          `json:"timeout_seconds"`
	SearchDebounceMS *int         `json:"search_debounce_ms"`
	DefaultGroup     string       `json:"default_group"`
	DefaultSort      string       `json:"default_sort"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置（调用方直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	APIURL         string         `json:"api_url"`
	ProxyURL       string         `json:"proxy_url,omitempty"`
	Timeout        time.Duration  `json:"-"`
	SearchDebounce time.Duration  `json:"-"`
	DefaultGroup   string         `json:"default_group,omitempty"`
	DefaultSort    domain.SortKey `json:"default_sort"`

	// Sources 记录生效的配置来源，便于 --verbose 排查。
	Sources []string `json:"sources"`
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 使用进程环境变量加载配置。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	return Load(cwd, cli, os.LookupEnv)
}

// Load 发现并读取配置，然后按固定优先级合并为最终配置。
//
// 覆盖优先级（固定）：
// - CLI 参数 > 进程环境变量 > <cwd>/.env > 配置文件 > 内置默认
// - .env 只被读取，不会写回进程环境
// - 配置文件：--config 显式指定时必须存在；否则 <cwd>/closetube.json 可选
func Load(cwd string, cli CLIArgs, lookup LookupFunc) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	var sources []string

	cfgPath := filepath.Join(cwdAbs, FileName)
	explicit := strings.TrimSpace(cli.ConfigPath) != ""
	if explicit {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && explicit {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if exists {
		sources = append(sources, cfgPath)
	}

	envPath := filepath.Join(cwdAbs, DotEnvName)
	dotenv, err := readDotEnv(envPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
	}
	if dotenv != nil {
		sources = append(sources, envPath)
	}

	// env：进程环境优先，其次 .env。
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		if v, ok := dotenv[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		return "", false
	}

	eff, err := merge(cli, fc, env)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.Sources = sources
	return eff, nil
}

func merge(cli CLIArgs, fc FileConfig, env LookupFunc) (EffectiveConfig, error) {
	// api_url：CLI > env > .env > config > 默认
	apiURL := DefaultAPIURL
	if strings.TrimSpace(fc.APIURL) != "" {
		apiURL = strings.TrimSpace(fc.APIURL)
	}
	if v, ok := env(envAPIURLCompat); ok {
		apiURL = v
	}
	if v, ok := env(EnvAPIURL); ok {
		apiURL = v
	}
	if cli.APIURLSet {
		apiURL = strings.TrimSpace(cli.APIURL)
	}
	if err := validateHTTPURL("api_url", apiURL); err != nil {
		return EffectiveConfig{}, err
	}
	apiURL = strings.TrimRight(apiURL, "/")

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if v, ok := env(EnvProxy); ok {
		proxyURL = v
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%q", proxyURL)
		}
	}

	timeout := fc.TimeoutSeconds
	if timeout == 0 {
		timeout = DefaultTimeoutSeconds
	}
	if v, ok := env(EnvTimeout); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("%s 必须是整数秒：%q", EnvTimeout, v)
		}
		timeout = n
	}
	if cli.TimeoutSecondsSet {
		timeout = cli.TimeoutSeconds
	}
	timeout = clamp(timeout, 1, 120)

	debounce := DefaultSearchDebounceMS
	if fc.SearchDebounceMS != nil {
		debounce = *fc.SearchDebounceMS
	}
	if v, ok := env(EnvSearchDebounce); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("%s 必须是整数毫秒：%q", EnvSearchDebounce, v)
		}
		debounce = n
	}
	debounce = clamp(debounce, 0, 2000)

	group := strings.TrimSpace(fc.DefaultGroup)
	if v, ok := env(EnvDefaultGroup); ok {
		group = v
	}
	if group == domain.AllGroups {
		group = ""
	}

	sortRaw := fc.DefaultSort
	if v, ok := env(EnvDefaultSort); ok {
		sortRaw = v
	}
	sortKey := domain.SortLatest
	if strings.TrimSpace(sortRaw) != "" {
		k, ok := domain.ParseSortKey(sortRaw)
		if !ok {
			return EffectiveConfig{}, fmt.Errorf("default_sort 只能是 latest/oldest/views/likes，实际是 %q", sortRaw)
		}
		sortKey = k
	}

	return EffectiveConfig{
		APIURL:         apiURL,
		ProxyURL:       proxyURL,
		Timeout:        time.Duration(timeout) * time.Second,
		SearchDebounce: time.Duration(debounce) * time.Millisecond,
		DefaultGroup:   group,
		DefaultSort:    sortKey,
	}, nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s 必须是绝对地址：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

// readDotEnv 读取 .env；文件不存在时返回 nil map。
func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return godotenv.Read(path)
}
