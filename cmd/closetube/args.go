package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/closetube/internal/domain"
)

// globalArgs 是所有子命令共享的参数。
type globalArgs struct {
	ConfigPath string

	APIURL    string
	APIURLSet bool

	TimeoutSeconds    int
	TimeoutSecondsSet bool

	Verbose bool
}

// flagValue 识别 "--name VALUE" 与 "--name=VALUE" 两种写法。
// matched=false 表示 args[*i] 不是该参数。
func flagValue(args []string, i *int, name string) (value string, matched bool, err error) {
	a := args[*i]
	switch {
	case a == name:
		if *i+1 >= len(args) {
			return "", true, fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		return args[*i], true, nil
	case strings.HasPrefix(a, name+"="):
		return strings.TrimPrefix(a, name+"="), true, nil
	default:
		return "", false, nil
	}
}

// parseGlobal 尝试把 args[*i] 当作公共参数解析。
func (g *globalArgs) parseGlobal(args []string, i *int) (bool, error) {
	if args[*i] == "--verbose" || args[*i] == "-v" {
		g.Verbose = true
		return true, nil
	}
	if v, ok, err := flagValue(args, i, "--config"); ok {
		if err != nil {
			return true, err
		}
		if strings.TrimSpace(v) == "" {
			return true, fmt.Errorf("--config 不能为空")
		}
		g.ConfigPath = v
		return true, nil
	}
	if v, ok, err := flagValue(args, i, "--api"); ok {
		if err != nil {
			return true, err
		}
		g.APIURL = v
		g.APIURLSet = true
		return true, nil
	}
	if v, ok, err := flagValue(args, i, "--timeout"); ok {
		if err != nil {
			return true, err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(v))
		if convErr != nil {
			return true, fmt.Errorf("--timeout 必须是整数秒，实际是 %q", v)
		}
		g.TimeoutSeconds = n
		g.TimeoutSecondsSet = true
		return true, nil
	}
	return false, nil
}

type listArgs struct {
	globalArgs

	Query        string
	Group        string
	GroupSet     bool
	Platforms    []domain.Platform
	FilterGroups []string
	Duration     domain.DurationBucket
	Sort         domain.SortKey
	SortSet      bool
	Dump         bool
}

func parseListArgs(args []string) (listArgs, error) {
	la := listArgs{Duration: domain.DurationAll}

	for i := 0; i < len(args); i++ {
		if ok, err := la.parseGlobal(args, &i); ok {
			if err != nil {
				return listArgs{}, err
			}
			continue
		}
		if args[i] == "--dump" {
			la.Dump = true
			continue
		}
		if v, ok, err := flagValue(args, &i, "--q"); ok {
			if err != nil {
				return listArgs{}, err
			}
			la.Query = v
			continue
		}
		if v, ok, err := flagValue(args, &i, "--group"); ok {
			if err != nil {
				return listArgs{}, err
			}
			la.Group = v
			la.GroupSet = true
			continue
		}
		if v, ok, err := flagValue(args, &i, "--platform"); ok {
			if err != nil {
				return listArgs{}, err
			}
			p, known := domain.ParsePlatform(v)
			if !known {
				return listArgs{}, fmt.Errorf("--platform 只能是 YouTube/Instagram/TikTok，实际是 %q", v)
			}
			la.Platforms = append(la.Platforms, p)
			continue
		}
		if v, ok, err := flagValue(args, &i, "--filter-group"); ok {
			if err != nil {
				return listArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return listArgs{}, fmt.Errorf("--filter-group 不能为空")
			}
			la.FilterGroups = append(la.FilterGroups, v)
			continue
		}
		if v, ok, err := flagValue(args, &i, "--duration"); ok {
			if err != nil {
				return listArgs{}, err
			}
			b, known := domain.ParseDurationBucket(v)
			if !known {
				return listArgs{}, fmt.Errorf("--duration 只能是 all/short/medium/long，实际是 %q", v)
			}
			la.Duration = b
			continue
		}
		if v, ok, err := flagValue(args, &i, "--sort"); ok {
			if err != nil {
				return listArgs{}, err
			}
			k, known := domain.ParseSortKey(v)
			if !known {
				return listArgs{}, fmt.Errorf("--sort 只能是 latest/oldest/views/likes，实际是 %q", v)
			}
			la.Sort = k
			la.SortSet = true
			continue
		}
		return listArgs{}, unexpectedArg(args[i])
	}
	return la, nil
}

type statsArgs struct {
	globalArgs

	Group    string
	GroupSet bool
	Out      string
	Top      int
}

func parseStatsArgs(args []string) (statsArgs, error) {
	sa := statsArgs{}

	for i := 0; i < len(args); i++ {
		if ok, err := sa.parseGlobal(args, &i); ok {
			if err != nil {
				return statsArgs{}, err
			}
			continue
		}
		if v, ok, err := flagValue(args, &i, "--out"); ok {
			if err != nil {
				return statsArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return statsArgs{}, fmt.Errorf("--out 不能为空")
			}
			sa.Out = v
			continue
		}
		if v, ok, err := flagValue(args, &i, "--group"); ok {
			if err != nil {
				return statsArgs{}, err
			}
			sa.Group = v
			sa.GroupSet = true
			continue
		}
		if v, ok, err := flagValue(args, &i, "--top"); ok {
			if err != nil {
				return statsArgs{}, err
			}
			n, convErr := strconv.Atoi(v)
			if convErr != nil || n <= 0 {
				return statsArgs{}, fmt.Errorf("--top 必须是正整数，实际是 %q", v)
			}
			sa.Top = n
			continue
		}
		return statsArgs{}, unexpectedArg(args[i])
	}
	return sa, nil
}

type uploadArgs struct {
	globalArgs

	Data      domain.UploadData
	NoPreview bool
}

func parseUploadArgs(args []string) (uploadArgs, error) {
	ua := uploadArgs{Data: domain.NewUploadData()}

	fields := map[string]*string{
		"--url":         &ua.Data.URL,
		"--title":       &ua.Data.Title,
		"--group":       &ua.Data.Group,
		"--description": &ua.Data.Description,
		"--author":      &ua.Data.Author,
		"--thumbnail":   &ua.Data.Thumbnail,
		"--duration":    &ua.Data.Duration,
	}

next:
	for i := 0; i < len(args); i++ {
		if ok, err := ua.parseGlobal(args, &i); ok {
			if err != nil {
				return uploadArgs{}, err
			}
			continue
		}
		switch args[i] {
		case "--no-preview":
			ua.NoPreview = true
			continue
		case "--allow-download":
			ua.Data.Privacy.DownloadDisabled = false
			continue
		case "--allow-share":
			ua.Data.Privacy.ExternalShareDisabled = false
			continue
		}
		for name, dst := range fields {
			v, ok, err := flagValue(args, &i, name)
			if !ok {
				continue
			}
			if err != nil {
				return uploadArgs{}, err
			}
			*dst = strings.TrimSpace(v)
			continue next
		}
		return uploadArgs{}, unexpectedArg(args[i])
	}
	if ua.Data.URL == "" {
		return uploadArgs{}, fmt.Errorf("缺少 --url")
	}
	return ua, nil
}

// idArgs 用于 like/view/comments/comment/preview：一个位置参数 + 可选的额外参数。
type idArgs struct {
	globalArgs

	ID     string
	Author string
	Text   string
}

func parseIDArgs(args []string, what string, withComment bool) (idArgs, error) {
	ia := idArgs{}

	for i := 0; i < len(args); i++ {
		if ok, err := ia.parseGlobal(args, &i); ok {
			if err != nil {
				return idArgs{}, err
			}
			continue
		}
		if withComment {
			if v, ok, err := flagValue(args, &i, "--author"); ok {
				if err != nil {
					return idArgs{}, err
				}
				ia.Author = v
				continue
			}
			if v, ok, err := flagValue(args, &i, "--text"); ok {
				if err != nil {
					return idArgs{}, err
				}
				ia.Text = v
				continue
			}
		}
		a := args[i]
		if strings.HasPrefix(a, "-") {
			return idArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		if ia.ID != "" {
			return idArgs{}, fmt.Errorf("重复的 %s：%q 与 %q", what, ia.ID, a)
		}
		ia.ID = a
	}
	if strings.TrimSpace(ia.ID) == "" {
		return idArgs{}, fmt.Errorf("缺少 %s", what)
	}
	return ia, nil
}

// parseGlobalOnly 用于 ping/browse 这类只接受公共参数的命令。
func parseGlobalOnly(args []string) (globalArgs, error) {
	g := globalArgs{}
	for i := 0; i < len(args); i++ {
		if ok, err := g.parseGlobal(args, &i); ok {
			if err != nil {
				return globalArgs{}, err
			}
			continue
		}
		return globalArgs{}, unexpectedArg(args[i])
	}
	return g, nil
}

func unexpectedArg(a string) error {
	if strings.HasPrefix(a, "-") {
		return fmt.Errorf("未知参数 %q", a)
	}
	return fmt.Errorf("多余的参数 %q", a)
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}
