package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/John-Robertt/closetube/internal/devapi"
	"github.com/John-Robertt/closetube/internal/stats"
	"github.com/John-Robertt/closetube/internal/viewmodel"
)

// buildCLI 编译 closetube 到临时目录，返回可执行文件路径。
func buildCLI(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	bin := filepath.Join(t.TempDir(), "closetube")
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/closetube")
	cmd.Dir = repoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("编译失败：%v\n%s", err, out)
	}
	return bin
}

func runCLI(t *testing.T, bin, dir string, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	err := cmd.Run()
	var ee *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &ee):
		code = ee.ExitCode()
	default:
		t.Fatalf("启动命令失败：%v", err)
	}
	return out.String(), errOut.String(), code
}

func TestCLI_NoTTY_StdoutIsSingleJSON(t *testing.T) {
	// 锁定对外契约：stdout 不是 TTY 时只输出一个 JSON 值，说明与日志只走 stderr。
	now := time.Now()
	srv := httptest.NewServer(adaptor.FiberApp(devapi.New(devapi.Options{Seed: devapi.DefaultSeed(now)})))
	defer srv.Close()

	bin := buildCLI(t)
	dir := t.TempDir()

	t.Run("list", func(t *testing.T) {
		stdout, stderr, code := runCLI(t, bin, dir, "list", "--api", srv.URL)
		if code != exitOK {
			t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr)
		}

		dec := json.NewDecoder(strings.NewReader(stdout))
		var v viewmodel.View
		if err := dec.Decode(&v); err != nil {
			t.Fatalf("stdout 不是合法的 View JSON：%v\nstdout=%q", err, stdout)
		}
		if dec.More() {
			t.Fatalf("stdout 只能包含一个 JSON 值：%q", stdout)
		}
		if v.State != viewmodel.StateLoaded || v.Total != 6 || len(v.Visible) != 6 {
			t.Fatalf("期望 6 个视频且状态为 loaded，实际 state=%s total=%d visible=%d", v.State, v.Total, len(v.Visible))
		}
		if v.Visible[0].ID != "1" {
			t.Fatalf("期望默认按最新排序，首个为 1，实际 %s", v.Visible[0].ID)
		}
		if strings.Contains(stderr, "{") {
			t.Fatalf("stderr 不应包含 JSON：%q", stderr)
		}
	})

	t.Run("list with filters", func(t *testing.T) {
		stdout, stderr, code := runCLI(t, bin, dir, "list", "--api="+srv.URL, "--group", "가족", "--sort", "views")
		if code != exitOK {
			t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr)
		}
		var v viewmodel.View
		if err := json.Unmarshal([]byte(stdout), &v); err != nil {
			t.Fatalf("stdout 不是合法 JSON：%v", err)
		}
		if len(v.Visible) != 2 || v.Visible[0].ID != "4" || v.Visible[1].ID != "1" {
			t.Fatalf("期望 [4 1]，实际 %+v", v.Visible)
		}
	})

	t.Run("stats out", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "reports", "stats.json")
		stdout, stderr, code := runCLI(t, bin, dir, "stats", "--api", srv.URL, "--out", out)
		if code != exitOK {
			t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr)
		}
		b, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("读取 --out 文件失败：%v", err)
		}
		var fromFile, fromStdout stats.Report
		if err := json.Unmarshal(b, &fromFile); err != nil {
			t.Fatalf("--out 文件不是合法 JSON：%v", err)
		}
		if err := json.Unmarshal([]byte(stdout), &fromStdout); err != nil {
			t.Fatalf("stdout 不是合法 JSON：%v", err)
		}
		if fromFile.Totals.Videos != 6 || fromStdout.Totals.Videos != 6 {
			t.Fatalf("期望 6 个视频，实际 file=%d stdout=%d", fromFile.Totals.Videos, fromStdout.Totals.Videos)
		}
		if fromFile.Totals.Views != 49 {
			t.Fatalf("期望总观看 49，实际 %d", fromFile.Totals.Views)
		}
	})

	t.Run("upload validation", func(t *testing.T) {
		stdout, stderr, code := runCLI(t, bin, dir, "upload", "--api", srv.URL, "--no-preview", "--url", "https://example.com/video")
		if code != exitUsage {
			t.Fatalf("期望退出码 2，实际 %d\nstderr=%s", code, stderr)
		}
		var rep errorReport
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("stdout 不是合法的错误 JSON：%v\nstdout=%q", err, stdout)
		}
		if rep.Kind != "validation" || len(rep.Fields) == 0 {
			t.Fatalf("期望 validation 且带字段错误，实际 %+v", rep)
		}
	})
}

func TestCLI_BadArgs_ExitUsage(t *testing.T) {
	bin := buildCLI(t)
	dir := t.TempDir()

	for _, args := range [][]string{
		{"list", "--sort", "random"},
		{"nope"},
		{"like"},
	} {
		_, _, code := runCLI(t, bin, dir, args...)
		if code != exitUsage {
			t.Fatalf("%v：期望退出码 2，实际 %d", args, code)
		}
	}
}

func TestCLI_Unreachable_ErrorJSON(t *testing.T) {
	srv := httptest.NewServer(adaptor.FiberApp(devapi.New(devapi.Options{})))
	url := srv.URL
	srv.Close()

	bin := buildCLI(t)
	stdout, stderr, code := runCLI(t, bin, t.TempDir(), "list", "--api", url, "--timeout", "2")
	if code != exitRuntime {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	var v viewmodel.View
	if err := json.Unmarshal([]byte(stdout), &v); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\nstdout=%q", err, stdout)
	}
	if v.State != viewmodel.StateError || v.Error == "" || len(v.Visible) != 0 {
		t.Fatalf("期望 error 状态且没有任何视频，实际 %+v", v)
	}
	if !strings.Contains(stderr, "无法连接") {
		t.Fatalf("stderr 缺少连接提示：%q", stderr)
	}
}
