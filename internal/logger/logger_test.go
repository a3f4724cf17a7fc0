package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// chdirTemp 切到临时目录并返回其真实路径（macOS 下 TempDir 是符号链接）
func chdirTemp(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	real, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	return real
}

func TestResolveLogFilePath(t *testing.T) {
	t.Run("blank options use workdir default", func(t *testing.T) {
		workDir := chdirTemp(t)

		got, err := resolveLogFilePath(Options{Dir: "  ", Filename: "\t"})
		if err != nil {
			t.Fatalf("resolve default log path failed: %v", err)
		}
		realGot, err := filepath.EvalSymlinks(got)
		if err != nil {
			t.Fatalf("resolve result symlink failed: %v", err)
		}
		want := filepath.Join(workDir, defaultDirName, defaultFilename)
		if realGot != want {
			t.Fatalf("log path got=%s want=%s", realGot, want)
		}
	})

	t.Run("explicit dir is created and probed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "logs")

		got, err := resolveLogFilePath(Options{Dir: dir, Filename: "engine.log"})
		if err != nil {
			t.Fatalf("resolve explicit log path failed: %v", err)
		}
		if got != filepath.Join(dir, "engine.log") {
			t.Fatalf("unexpected log path: %s", got)
		}
		// 启动期的试开会把文件建出来，权限问题不留到首条日志
		if _, err := os.Stat(got); err != nil {
			t.Fatalf("expected probe to create log file: %v", err)
		}
	})
}

func TestIsDebugMode(t *testing.T) {
	for mode, want := range map[string]bool{
		"debug":    true,
		"DEBUG":    true,
		" Debug ":  true,
		"release":  false,
		"":         false,
		"debugger": false,
	} {
		if got := isDebugMode(mode); got != want {
			t.Fatalf("isDebugMode(%q) = %v, want %v", mode, got, want)
		}
	}
}

func TestNewReleaseWritesJSONToFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Sugar().Infow("release-log-test", "affiliate_id", "AFF-001")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("log line is not json: %v, raw=%s", err, content)
	}
	if entry["message"] != "release-log-test" {
		t.Fatalf("message field got=%v", entry["message"])
	}
	if entry["affiliate_id"] != "AFF-001" {
		t.Fatalf("structured field got=%v", entry["affiliate_id"])
	}
	if entry["level"] != "info" {
		t.Fatalf("level field got=%v", entry["level"])
	}
	if entry["time"] == nil {
		t.Fatalf("expected time field in log line")
	}
}

func TestNewDebugSkipsLogFile(t *testing.T) {
	tmpDir := t.TempDir()

	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	// debug 模式只写控制台，连日志目录探测都不应发生
	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file, stat err=%v", err)
	}
}

func TestAccessorsFallBackBeforeInit(t *testing.T) {
	saved := L
	L = nil
	t.Cleanup(func() { L = saved })

	for name, got := range map[string]interface{}{
		"Z":         Z(),
		"S":         S(),
		"SW":        SW("component", "test"),
		"StdLogger": StdLogger(),
	} {
		if got == nil {
			t.Fatalf("%s() returned nil before Init", name)
		}
	}

	// 包级写入走兜底实例，不应 panic
	Infow("fallback-write", "ok", true)
}

func TestPositiveOr(t *testing.T) {
	for _, tc := range []struct{ value, fallback, want int }{
		{value: 5, fallback: 100, want: 5},
		{value: 0, fallback: 100, want: 100},
		{value: -3, fallback: 7, want: 7},
	} {
		if got := positiveOr(tc.value, tc.fallback); got != tc.want {
			t.Fatalf("positiveOr(%d, %d) = %d, want %d", tc.value, tc.fallback, got, tc.want)
		}
	}
}
