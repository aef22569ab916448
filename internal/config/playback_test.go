package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "playback.json", `{
		"dataset_dir": "/data/walk",
		"loop": true,
		"start_frame": 2,
		"end_frame": 40,
		"rate": 2.5,
		"http_addr": ":9000"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &PlaybackConfig{
		DatasetDir:     "/data/walk",
		LoopInfinitely: ptrBool(true),
		StartFrame:     ptrInt(2),
		EndFrame:       ptrInt(40),
		Rate:           ptrFloat64(2.5),
		HTTPAddr:       ptrString(":9000"),
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAML(t *testing.T) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := writeFile(t, "playback"+ext, `
dataset_dir: /data/walk
manual_stepping: true
exit_on_finish: true
grpc_addr: "127.0.0.1:6000"
watch_interval: 250ms
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", ext, err)
		}
		if cfg.DatasetDir != "/data/walk" || !cfg.GetManualStepping() || !cfg.GetExitOnFinish() {
			t.Errorf("Load(%s) = %+v", ext, cfg)
		}
		if got := cfg.GetGRPCAddr(); got != "127.0.0.1:6000" {
			t.Errorf("GetGRPCAddr() = %q", got)
		}
		if got := cfg.GetWatchInterval(); got != 250*time.Millisecond {
			t.Errorf("GetWatchInterval() = %v", got)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "playback.toml", "x = 1", "extension"},
		{"bad json", "playback.json", "{", "failed to parse"},
		{"bad yaml", "playback.yaml", "loop: [", "failed to parse"},
		{"negative start", "playback.json", `{"start_frame": -1}`, "start_frame"},
		{"end before start", "playback.json", `{"start_frame": 5, "end_frame": 5}`, "end_frame"},
		{"zero rate", "playback.json", `{"rate": 0}`, "rate"},
		{"rate too high", "playback.yaml", "rate: 20", "rate"},
		{"bad watch interval", "playback.json", `{"watch_interval": "soon"}`, "watch_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestLoad_TooLarge(t *testing.T) {
	big := `{"dataset_dir": "` + strings.Repeat("a", maxFileSize) + `"}`
	_, err := Load(writeFile(t, "big.json", big))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Load() error = %v, want too large", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := &PlaybackConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty config invalid: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"loop", cfg.GetLoopInfinitely(), false},
		{"manual", cfg.GetManualStepping(), false},
		{"paused", cfg.GetPaused(), false},
		{"exit on finish", cfg.GetExitOnFinish(), false},
		{"rate", cfg.GetRate(), DefaultRate},
		{"http", cfg.GetHTTPAddr(), DefaultHTTPAddr},
		{"grpc", cfg.GetGRPCAddr(), DefaultGRPCAddr},
		{"db", cfg.GetDBPath(), DefaultDBPath},
		{"plots", cfg.GetPlotsDir(), DefaultPlotsDir},
		{"watch", cfg.GetWatchInterval(), time.Second},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s default = %v, want %v", c.name, c.got, c.want)
		}
	}
	if cfg.GetStartFrame() != nil || cfg.GetEndFrame() != nil {
		t.Error("frame bounds should default to nil")
	}
}

func TestGetFrameBoundsCopy(t *testing.T) {
	cfg := &PlaybackConfig{StartFrame: ptrInt(3)}
	got := cfg.GetStartFrame()
	*got = 9
	if *cfg.StartFrame != 3 {
		t.Error("GetStartFrame returned the config's own pointer")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := &PlaybackConfig{DatasetDir: "/a"}
	cfg.ApplyFlags("")
	if cfg.DatasetDir != "/a" {
		t.Errorf("empty flag overrode dataset dir")
	}
	cfg.ApplyFlags("/b")
	if cfg.DatasetDir != "/b" {
		t.Errorf("DatasetDir = %q, want /b", cfg.DatasetDir)
	}
}
