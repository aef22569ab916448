package security

import (
	"path/filepath"
	"testing"
)

func TestResolveWithinDirectory(t *testing.T) {
	base := filepath.Join("/data", "capture-01")

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "plain file", rel: "images/frame_00000.jpg", want: filepath.Join(base, "images", "frame_00000.jpg")},
		{name: "dot segments inside", rel: "images/../depth/frame_00001.bin", want: filepath.Join(base, "depth", "frame_00001.bin")},
		{name: "escape via parent", rel: "../other/capture.json", wantErr: true},
		{name: "bare parent", rel: "..", wantErr: true},
		{name: "absolute", rel: "/etc/passwd", wantErr: true},
		{name: "empty", rel: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithinDirectory(base, tt.rel)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveWithinDirectory(%q) = %q, want error", tt.rel, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveWithinDirectory(%q) error = %v", tt.rel, err)
			}
			if got != tt.want {
				t.Errorf("ResolveWithinDirectory(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	plots := t.TempDir()

	if err := ValidateOutputPath(filepath.Join(plots, "trajectory.png"), []string{plots}); err != nil {
		t.Errorf("expected path inside plots dir to be allowed: %v", err)
	}
	if err := ValidateOutputPath(filepath.Join(plots, "..", "escape.png"), []string{plots}); err == nil {
		t.Error("expected path outside plots dir to be rejected")
	}
	if err := ValidateOutputPath(filepath.Join(plots, "x.png"), nil); err == nil {
		t.Error("expected error with no allowed directories")
	}
}
