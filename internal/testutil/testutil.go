// Package testutil provides shared fixtures for the playback packages' tests.
package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/fsutil"
	"github.com/banshee-data/arplayback/internal/monitoring"
)

// NewDataset returns an in-memory synthetic dataset of n frames at 30fps
// rooted at /capture. Frame i has timestamp 1000 + i/30.
func NewDataset(n int) *capture.Dataset {
	return capture.NewSyntheticGenerator("/capture", n).Dataset()
}

// NewStoredDataset writes a synthetic capture of n frames, including frame
// files, to a fresh MemoryFileSystem and returns both.
func NewStoredDataset(t *testing.T, n int) (*capture.Dataset, *fsutil.MemoryFileSystem) {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	ds, err := capture.NewSyntheticGenerator("/capture", n).Generate(fsys)
	if err != nil {
		t.Fatalf("generate synthetic capture: %v", err)
	}
	return ds, fsys
}

// IntPtr returns a pointer to v, for optional frame bounds.
func IntPtr(v int) *int { return &v }

// CaptureLogs redirects monitoring.Logf into the returned slice for the
// duration of the test.
func CaptureLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	prev := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.SetLogger(prev) })
	return &lines
}

// AssertStatusCode checks that the response status code matches want.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// DecodeJSON unmarshals a recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
