package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/arplayback/internal/monitoring"
)

func TestNewDataset(t *testing.T) {
	ds := NewDataset(5)
	if ds.Len() != 5 || ds.Dir != "/capture" {
		t.Fatalf("NewDataset(5) = %d frames in %q", ds.Len(), ds.Dir)
	}
}

func TestNewStoredDataset(t *testing.T) {
	ds, fsys := NewStoredDataset(t, 2)
	if !fsys.Exists("/capture/" + ds.Frames[1].ImagePath) {
		t.Error("frame image was not written")
	}
}

func TestCaptureLogs(t *testing.T) {
	logs := CaptureLogs(t)
	monitoring.Logf("hello %d", 1)
	if len(*logs) != 1 || (*logs)[0] != "hello %d" {
		t.Errorf("captured %v", *logs)
	}
}

func TestDecodeJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteString(`{"n": 3}`)
	var v struct{ N int }
	DecodeJSON(t, rec, &v)
	if v.N != 3 {
		t.Errorf("N = %d, want 3", v.N)
	}
	if *IntPtr(4) != 4 {
		t.Error("IntPtr")
	}
}
