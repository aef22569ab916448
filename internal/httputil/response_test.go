package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]int{"frame": 3})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got["frame"] != 3 {
		t.Errorf("body = %q (%v)", w.Body.String(), err)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(http.ResponseWriter)
		code int
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad") }, http.StatusBadRequest},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "gone") }, http.StatusNotFound},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.fn(w)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}

func TestWriteBytes(t *testing.T) {
	w := httptest.NewRecorder()
	WriteBytes(w, "image/jpeg", []byte{1, 2, 3})
	if w.Header().Get("Content-Type") != "image/jpeg" || w.Header().Get("Content-Length") != "3" {
		t.Errorf("headers = %v", w.Header())
	}
	if w.Body.Len() != 3 {
		t.Errorf("body length = %d", w.Body.Len())
	}
}

func TestRequireMethod(t *testing.T) {
	w := httptest.NewRecorder()
	if RequireMethod(w, httptest.NewRequest(http.MethodGet, "/next", nil), http.MethodPost) {
		t.Fatal("GET accepted for a POST route")
	}
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != http.MethodPost {
		t.Errorf("status = %d, Allow = %q", w.Code, w.Header().Get("Allow"))
	}

	w = httptest.NewRecorder()
	if !RequireMethod(w, httptest.NewRequest(http.MethodPost, "/next", nil), http.MethodPost) {
		t.Error("POST rejected")
	}
}

func TestQueryParsing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/frame?index=7&rate=1.5&bad=x", nil)

	if v, err := QueryInt(r, "index"); err != nil || v != 7 {
		t.Errorf("QueryInt(index) = %d, %v", v, err)
	}
	if v, err := QueryFloat(r, "rate"); err != nil || v != 1.5 {
		t.Errorf("QueryFloat(rate) = %v, %v", v, err)
	}
	for _, name := range []string{"bad", "missing"} {
		if _, err := QueryInt(r, name); err == nil {
			t.Errorf("QueryInt(%s) succeeded", name)
		}
		if _, err := QueryFloat(r, name); err == nil {
			t.Errorf("QueryFloat(%s) succeeded", name)
		}
	}
}
