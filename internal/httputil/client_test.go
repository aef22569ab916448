package httputil

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestMockHTTPClient_Queue(t *testing.T) {
	mock := NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"frame_index": 2}`).
		AddErrorResponse(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodGet, "http://playback/status", nil)
	resp, err := mock.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var st struct {
		FrameIndex int `json:"frame_index"`
	}
	if err := DecodeJSONResponse(resp, &st); err != nil || st.FrameIndex != 2 {
		t.Errorf("decoded %+v, %v", st, err)
	}

	if _, err := mock.Do(req); err == nil || !strings.Contains(err.Error(), "refused") {
		t.Errorf("second Do() error = %v", err)
	}

	resp, err = mock.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("drained queue should answer 200, got %v %v", resp, err)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount() = %d, want 3", mock.RequestCount())
	}
}

func TestDecodeJSONResponse_Errors(t *testing.T) {
	mock := NewMockHTTPClient().
		AddResponse(http.StatusNotFound, `{"error": "frame 99 out of range"}`).
		AddResponse(http.StatusBadGateway, `upstream`).
		AddResponse(http.StatusOK, `not json`)
	req, _ := http.NewRequest(http.MethodGet, "http://playback/frame?index=99", nil)

	resp, _ := mock.Do(req)
	err := DecodeJSONResponse(resp, &struct{}{})
	if err == nil || !strings.Contains(err.Error(), "out of range") || !strings.Contains(err.Error(), "404") {
		t.Errorf("404 error = %v", err)
	}

	resp, _ = mock.Do(req)
	if err := DecodeJSONResponse(resp, nil); err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("502 error = %v", err)
	}

	resp, _ = mock.Do(req)
	if err := DecodeJSONResponse(resp, &struct{}{}); err == nil {
		t.Error("invalid JSON decoded without error")
	}
}
