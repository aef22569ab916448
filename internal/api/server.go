// Package api serves playback control and frame inspection over HTTP.
package api

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/db"
	"github.com/banshee-data/arplayback/internal/httputil"
	"github.com/banshee-data/arplayback/internal/playback"
	"github.com/banshee-data/arplayback/internal/provider"
	"github.com/banshee-data/arplayback/internal/report"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const defaultSessionLimit = 20

// SessionLister is the part of the session store the API reads.
type SessionLister interface {
	ListSessions(limit int) ([]db.PlaybackSession, error)
}

type Server struct {
	driver   *playback.Driver
	frames   provider.Provider
	sessions SessionLister
	timeline *report.Timeline
}

// NewServer returns a Server controlling driver. frames, sessions and
// timeline are optional; their routes answer 503 when unset.
func NewServer(driver *playback.Driver, frames provider.Provider, sessions SessionLister, timeline *report.Timeline) *Server {
	return &Server{
		driver:   driver,
		frames:   frames,
		sessions: sessions,
		timeline: timeline,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/next", s.handleNext)
	mux.HandleFunc("/previous", s.handlePrevious)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/pause", s.handlePause)
	mux.HandleFunc("/play", s.handlePlay)
	mux.HandleFunc("/rate", s.handleRate)
	mux.HandleFunc("/frame", s.handleFrame)
	mux.HandleFunc("/frame/current", s.handleCurrentFrame)
	mux.HandleFunc("/frame/current/image", s.handleCurrentImage)
	mux.HandleFunc("/frame/current/depth", s.handleCurrentDepth)
	mux.HandleFunc("/frame/current/pose", s.handleCurrentPose)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/charts/timeline", s.handleTimelineChart)
	return mux
}

// MoveResponse answers the step routes.
type MoveResponse struct {
	Moved  bool            `json:"moved"`
	Status playback.Status `json:"status"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, s.driver.Snapshot())
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	moved := s.driver.Step()
	httputil.WriteJSONOK(w, MoveResponse{Moved: moved, Status: s.driver.Snapshot()})
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	moved := s.driver.StepBack()
	httputil.WriteJSONOK(w, MoveResponse{Moved: moved, Status: s.driver.Snapshot()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	s.driver.Reset()
	if s.timeline != nil {
		s.timeline.Reset()
	}
	httputil.WriteJSONOK(w, s.driver.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	s.driver.SetPaused(true)
	httputil.WriteJSONOK(w, s.driver.Snapshot())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	s.driver.SetPaused(false)
	httputil.WriteJSONOK(w, s.driver.Snapshot())
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	rate, err := httputil.QueryFloat(r, "value")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.driver.SetRate(rate); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.driver.Snapshot())
}

// handleFrame looks up any frame by index without moving the cursor.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	index, err := httputil.QueryInt(r, "index")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	var (
		f      capture.FrameMetadata
		getErr error
	)
	s.driver.WithReader(func(rd *playback.Reader) {
		f, getErr = rd.GetFrame(index)
	})
	if errors.Is(getErr, playback.ErrFrameOutOfRange) {
		httputil.NotFound(w, getErr.Error())
		return
	}
	if getErr != nil {
		httputil.InternalServerError(w, getErr.Error())
		return
	}
	httputil.WriteJSONOK(w, playback.NewFrameView(index, f))
}

func (s *Server) handleCurrentFrame(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	var (
		view playback.FrameView
		ok   bool
	)
	s.driver.WithReader(func(rd *playback.Reader) {
		view, ok = rd.CurrentView()
	})
	if !ok {
		httputil.NotFound(w, "no current frame")
		return
	}
	httputil.WriteJSONOK(w, view)
}

func (s *Server) requireFrames(w http.ResponseWriter, r *http.Request) bool {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return false
	}
	if s.frames == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "frame provider not configured")
		return false
	}
	return true
}

func (s *Server) handleCurrentImage(w http.ResponseWriter, r *http.Request) {
	if !s.requireFrames(w, r) {
		return
	}
	img, err := s.frames.AcquireImage()
	if err != nil {
		writeProviderError(w, err)
		return
	}
	w.Header().Set("X-Frame-Sequence", strconv.Itoa(img.Sequence))
	w.Header().Set("X-Frame-Timestamp", strconv.FormatFloat(img.Timestamp, 'f', -1, 64))
	httputil.WriteBytes(w, http.DetectContentType(img.Data), img.Data)
}

// handleCurrentDepth returns the depth buffer, or the confidence buffer
// when ?buffer=confidence.
func (s *Server) handleCurrentDepth(w http.ResponseWriter, r *http.Request) {
	if !s.requireFrames(w, r) {
		return
	}
	depth, err := s.frames.AcquireDepth()
	if err != nil {
		writeProviderError(w, err)
		return
	}
	data := depth.Depth
	if r.URL.Query().Get("buffer") == "confidence" {
		data = depth.Confidence
	}
	w.Header().Set("X-Frame-Sequence", strconv.Itoa(depth.Sequence))
	w.Header().Set("X-Depth-Width", strconv.Itoa(depth.Resolution.Width))
	w.Header().Set("X-Depth-Height", strconv.Itoa(depth.Resolution.Height))
	httputil.WriteBytes(w, "application/octet-stream", data)
}

// PoseResponse answers /frame/current/pose.
type PoseResponse struct {
	Pose        []float64 `json:"pose"`
	Orientation string    `json:"orientation"`
}

func (s *Server) handleCurrentPose(w http.ResponseWriter, r *http.Request) {
	if !s.requireFrames(w, r) {
		return
	}
	pose, o, err := s.frames.AcquirePose()
	if err != nil {
		writeProviderError(w, err)
		return
	}
	resp := PoseResponse{Orientation: o.String()}
	if pose.IsFinite() {
		resp.Pose = pose.ColumnMajor()
	}
	httputil.WriteJSONOK(w, resp)
}

func writeProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provider.ErrNoFrame), errors.Is(err, provider.ErrNoDepth):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, provider.ErrNotStarted):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.sessions == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "session store not configured")
		return
	}
	limit := defaultSessionLimit
	if r.URL.Query().Has("limit") {
		v, err := httputil.QueryInt(r, "limit")
		if err != nil || v <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = v
	}
	sessions, err := s.sessions.ListSessions(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to list sessions")
		log.Printf("failed to list sessions: %v", err)
		return
	}
	if sessions == nil {
		sessions = []db.PlaybackSession{}
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) handleTimelineChart(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.timeline == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "timeline not recorded")
		return
	}
	var buf bytes.Buffer
	if err := report.TimelineChart(&buf, s.timeline.Samples()); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteBytes(w, "text/html; charset=utf-8", buf.Bytes())
}
