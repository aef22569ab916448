package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/arplayback/internal/db"
	"github.com/banshee-data/arplayback/internal/httputil"
	"github.com/banshee-data/arplayback/internal/playback"
)

// Client drives a remote playback server over its HTTP API.
type Client struct {
	baseURL string
	http    httputil.HTTPClient
}

// NewClient returns a Client for the server at baseURL. A nil hc selects
// http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := httputil.DecodeJSONResponse(resp, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (playback.Status, error) {
	var st playback.Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

func (c *Client) move(ctx context.Context, path string) (MoveResponse, error) {
	var mr MoveResponse
	err := c.do(ctx, http.MethodPost, path, nil, &mr)
	return mr, err
}

// Next steps forward in the current direction.
func (c *Client) Next(ctx context.Context) (MoveResponse, error) {
	return c.move(ctx, "/next")
}

// Previous steps against the current direction.
func (c *Client) Previous(ctx context.Context) (MoveResponse, error) {
	return c.move(ctx, "/previous")
}

func (c *Client) post(ctx context.Context, path string, query url.Values) (playback.Status, error) {
	var st playback.Status
	err := c.do(ctx, http.MethodPost, path, query, &st)
	return st, err
}

func (c *Client) Reset(ctx context.Context) (playback.Status, error) {
	return c.post(ctx, "/reset", nil)
}

func (c *Client) Pause(ctx context.Context) (playback.Status, error) {
	return c.post(ctx, "/pause", nil)
}

func (c *Client) Play(ctx context.Context) (playback.Status, error) {
	return c.post(ctx, "/play", nil)
}

func (c *Client) SetRate(ctx context.Context, rate float64) (playback.Status, error) {
	return c.post(ctx, "/rate", url.Values{"value": {strconv.FormatFloat(rate, 'f', -1, 64)}})
}

// Frame fetches frame index without moving the cursor.
func (c *Client) Frame(ctx context.Context, index int) (playback.FrameView, error) {
	var v playback.FrameView
	err := c.do(ctx, http.MethodGet, "/frame", url.Values{"index": {strconv.Itoa(index)}}, &v)
	return v, err
}

func (c *Client) CurrentFrame(ctx context.Context) (playback.FrameView, error) {
	var v playback.FrameView
	err := c.do(ctx, http.MethodGet, "/frame/current", nil, &v)
	return v, err
}

func (c *Client) Sessions(ctx context.Context, limit int) ([]db.PlaybackSession, error) {
	var out []db.PlaybackSession
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	err := c.do(ctx, http.MethodGet, "/sessions", q, &out)
	return out, err
}
