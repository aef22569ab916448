package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arplayback/internal/api"
	"github.com/banshee-data/arplayback/internal/httputil"
)

func TestRunHTTP(t *testing.T) {
	mock := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"moved":true,"status":{"frame_index":4}}`).
		AddResponse(http.StatusOK, `{"index":2,"sequence":2}`).
		AddResponse(http.StatusBadRequest, `{"error":"rate 99 must be in (0, 16]"}`)
	c := api.NewClient("http://playback:8080", mock)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, runHTTP(ctx, c, []string{"next"}, &out))
	assert.Contains(t, out.String(), `"frame_index": 4`)

	out.Reset()
	require.NoError(t, runHTTP(ctx, c, []string{"frame", "2"}, &out))
	assert.Equal(t, "index=2", mock.Requests[1].URL.RawQuery)

	err := runHTTP(ctx, c, []string{"rate", "99"}, &out)
	assert.ErrorContains(t, err, "must be in")
}

func TestRunHTTP_BadArgs(t *testing.T) {
	c := api.NewClient("http://playback:8080", httputil.NewMockHTTPClient())
	ctx := context.Background()
	var out bytes.Buffer

	for _, args := range [][]string{{"frame"}, {"frame", "x"}, {"rate"}, {"bogus"}, {"watch"}} {
		err := runHTTP(ctx, c, args, &out)
		assert.Error(t, err, strings.Join(args, " "))
	}
}
