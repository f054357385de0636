package download

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OggS-voice"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := New(srv.Client(), 1024, time.Second).Fetcher(srv.URL)(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, "OggS-voice", buf.String())
}

func TestGetEnforcesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// chunked, so the declared length cannot short-circuit the check
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	err := New(srv.Client(), 16, time.Second).Get(context.Background(), srv.URL, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestGetRejectsDeclaredLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := New(srv.Client(), 10, time.Second).Get(context.Background(), srv.URL, &buf)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, buf.Len())
}

func TestGetRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := New(srv.Client(), 0, time.Second).Get(context.Background(), srv.URL, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
