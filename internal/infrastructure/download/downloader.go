package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/korjavin/echobridge/internal/application/usecase"
)

// ErrTooLarge is returned when the body exceeds the configured limit.
var ErrTooLarge = errors.New("download: body exceeds size limit")

// Downloader fetches audio sources over HTTP with a size cap.
type Downloader struct {
	client *http.Client
	limit  int64
}

// New 创建下载器; limit <= 0 表示不限制
func New(client *http.Client, limit int64, timeout time.Duration) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Downloader{client: client, limit: limit}
}

// Fetcher returns an AudioFetcher streaming url into the writer it is given.
func (d *Downloader) Fetcher(url string) usecase.AudioFetcher {
	return func(ctx context.Context, w io.Writer) error {
		return d.Get(ctx, url, w)
	}
}

// Get streams url into w.
func (d *Downloader) Get(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		// url.Error 会带上完整 URL, 其中可能含有 bot token
		var urlErr *neturl.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch audio: unexpected status %d", resp.StatusCode)
	}
	if d.limit > 0 && resp.ContentLength > d.limit {
		return ErrTooLarge
	}

	var body io.Reader = resp.Body
	if d.limit > 0 {
		body = io.LimitReader(resp.Body, d.limit+1)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if d.limit > 0 && n > d.limit {
		return ErrTooLarge
	}
	return nil
}
