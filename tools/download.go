package tools

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Fetcher downloads media over plain HTTP. One attempt, no retries.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

func NewFetcher(timeout time.Duration, maxSize int64) *Fetcher {
	if maxSize <= 0 {
		maxSize = MaxSizeMb
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

func (f *Fetcher) open(ctx context.Context, link string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, &DownloadError{Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		// the url error repeats the address, keep only the cause
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &DownloadError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &DownloadError{Status: resp.StatusCode}
	}
	if resp.ContentLength > f.maxSize {
		resp.Body.Close()
		return nil, TooBigErr
	}
	return resp.Body, nil
}

// Fetch returns the whole response body.
func (f *Fetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	body, err := f.open(ctx, link)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, f.maxSize+1))
	if err != nil {
		return nil, &DownloadError{Err: err}
	}
	if int64(len(data)) > f.maxSize {
		return nil, TooBigErr
	}
	return data, nil
}

// FetchToFile streams the response body into path, overwriting it.
// A partially written file is removed on failure.
func (f *Fetcher) FetchToFile(ctx context.Context, link, path string) (err error) {
	body, err := f.open(ctx, link)
	if err != nil {
		return err
	}
	defer body.Close()
	file, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = errors.WithStack(closeErr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	written, err := io.Copy(file, io.LimitReader(body, f.maxSize+1))
	if err != nil {
		return &DownloadError{Err: err}
	}
	if written > f.maxSize {
		return TooBigErr
	}
	return nil
}
