package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// SizeHint is the outcome of the optional HEAD size pre-check.
type SizeHint struct {
	Size  int64
	Known bool
}

type Result struct {
	Bytes        int64
	Expected     SizeHint
	Skipped      bool // destination already held a complete copy
	SizeMismatch bool // transfer finished but differs from the expected size
}

// ExpectedSize issues a HEAD request for the resource size. Failures only mean the size is unknown.
func (c *Client) ExpectedSize(ctx context.Context, url string) SizeHint {
	resp, err := c.get(ctx, http.MethodHead, url)
	if err != nil {
		slog.Debug("Size check failed", "url", url, "error", err)
		return SizeHint{}
	}
	resp.Body.Close()

	if resp.ContentLength < 0 {
		return SizeHint{}
	}
	return SizeHint{Size: resp.ContentLength, Known: true}
}

// Download retrieves url to dest. A nil error means dest holds the resource;
// on error nothing is left at dest. It never resumes and never retries.
func (c *Client) Download(ctx context.Context, url string, dest string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	expected := c.ExpectedSize(ctx, url)

	info, statErr := os.Stat(dest)
	exists := statErr == nil

	if expected.Known && exists && info.Size() == expected.Size {
		slog.Info("File already complete", "path", dest, "size", humanize.Bytes(uint64(info.Size())))
		return &Result{Bytes: info.Size(), Expected: expected, Skipped: true}, nil
	}

	if exists {
		slog.Info("File exists but is incomplete, downloading again", "path", dest)
		if err := os.Remove(dest); err != nil {
			return nil, fmt.Errorf("failed to remove stale file: %w", err)
		}
	}

	slog.Info("Downloading", "url", url, "path", dest)

	written, err := c.transfer(ctx, url, dest)
	if err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Error("Failed to remove partial file", "path", dest, "error", rmErr)
		}
		return nil, err
	}

	result := &Result{Bytes: written, Expected: expected}
	if expected.Known && written != expected.Size {
		result.SizeMismatch = true
		slog.Warn("Downloaded size differs from expected size",
			"path", dest,
			"expected", expected.Size,
			"actual", written)
		return result, nil
	}

	slog.Info("Download completed", "path", dest, "size", humanize.Bytes(uint64(written)))
	return result, nil
}

func (c *Client) transfer(ctx context.Context, url string, dest string) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	resp, err := c.get(ctx, http.MethodGet, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	body := c.watch(resp.Body, cancel)
	defer body.stop()

	buf := make([]byte, c.opts.ChunkSize)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("failed to write file: %w", err)
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, fmt.Errorf("failed to read response body: %w", readError(ctx, readErr))
		}
	}

	if err := out.Close(); err != nil {
		return written, fmt.Errorf("failed to close file: %w", err)
	}

	return written, nil
}
