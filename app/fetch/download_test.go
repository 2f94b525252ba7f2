package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient() *Client {
	return NewClient(Options{
		ConnectTimeout: time.Second,
		ReadTimeout:    2 * time.Second,
		ChunkSize:      4,
		UserAgent:      "relive-sync-test",
	})
}

// serveBlob answers HEAD with the declared length only and GET with the body.
func serveBlob(w http.ResponseWriter, r *http.Request, body string) {
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if r.Method == http.MethodHead {
		return
	}
	w.Write([]byte(body))
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected no file at %s, got stat error %v", path, err)
	}
}

func TestDownloadWritesFile(t *testing.T) {
	body := "muxed video payload"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveBlob(w, r, body)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "42", "muxed.mp4")

	result, err := newTestClient().Download(context.Background(), server.URL+"/42/muxed.mp4", dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if result.Skipped {
		t.Error("Expected a fresh download, got skipped")
	}
	if result.Bytes != int64(len(body)) {
		t.Errorf("Expected %d bytes, got %d", len(body), result.Bytes)
	}
	if !result.Expected.Known || result.Expected.Size != int64(len(body)) {
		t.Errorf("Expected HEAD size %d, got %+v", len(body), result.Expected)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Failed to read downloaded file: %v", err)
	}
	if string(data) != body {
		t.Errorf("Expected content %q, got %q", body, string(data))
	}
}

func TestDownloadSkipsCompleteFile(t *testing.T) {
	body := "0123456789"
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		serveBlob(w, r, body)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "thumb.jpg")
	if err := os.WriteFile(dest, []byte("abcdefghij"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	result, err := newTestClient().Download(context.Background(), server.URL+"/thumb.jpg", dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if !result.Skipped {
		t.Error("Expected download to be skipped")
	}
	if gets.Load() != 0 {
		t.Errorf("Expected no GET requests, got %d", gets.Load())
	}

	data, _ := os.ReadFile(dest)
	if string(data) != "abcdefghij" {
		t.Errorf("Expected existing file untouched, got %q", string(data))
	}
}

func TestDownloadReplacesIncompleteFile(t *testing.T) {
	body := "complete content"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveBlob(w, r, body)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "video_hd.mp4")
	if err := os.WriteFile(dest, []byte("compl"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	result, err := newTestClient().Download(context.Background(), server.URL+"/video_hd.mp4", dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if result.Skipped {
		t.Error("Expected incomplete file to be downloaded again")
	}

	data, _ := os.ReadFile(dest)
	if string(data) != body {
		t.Errorf("Expected content %q, got %q", body, string(data))
	}
}

func TestDownloadWithoutKnownSizeAlwaysDownloads(t *testing.T) {
	body := "fresh"
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gets.Add(1)
		w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(dest, []byte("fresh"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	result, err := newTestClient().Download(context.Background(), server.URL+"/a.mp3", dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if result.Skipped {
		t.Error("Expected download without known size not to be skipped")
	}
	if result.Expected.Known {
		t.Errorf("Expected unknown size, got %+v", result.Expected)
	}
	if result.SizeMismatch {
		t.Error("Expected no size mismatch when size is unknown")
	}
	if gets.Load() != 1 {
		t.Errorf("Expected 1 GET request, got %d", gets.Load())
	}
}

func TestDownloadSizeMismatchIsSuccess(t *testing.T) {
	body := "0123456789"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "999")
			return
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "muxed.mp4")

	result, err := newTestClient().Download(context.Background(), server.URL+"/muxed.mp4", dest)
	if err != nil {
		t.Fatalf("Expected success despite size mismatch, got %v", err)
	}

	if !result.SizeMismatch {
		t.Error("Expected size mismatch to be reported")
	}
	if result.Bytes != int64(len(body)) {
		t.Errorf("Expected %d bytes, got %d", len(body), result.Bytes)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("Expected file to be kept, got %v", err)
	}
}

func TestDownloadHTTPErrorLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "muxed.mp4")
	if err := os.WriteFile(dest, []byte("partial"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	_, err := newTestClient().Download(context.Background(), server.URL+"/missing.mp4", dest)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if !errors.Is(err, ErrHTTPStatus) {
		t.Errorf("Expected ErrHTTPStatus, got %v", err)
	}

	assertNoFile(t, dest)
}

func TestDownloadConnectionResetLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte(strings.Repeat("x", 100)))
		w.(http.Flusher).Flush()

		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "muxed.mp4")

	_, err := newTestClient().Download(context.Background(), server.URL+"/muxed.mp4", dest)
	if err == nil {
		t.Fatal("Expected error for connection reset mid-transfer")
	}

	assertNoFile(t, dest)
}

func TestDownloadReadStallLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("0123456789"))
		w.(http.Flusher).Flush()

		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(Options{
		ConnectTimeout: time.Second,
		ReadTimeout:    100 * time.Millisecond,
		ChunkSize:      8192,
	})

	dest := filepath.Join(t.TempDir(), "muxed.mp4")

	start := time.Now()
	_, err := client.Download(context.Background(), server.URL+"/muxed.mp4", dest)
	if err == nil {
		t.Fatal("Expected error for stalled transfer")
	}
	if !errors.Is(err, ErrStalled) {
		t.Errorf("Expected ErrStalled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected stall to be detected quickly, took %v", elapsed)
	}

	assertNoFile(t, dest)
}

func TestDownloadConnectFailureLeavesNoFile(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	dest := filepath.Join(t.TempDir(), "muxed.mp4")

	_, err = newTestClient().Download(context.Background(), "http://"+addr+"/muxed.mp4", dest)
	if err == nil {
		t.Fatal("Expected error for refused connection")
	}

	assertNoFile(t, dest)
}

func TestDownloadSendsUserAgent(t *testing.T) {
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			agent.Store(r.UserAgent())
		}
		serveBlob(w, r, "ok")
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "f")
	if _, err := newTestClient().Download(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if got, _ := agent.Load().(string); got != "relive-sync-test" {
		t.Errorf("Expected User-Agent relive-sync-test, got %q", got)
	}
}

func TestDownloadKeepsContentEncodedBytes(t *testing.T) {
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	gz.Write(bytes.Repeat([]byte("a"), 10000))
	gz.Close()
	payload := compressed.Bytes()

	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	client := newTestClient()
	dest := filepath.Join(t.TempDir(), "muxed.mp4")

	for i := 0; i < 3; i++ {
		result, err := client.Download(context.Background(), server.URL+"/muxed.mp4", dest)
		if err != nil {
			t.Fatalf("Download %d failed: %v", i, err)
		}
		if result.SizeMismatch {
			t.Errorf("Download %d: expected no size mismatch, got %+v", i, result)
		}
		if i > 0 && !result.Skipped {
			t.Errorf("Download %d: expected complete file to be skipped", i)
		}
	}

	if gets.Load() != 1 {
		t.Errorf("Expected 1 GET request, got %d", gets.Load())
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("Expected file on disk: %v", err)
	}
	if info.Size() != int64(len(payload)) {
		t.Errorf("Expected %d bytes on disk, got %d", len(payload), info.Size())
	}
}
