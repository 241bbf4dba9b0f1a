package humblehttp

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/humble-cli/internal/utils"
)

type requestLog struct {
	mu      sync.Mutex
	methods []string
	ranges  []string
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.methods = append(l.methods, r.Method)
	l.ranges = append(l.ranges, r.Header.Get("Range"))
}

func (l *requestLog) count(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.methods {
		if m == method {
			n++
		}
	}
	return n
}

func payload(n int) []byte {
	return bytes.Repeat([]byte("humble-"), n/7+1)[:n]
}

func newContentServer(t *testing.T, content []byte, rl *requestLog) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.add(r)
		http.ServeContent(w, r, "book.pdf", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func noSleep(context.Context, time.Duration) error { return nil }

func testDownloader(client utils.HTTPDoer) *Downloader {
	d := NewDownloader(client, false)
	d.Retry.Sleep = noSleep
	return d
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// flakyDoer fails the first `failures` calls with a timeout.
type flakyDoer struct {
	next     utils.HTTPDoer
	failures int
	calls    int
}

func (f *flakyDoer) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, timeoutErr{}
	}
	return f.next.Do(req)
}

func TestDownloadFreshFile(t *testing.T) {
	content := payload(100 * 1024)
	rl := &requestLog{}
	srv := newContentServer(t, content, rl)
	out := filepath.Join(t.TempDir(), "book.pdf")

	var last, total int64
	res, err := testDownloader(srv.Client()).Download(context.Background(), Request{
		URL:        srv.URL + "/book.pdf",
		OutputPath: out,
		Progress:   func(d, t int64) { last, total = d, t },
	})
	require.NoError(t, err)
	assert.False(t, res.AlreadyComplete)
	assert.Equal(t, int64(len(content)), res.Bytes)
	assert.Equal(t, int64(len(content)), last)
	assert.Equal(t, int64(len(content)), total)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, []string{"", ""}, rl.ranges)
	_, err = os.Stat(out + ".lock")
	assert.True(t, os.IsNotExist(err), "lock file should be removed")
}

func TestDownloadResumesPartialFile(t *testing.T) {
	content := payload(64 * 1024)
	rl := &requestLog{}
	srv := newContentServer(t, content, rl)
	out := filepath.Join(t.TempDir(), "book.pdf")
	require.NoError(t, os.WriteFile(out, content[:1000], 0644))

	var first int64 = -1
	_, err := testDownloader(srv.Client()).Download(context.Background(), Request{
		URL:        srv.URL + "/book.pdf",
		OutputPath: out,
		Progress: func(d, _ int64) {
			if first < 0 {
				first = d
			}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first)
	assert.Contains(t, rl.ranges, "bytes=1000-")

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadCompleteFileIsNoop(t *testing.T) {
	content := payload(4096)
	rl := &requestLog{}
	srv := newContentServer(t, content, rl)
	out := filepath.Join(t.TempDir(), "book.pdf")
	d := testDownloader(srv.Client())
	req := Request{URL: srv.URL + "/book.pdf", OutputPath: out}

	_, err := d.Download(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, rl.count(http.MethodGet))

	res, err := d.Download(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.AlreadyComplete)
	assert.Equal(t, 1, rl.count(http.MethodGet), "no ranged request for a complete file")
	for _, r := range rl.ranges {
		assert.Empty(t, r)
	}

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadRestartsWhenRangeIgnored(t *testing.T) {
	content := payload(8192)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "8192")
		if r.Method == http.MethodHead {
			return
		}
		w.Write(content)
	}))
	defer srv.Close()
	out := filepath.Join(t.TempDir(), "book.pdf")
	require.NoError(t, os.WriteFile(out, []byte("stale partial data"), 0644))

	_, err := testDownloader(srv.Client()).Download(context.Background(), Request{URL: srv.URL + "/book.pdf", OutputPath: out})
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadRetriesTimeouts(t *testing.T) {
	content := payload(2048)
	srv := newContentServer(t, content, &requestLog{})

	t.Run("three failures then success", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "book.pdf")
		doer := &flakyDoer{next: srv.Client(), failures: 3}
		var notices []string
		res, err := testDownloader(doer).Download(context.Background(), Request{
			URL:        srv.URL + "/book.pdf",
			OutputPath: out,
			Notice:     func(m string) { notices = append(notices, m) },
		})
		require.NoError(t, err)
		assert.Equal(t, 4, res.Attempts)
		assert.Len(t, notices, 3)
		assert.Equal(t, "Will retry in 5 seconds", notices[0])
	})

	t.Run("four failures", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "book.pdf")
		doer := &flakyDoer{next: srv.Client(), failures: 4}
		res, err := testDownloader(doer).Download(context.Background(), Request{URL: srv.URL + "/book.pdf", OutputPath: out})
		require.Error(t, err)
		assert.Equal(t, 4, res.Attempts)
		assert.Equal(t, 4, doer.calls)

		var dlErr *Error
		require.ErrorAs(t, err, &dlErr)
		assert.Equal(t, KindNetwork, dlErr.Kind)
		assert.Equal(t, NetTimeout, dlErr.Net)
	})
}

func TestDownloadResumesAfterStalledStream(t *testing.T) {
	content := payload(200000)
	const sent = 50000

	var mu sync.Mutex
	var getRanges []string
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.ServeContent(w, r, "book.pdf", time.Time{}, bytes.NewReader(content))
			return
		}
		mu.Lock()
		getRanges = append(getRanges, r.Header.Get("Range"))
		first := len(getRanges) == 1
		mu.Unlock()
		if !first {
			http.ServeContent(w, r, "book.pdf", time.Time{}, bytes.NewReader(content))
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.WriteHeader(http.StatusOK)
		w.Write(content[:sent])
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := utils.NewHumbleHTTPClient(utils.HTTPClientConfig{
		Timeout:     2 * time.Second,
		ReadTimeout: 200 * time.Millisecond,
	})
	out := filepath.Join(t.TempDir(), "book.pdf")
	var notices []string
	res, err := testDownloader(client).Download(context.Background(), Request{
		URL:        srv.URL + "/book.pdf",
		OutputPath: out,
		Notice:     func(m string) { notices = append(notices, m) },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, notices, 1)

	mu.Lock()
	assert.Equal(t, []string{"", "bytes=50000-"}, getRanges)
	mu.Unlock()

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadStatusErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testDownloader(srv.Client()).Download(context.Background(), Request{
		URL:        srv.URL + "/book.pdf",
		OutputPath: filepath.Join(t.TempDir(), "book.pdf"),
	})
	var dlErr *Error
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, NetStatus, dlErr.Net)
	assert.Equal(t, http.StatusForbidden, dlErr.StatusCode)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(2), calls.Load(), "HEAD then GET fallback, no retries")
}

func TestDownloadMissingContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("part one"))
		w.(http.Flusher).Flush()
		w.Write([]byte("part two"))
	}))
	defer srv.Close()

	_, err := testDownloader(srv.Client()).Download(context.Background(), Request{
		URL:        srv.URL + "/stream",
		OutputPath: filepath.Join(t.TempDir(), "stream"),
	})
	require.ErrorIs(t, err, ErrNoContentLength)
	var dlErr *Error
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, KindGeneric, dlErr.Kind)
	assert.True(t, strings.Contains(err.Error(), srv.URL+"/stream"))
}

func TestDownloadLockedDestination(t *testing.T) {
	content := payload(128)
	srv := newContentServer(t, content, &requestLog{})
	out := filepath.Join(t.TempDir(), "book.pdf")

	held := flock.New(out + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	_, err = testDownloader(srv.Client()).Download(context.Background(), Request{URL: srv.URL + "/book.pdf", OutputPath: out})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestDownloadVerifyChecksum(t *testing.T) {
	content := payload(3000)
	sum := md5.Sum(content)
	good := hex.EncodeToString(sum[:])
	srv := newContentServer(t, content, &requestLog{})

	d := testDownloader(srv.Client())
	d.VerifyChecksum = true

	_, err := d.Download(context.Background(), Request{
		URL:        srv.URL + "/book.pdf",
		OutputPath: filepath.Join(t.TempDir(), "ok.pdf"),
		MD5:        strings.ToUpper(good),
	})
	require.NoError(t, err)

	_, err = d.Download(context.Background(), Request{
		URL:        srv.URL + "/book.pdf",
		OutputPath: filepath.Join(t.TempDir(), "bad.pdf"),
		MD5:        "00000000000000000000000000000000",
	})
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", networkError("get", "u", timeoutErr{}), true},
		{"deadline", networkError("get", "u", context.DeadlineExceeded), true},
		{"cancelled", networkError("get", "u", context.Canceled), false},
		{"status", statusError("get", "u", 500), false},
		{"io", ioError("write", errors.New("disk full")), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestCheckContentRange(t *testing.T) {
	assert.NoError(t, checkContentRange("", 10))
	assert.NoError(t, checkContentRange("bytes 10-99/100", 10))
	assert.ErrorIs(t, checkContentRange("bytes 0-99/100", 10), ErrBadContentRange)
	assert.ErrorIs(t, checkContentRange("garbage", 10), ErrBadContentRange)
}
