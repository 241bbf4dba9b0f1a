package humblehttp

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/humble-cli/internal/utils"
)

type Request struct {
	URL        string
	OutputPath string
	Title      string
	// MD5 is the expected hex digest, used only when checksums are verified.
	MD5 string
	// Progress receives (downloaded, total) after every written chunk and
	// once with the resume offset.
	Progress func(downloaded, total int64)
	// Notice receives short user facing messages such as retry announcements.
	Notice func(msg string)
}

type Result struct {
	Bytes           int64
	AlreadyComplete bool
	Attempts        int
}

type Downloader struct {
	Client         utils.HTTPDoer
	Retry          utils.RetryPolicy
	VerifyChecksum bool
}

func NewDownloader(client utils.HTTPDoer, verify bool) *Downloader {
	return &Downloader{
		Client:         client,
		Retry:          utils.DefaultRetryPolicy(IsRetryable),
		VerifyChecksum: verify,
	}
}

// Download fetches req.URL into req.OutputPath, appending to whatever is
// already on disk. Connect and timeout failures are retried per d.Retry and
// every attempt starts from the current file length.
func (d *Downloader) Download(ctx context.Context, req Request) (Result, error) {
	var result Result
	lock := flock.New(req.OutputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return result, ioError("error locking output file", err)
	}
	if !locked {
		return result, genericError(fmt.Sprintf("cannot lock '%s'", req.OutputPath), req.URL, ErrLocked)
	}
	defer func() {
		lock.Unlock()
		os.Remove(req.OutputPath + ".lock")
	}()

	policy := d.Retry
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		log.Warn().Str("op", "http/simple-downloader").Err(err).Msgf("attempt %d for %s failed", attempt, req.OutputPath)
		if req.Notice != nil {
			req.Notice(fmt.Sprintf("Will retry in %s", humanDelay(policy.Delay.Seconds())))
		}
		if userHook != nil {
			userHook(attempt, err)
		}
	}

	err = utils.Retry(ctx, policy, func(attempt int) error {
		result.Attempts = attempt
		res, err := d.attempt(ctx, req)
		result.Bytes = res.Bytes
		result.AlreadyComplete = res.AlreadyComplete
		return err
	})
	if err != nil {
		return result, err
	}
	if d.VerifyChecksum && req.MD5 != "" {
		if err := verifyMD5(req.OutputPath, req.MD5); err != nil {
			return result, genericError(fmt.Sprintf("checksum failed for '%s'", req.OutputPath), req.URL, err)
		}
	}
	log.Debug().Str("op", "http/simple-downloader").Msgf("download finished for %s (%d bytes)", req.OutputPath, result.Bytes)
	return result, nil
}

func (d *Downloader) attempt(ctx context.Context, req Request) (Result, error) {
	var result Result
	outFile, downloaded, err := openOutput(req.OutputPath)
	if err != nil {
		return result, err
	}
	defer outFile.Close()

	total, err := d.remoteSize(ctx, req.URL)
	if err != nil {
		return result, err
	}
	if downloaded >= total {
		log.Debug().Str("op", "http/simple-downloader").Msgf("%s already complete (%d >= %d)", req.OutputPath, downloaded, total)
		report(req, total, total)
		return Result{Bytes: downloaded, AlreadyComplete: true}, nil
	}

	rangeHeader := ""
	if downloaded > 0 {
		rangeHeader = fmt.Sprintf("bytes=%d-", downloaded)
		log.Debug().Str("op", "http/simple-downloader").Msgf("resuming %s from offset %d", req.OutputPath, downloaded)
	}
	resp, err := d.send(ctx, http.MethodGet, req.URL, rangeHeader)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	switch {
	case downloaded > 0 && resp.StatusCode == http.StatusOK:
		log.Warn().Str("op", "http/simple-downloader").Msgf("server ignored range for %s, restarting", req.OutputPath)
		if err := outFile.Truncate(0); err != nil {
			return result, ioError("error truncating output file", err)
		}
		downloaded = 0
	case downloaded > 0 && resp.StatusCode == http.StatusPartialContent:
		if err := checkContentRange(resp.Header.Get("Content-Range"), downloaded); err != nil {
			drain(resp.Body)
			return result, genericError("error resuming download", req.URL, err)
		}
	case resp.StatusCode != http.StatusOK:
		drain(resp.Body)
		return result, statusError("error downloading", req.URL, resp.StatusCode)
	}
	report(req, downloaded, total)

	buffer := make([]byte, utils.DefaultBufferSize)
	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := outFile.Write(buffer[:n]); writeErr != nil {
				return Result{Bytes: downloaded}, ioError("error writing to output file", writeErr)
			}
			downloaded += int64(n)
			report(req, downloaded, total)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return Result{Bytes: downloaded}, networkError("error reading response body", req.URL, readErr)
		}
	}
	if err := outFile.Sync(); err != nil {
		return Result{Bytes: downloaded}, ioError("error syncing output file", err)
	}
	return Result{Bytes: downloaded}, nil
}

func report(req Request, downloaded, total int64) {
	if req.Progress == nil {
		return
	}
	req.Progress(min(downloaded, total), total)
}

func verifyMD5(path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, strings.TrimSpace(expected)) {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, got, expected)
	}
	return nil
}

func humanDelay(seconds float64) string {
	if seconds == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%g seconds", seconds)
}
