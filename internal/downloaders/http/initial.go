package humblehttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
)

// openOutput opens path for appending and returns its current length, or
// creates it when it does not exist yet.
func openOutput(path string) (*os.File, int64, error) {
	info, err := os.Stat(path)
	if err == nil {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, 0, ioError("error opening output file", err)
		}
		return f, info.Size(), nil
	}
	if !os.IsNotExist(err) {
		return nil, 0, ioError("error checking output file", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, 0, ioError("error creating output file", err)
	}
	return f, 0, nil
}

// remoteSize asks the server for the content length with a HEAD request.
// Signed CDN links often refuse HEAD, so an error status or a missing
// length falls back to a GET whose body is closed unread.
func (d *Downloader) remoteSize(ctx context.Context, link string) (int64, error) {
	resp, err := d.send(ctx, http.MethodHead, link, "")
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 || resp.ContentLength < 0 {
		log.Debug().Str("op", "http/initial").Msgf("HEAD returned %d (length %d), probing size with GET", resp.StatusCode, resp.ContentLength)
		resp, err = d.send(ctx, http.MethodGet, link, "")
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return 0, statusError("error querying size of", link, resp.StatusCode)
		}
	}
	if resp.ContentLength < 0 {
		return 0, genericError(fmt.Sprintf("failed to get content length from '%s'", link), link, ErrNoContentLength)
	}
	return resp.ContentLength, nil
}

func (d *Downloader) send(ctx context.Context, method, link, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return nil, genericError("error creating request", link, err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, networkError(fmt.Sprintf("error executing %s request", method), link, err)
	}
	return resp, nil
}

// checkContentRange makes sure a 206 reply starts where the local file ends.
func checkContentRange(header string, offset int64) error {
	if header == "" {
		return nil
	}
	var start, end int64
	var total string
	if _, err := fmt.Sscanf(header, "bytes %d-%d/%s", &start, &end, &total); err != nil {
		return fmt.Errorf("%w: %q", ErrBadContentRange, header)
	}
	if start != offset {
		return fmt.Errorf("%w: got start %d, want %d", ErrBadContentRange, start, offset)
	}
	return nil
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
}
