package humblehttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Kind is the top level failure class of a download.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindIO
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindIO:
		return "io"
	default:
		return "generic"
	}
}

// NetKind refines KindNetwork. Only NetConnect and NetTimeout are retried.
type NetKind int

const (
	NetOther NetKind = iota
	NetConnect
	NetTimeout
	NetStatus
)

var (
	ErrNoContentLength  = errors.New("no content length")
	ErrLocked           = errors.New("file is locked by another download")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrBadContentRange  = errors.New("unexpected content range")
)

type Error struct {
	Kind       Kind
	Net        NetKind
	StatusCode int
	URL        string
	Op         string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindNetwork && e.Net == NetStatus:
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a connect or timeout failure.
func IsRetryable(err error) bool {
	var dlErr *Error
	if !errors.As(err, &dlErr) {
		return false
	}
	return dlErr.Kind == KindNetwork && (dlErr.Net == NetConnect || dlErr.Net == NetTimeout)
}

func networkError(op, url string, err error) *Error {
	return &Error{Kind: KindNetwork, Net: netKindOf(err), URL: url, Op: op, Err: err}
}

func statusError(op, url string, code int) *Error {
	return &Error{Kind: KindNetwork, Net: NetStatus, StatusCode: code, URL: url, Op: op}
}

func ioError(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

func genericError(op, url string, err error) *Error {
	return &Error{Kind: KindGeneric, URL: url, Op: op, Err: err}
}

func netKindOf(err error) NetKind {
	if errors.Is(err, context.Canceled) {
		return NetOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NetTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NetTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return NetConnect
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NetConnect
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return NetConnect
	}
	return NetOther
}
