package utils

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

type HTTPClientConfig struct {
	Timeout       time.Duration // dial and response header timeout
	ReadTimeout   time.Duration // max idle time of a single socket read
	KATimeout     time.Duration
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	UserAgent     string
	Headers       map[string]string
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type HumbleHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewHumbleHTTPClient(cfg HTTPClientConfig) *HumbleHTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = DefaultKATimeout
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		IdleConnTimeout:       cfg.KATimeout,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		DisableCompression:    true,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, readTimeout: cfg.ReadTimeout}, nil
		},
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			log.Warn().Str("op", "utils/http-client").Msgf("ignoring invalid proxy %q: %v", cfg.ProxyURL, err)
		}
	}
	return &HumbleHTTPClient{
		// no overall Timeout, stalls are bounded by the per-read deadline
		client: &http.Client{Transport: transport},
		config: cfg,
	}
}

func (d *HumbleHTTPClient) SetHeader(key, value string) {
	d.config.Headers[key] = value
}

// StdClient exposes the underlying client for libraries that take an
// *http.Client.
func (d *HumbleHTTPClient) StdClient() *http.Client {
	return d.client
}

func (d *HumbleHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if d.config.UserAgent != "" {
		req.Header.Set("User-Agent", d.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	for k, v := range d.config.Headers {
		req.Header.Set(k, v)
	}
	return d.client.Do(req)
}

// deadlineConn pushes the read deadline forward before every read, so a
// transfer only fails once the peer has been silent for readTimeout.
type deadlineConn struct {
	net.Conn
	readTimeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}
