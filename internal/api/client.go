// Package api talks to the Humble Bundle order API and membership pages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tanq16/humble-cli/internal/models"
	"github.com/tanq16/humble-cli/internal/utils"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL = "https://www.humblebundle.com"
	chunkSize      = 10
	sessionCookie  = "_simpleauth_sess"
)

type Config struct {
	SessionKey string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	Headers    map[string]string
	Retries    int
}

type Client struct {
	rest   *resty.Client
	logger zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SessionKey) == "" {
		return nil, ErrNoSessionKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: utils.DefaultTimeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = utils.ToolUserAgent
	}
	rest := resty.NewWithClient(cfg.HTTPClient).
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Cookie", fmt.Sprintf("%s=%s", sessionCookie, cfg.SessionKey)).
		SetHeaders(cfg.Headers).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second)
	return &Client{rest: rest, logger: utils.GetLogger("api")}, nil
}

func (c *Client) get(ctx context.Context, path string, prepare func(*resty.Request)) ([]byte, error) {
	req := c.rest.R().SetContext(ctx)
	if prepare != nil {
		prepare(req)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, networkError(err)
	}
	c.logger.Debug().Str("op", "api/client").Msgf("GET %s -> %d in %s", path, resp.StatusCode(), resp.Time())
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}
	return resp.Body(), nil
}

func (c *Client) ListBundleKeys(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/api/v1/user/order", nil)
	if err != nil {
		return nil, err
	}
	var gameKeys []models.GameKey
	if err := json.Unmarshal(body, &gameKeys); err != nil {
		return nil, deserializeError(err)
	}
	keys := make([]string, 0, len(gameKeys))
	for _, gk := range gameKeys {
		keys = append(keys, gk.Gamekey)
	}
	return keys, nil
}

// ListBundles fetches every order in chunks of ten keys concurrently and
// returns them oldest first.
func (c *Client) ListBundles(ctx context.Context) ([]models.Bundle, error) {
	keys, err := c.ListBundleKeys(ctx)
	if err != nil {
		return nil, err
	}
	var chunks [][]string
	for i := 0; i < len(keys); i += chunkSize {
		chunks = append(chunks, keys[i:min(i+chunkSize, len(keys))])
	}

	results := make([][]models.Bundle, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, chunk := range chunks {
		g.Go(func() error {
			bundles, err := c.readBundles(gctx, chunk)
			if err != nil {
				return err
			}
			results[i] = bundles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]models.Bundle, 0, len(keys))
	for _, r := range results {
		all = append(all, r...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Created.Before(all[j].Created.Time)
	})
	return all, nil
}

func (c *Client) readBundles(ctx context.Context, keys []string) ([]models.Bundle, error) {
	body, err := c.get(ctx, "/api/v1/orders", func(r *resty.Request) {
		r.SetQueryParam("all_tpkds", "true")
		r.SetQueryParamsFromValues(map[string][]string{"gamekeys": keys})
	})
	if err != nil {
		return nil, err
	}
	var byKey map[string]*models.Bundle
	if err := json.Unmarshal(body, &byKey); err != nil {
		return nil, deserializeError(err)
	}
	bundles := make([]models.Bundle, 0, len(byKey))
	for _, b := range byKey {
		if b == nil {
			continue
		}
		bundles = append(bundles, *b)
	}
	return bundles, nil
}

func (c *Client) ReadBundle(ctx context.Context, key string) (models.Bundle, error) {
	body, err := c.get(ctx, "/api/v1/order/{key}", func(r *resty.Request) {
		r.SetPathParam("key", key)
		r.SetQueryParam("all_tpkds", "true")
	})
	if err != nil {
		return models.Bundle{}, err
	}
	var bundle models.Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return models.Bundle{}, deserializeError(err)
	}
	return bundle, nil
}

// ResolveKey expands a partial bundle key. Full length keys skip the
// listing request.
func (c *Client) ResolveKey(ctx context.Context, input string) (string, error) {
	if len(input) == FullKeyLength {
		return input, nil
	}
	keys, err := c.ListBundleKeys(ctx)
	if err != nil {
		return "", err
	}
	return FindKey(keys, input)
}

// FetchBundle resolves a possibly partial key and reads the bundle.
func (c *Client) FetchBundle(ctx context.Context, input string) (models.Bundle, error) {
	key, err := c.ResolveKey(ctx, input)
	if err != nil {
		return models.Bundle{}, err
	}
	return c.ReadBundle(ctx, key)
}

// IsNotFound reports whether err is a 404 or an unmatched key.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound || errors.Is(err, ErrNoMatch)
}
