package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/tanq16/humble-cli/internal/api"
	"github.com/tanq16/humble-cli/internal/config"
	humblehttp "github.com/tanq16/humble-cli/internal/downloaders/http"
	"github.com/tanq16/humble-cli/internal/utils"
)

func newHTTPClient() *utils.HumbleHTTPClient {
	return utils.NewHumbleHTTPClient(appConfig.HTTPClientConfig(utils.ParseHeaderArgs(headers)))
}

func newAPIClient() (*api.Client, error) {
	return newAPIClientWith(newHTTPClient())
}

func newAPIClientWith(hc *utils.HumbleHTTPClient) (*api.Client, error) {
	return api.New(api.Config{
		SessionKey: appConfig.SessionKey,
		HTTPClient: hc.StdClient(),
		UserAgent:  appConfig.UserAgent,
		Headers:    utils.ParseHeaderArgs(headers),
		Retries:    2,
	})
}

func newDownloader(hc *utils.HumbleHTTPClient, verify bool) *humblehttp.Downloader {
	return humblehttp.NewDownloader(hc, verify)
}

// friendlyError adds a hint to the errors users can act on.
func friendlyError(err error) error {
	switch {
	case errors.Is(err, api.ErrNoSessionKey):
		return fmt.Errorf("%w: set session_key in %s, export %s or pass --session-key", err, config.DefaultPath(), config.SessionKeyEnvVar)
	case api.StatusCode(err) == http.StatusUnauthorized:
		return fmt.Errorf("unauthorized request (401), is the session key correct? %w", err)
	case api.StatusCode(err) == http.StatusNotFound:
		return fmt.Errorf("bundle not found (404), is the bundle key correct? %w", err)
	}
	return err
}

var validFields = []string{"key", "name", "size", "claimed"}

func parseFields(raw []string) ([]string, error) {
	var fields []string
	for _, r := range raw {
		for _, f := range strings.Split(r, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			if f == "" {
				continue
			}
			if !slices.Contains(validFields, f) {
				return nil, fmt.Errorf("invalid field %q (valid: %s)", f, strings.Join(validFields, ", "))
			}
			fields = append(fields, f)
		}
	}
	return fields, nil
}
