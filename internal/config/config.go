// Package config loads humble-cli settings. Flags override the
// HUMBLE_SESSION_KEY environment variable, which overrides the YAML file
// under the XDG config directory, which overrides the legacy key file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/humble-cli/internal/utils"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	appDir           = "humble-cli"
	configFileName   = "config.yaml"
	legacyKeyFile    = ".humble-cli-key"
	SessionKeyEnvVar = "HUMBLE_SESSION_KEY"
)

type Config struct {
	SessionKey    string        `yaml:"session_key,omitempty"`
	DownloadDir   string        `yaml:"download_dir,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	ReadTimeout   time.Duration `yaml:"read_timeout,omitempty"`
	UserAgent     string        `yaml:"user_agent,omitempty"`
	Proxy         string        `yaml:"proxy,omitempty"`
	ProxyUsername string        `yaml:"proxy_username,omitempty"`
	ProxyPassword string        `yaml:"proxy_password,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		DownloadDir: ".",
		Timeout:     utils.DefaultTimeout,
		ReadTimeout: utils.DefaultReadTimeout,
		UserAgent:   utils.ToolUserAgent,
	}
}

// Loader locates the configuration sources. Empty fields fall back to the
// XDG config file, ~/.humble-cli-key and os.Getenv.
type Loader struct {
	Path       string
	LegacyPath string
	Getenv     func(string) string
}

// DefaultPath is where the YAML file is expected when none exists yet.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, configFileName)
}

func (l Loader) configPath() string {
	if l.Path != "" {
		return l.Path
	}
	if p, err := xdg.SearchConfigFile(filepath.Join(appDir, configFileName)); err == nil {
		return p
	}
	return ""
}

func (l Loader) legacyPath() string {
	if l.LegacyPath != "" {
		return l.LegacyPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, legacyKeyFile)
}

// Load merges all sources; non-zero fields of flags win.
func (l Loader) Load(flags Config) (Config, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	var file Config
	if path := l.configPath(); path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		if len(b) > 0 {
			if err := yaml.Unmarshal(b, &file); err != nil {
				return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
			}
			log.Debug().Str("op", "config/config").Msgf("loaded config from %s", path)
		}
	}

	defaults := DefaultConfig()
	cfg := Config{
		SessionKey:    firstNonZero(flags.SessionKey, strings.TrimSpace(getenv(SessionKeyEnvVar)), file.SessionKey),
		DownloadDir:   firstNonZero(flags.DownloadDir, file.DownloadDir, defaults.DownloadDir),
		Timeout:       firstNonZero(flags.Timeout, file.Timeout, defaults.Timeout),
		ReadTimeout:   firstNonZero(flags.ReadTimeout, file.ReadTimeout, defaults.ReadTimeout),
		UserAgent:     firstNonZero(flags.UserAgent, file.UserAgent, defaults.UserAgent),
		Proxy:         firstNonZero(flags.Proxy, file.Proxy),
		ProxyUsername: firstNonZero(flags.ProxyUsername, file.ProxyUsername),
		ProxyPassword: firstNonZero(flags.ProxyPassword, file.ProxyPassword),
	}
	if cfg.SessionKey == "" {
		cfg.SessionKey = readLegacyKey(l.legacyPath())
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Timeout < 0 || c.ReadTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.SessionKey, "\r\n") {
		return fmt.Errorf("%w: session key contains a line break", ErrInvalidConfig)
	}
	if c.Proxy != "" {
		parsed, err := url.Parse(c.Proxy)
		if err != nil {
			return fmt.Errorf("%w: proxy: %v", ErrInvalidConfig, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: proxy %q needs a scheme and host, like http://host:port", ErrInvalidConfig, c.Proxy)
		}
	}
	return nil
}

// HTTPClientConfig maps the loaded settings onto the download client.
func (c Config) HTTPClientConfig(headers map[string]string) utils.HTTPClientConfig {
	return utils.HTTPClientConfig{
		Timeout:       c.Timeout,
		ReadTimeout:   c.ReadTimeout,
		ProxyURL:      c.Proxy,
		ProxyUsername: c.ProxyUsername,
		ProxyPassword: c.ProxyPassword,
		UserAgent:     c.UserAgent,
		Headers:       headers,
	}
}

func readLegacyKey(path string) string {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	log.Debug().Str("op", "config/config").Msgf("using session key from %s", path)
	return strings.TrimSpace(string(b))
}

func firstNonZero[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
