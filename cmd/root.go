package cmd

import (
	"context"
	"fmt"
	"io"
	u "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/humble-cli/internal/config"
	"github.com/tanq16/humble-cli/internal/utils"
)

var (
	debug         bool
	logFile       string
	sessionKey    string
	timeout       time.Duration
	readTimeout   time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string

	appConfig config.Config
	logCloser io.Closer
)

var HumbleVersion = "dev"

var rootCmd = &cobra.Command{
	Use:           "humble-cli",
	Short:         "List and download your Humble Bundle purchases",
	Version:       HumbleVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		closer, err := utils.InitLogger(debug, logFile)
		if err != nil {
			return err
		}
		logCloser = closer
		// credentials embedded in the proxy URL move to the auth fields
		parsedProxy, err := u.Parse(proxyURL)
		if err == nil && parsedProxy.User != nil && proxyUsername == "" {
			proxyUsername = parsedProxy.User.Username()
			if password, set := parsedProxy.User.Password(); set {
				proxyPassword = password
			}
			parsedProxy.User = nil
			proxyURL = parsedProxy.String()
		}
		appConfig, err = config.Loader{}.Load(config.Config{
			SessionKey:    sessionKey,
			Timeout:       timeout,
			ReadTimeout:   readTimeout,
			UserAgent:     userAgent,
			Proxy:         proxyURL,
			ProxyUsername: proxyUsername,
			ProxyPassword: proxyPassword,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", friendlyError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().StringVar(&sessionKey, "session-key", "", "Value of the _simpleauth_sess cookie (overrides config and "+config.SessionKeyEnvVar+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Connection and response header timeout (eg. 30s, 1m)")
	rootCmd.PersistentFlags().DurationVar(&readTimeout, "read-timeout", 0, "Maximum silence on a transfer before it is retried (eg. 30s)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", "", "User agent")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'X-Forwarded-For: 1.2.3.4'); can be specified multiple times")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDetailsCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newListChoicesCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newBulkDownloadCmd())
}
