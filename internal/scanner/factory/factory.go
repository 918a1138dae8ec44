package factory

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/redactyl/scangate/internal/config"
	"github.com/redactyl/scangate/internal/scanner/zap"
)

// APIKeyEnv overrides an empty scanner.api_key.
const APIKeyEnv = "SCANGATE_API_KEY"

// Config is the subset of configuration needed to create a scanner client.
type Config struct {
	Scanner config.ScannerConfig
	Logger  *slog.Logger
}

// New creates the ZAP client described by cfg. The API key falls back to
// $SCANGATE_API_KEY when the config leaves it empty.
func New(cfg Config) (*zap.Client, error) {
	timeout, err := cfg.Scanner.GetTimeout()
	if err != nil {
		return nil, err
	}
	key := cfg.Scanner.GetAPIKey()
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	c, err := zap.New(zap.Config{
		APIURL:    cfg.Scanner.GetAPIURL(),
		APIKey:    key,
		RateLimit: cfg.Scanner.GetRateLimit(),
		Timeout:   timeout,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner client: %w", err)
	}
	return c, nil
}

// ProxyURL is the address the exercised application traffic is routed
// through. ZAP serves its API and proxy on one port, so the API URL is used
// when no proxy is configured.
func ProxyURL(sc config.ScannerConfig) string {
	if p := sc.GetProxyURL(); p != "" {
		return p
	}
	if u := sc.GetAPIURL(); u != "" {
		return u
	}
	return zap.DefaultAPIURL
}
