package app

import (
    "time"

    "github.com/hyperifyio/piproxy/internal/guard"
    "github.com/hyperifyio/piproxy/internal/proxy"
)

// Defaults applied before the config file, environment and flags.
const (
    DefaultListenAddr      = ":8080"
    DefaultUpstreamTimeout = 20 * time.Second
    DefaultUserAgent       = "piproxy/1.0 (+https://patient-innovation.com)"
    DefaultMaxBodyBytes    = int64(8 << 20)
    DefaultShutdownTimeout = 10 * time.Second
)

// Config holds runtime configuration for the proxy service.
type Config struct {
    ListenAddr string

    // Upstream
    AllowedHosts    []string
    SearchBase      string
    UpstreamTimeout time.Duration
    UserAgent       string
    MaxRedirects    int
    MaxBodyBytes    int64

    ShutdownTimeout time.Duration

    // Logging
    Verbose bool
    LogJSON bool
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
    return Config{
        ListenAddr:      DefaultListenAddr,
        AllowedHosts:    append([]string(nil), guard.DefaultHosts...),
        SearchBase:      proxy.DefaultSearchBase,
        UpstreamTimeout: DefaultUpstreamTimeout,
        UserAgent:       DefaultUserAgent,
        MaxBodyBytes:    DefaultMaxBodyBytes,
        ShutdownTimeout: DefaultShutdownTimeout,
    }
}
