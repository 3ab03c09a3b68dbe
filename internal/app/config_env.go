package app

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Environment variables read by ApplyEnvOverrides.
const (
    EnvListen          = "PIPROXY_LISTEN"
    EnvAllowedHosts    = "PIPROXY_ALLOWED_HOSTS"
    EnvSearchBase      = "PIPROXY_SEARCH_BASE"
    EnvUpstreamTimeout = "PIPROXY_UPSTREAM_TIMEOUT"
    EnvUserAgent       = "PIPROXY_USER_AGENT"
    EnvMaxRedirects    = "PIPROXY_MAX_REDIRECTS"
    EnvMaxBodyBytes    = "PIPROXY_MAX_BODY_BYTES"
    EnvVerbose         = "PIPROXY_VERBOSE"
    EnvLogJSON         = "PIPROXY_LOG_JSON"
)

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. Env takes precedence over values
// coming from a config file while flags remain highest precedence.
// Unparseable values are ignored.
func ApplyEnvOverrides(cfg *Config) {
    if cfg == nil { return }

    if v := strings.TrimSpace(os.Getenv(EnvListen)); v != "" { cfg.ListenAddr = v }
    if v := strings.TrimSpace(os.Getenv(EnvSearchBase)); v != "" { cfg.SearchBase = v }
    if v := os.Getenv(EnvUserAgent); v != "" { cfg.UserAgent = v }
    if list := SplitList(os.Getenv(EnvAllowedHosts)); len(list) > 0 { cfg.AllowedHosts = list }

    if s := strings.TrimSpace(os.Getenv(EnvUpstreamTimeout)); s != "" {
        if d, err := time.ParseDuration(s); err == nil && d > 0 {
            cfg.UpstreamTimeout = d
        } else if n, err := strconv.Atoi(s); err == nil && n > 0 {
            // Bare numbers are seconds.
            cfg.UpstreamTimeout = time.Duration(n) * time.Second
        }
    }
    if s := strings.TrimSpace(os.Getenv(EnvMaxRedirects)); s != "" {
        if n, err := strconv.Atoi(s); err == nil && n >= 0 { cfg.MaxRedirects = n }
    }
    if s := strings.TrimSpace(os.Getenv(EnvMaxBodyBytes)); s != "" {
        if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 { cfg.MaxBodyBytes = n }
    }

    // Booleans override when env present and truthy/falsey
    setBool := func(dst *bool, envKey string) {
        if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
            switch s {
            case "1", "true", "yes", "on":
                *dst = true
            case "0", "false", "no", "off":
                *dst = false
            }
        }
    }
    setBool(&cfg.Verbose, EnvVerbose)
    setBool(&cfg.LogJSON, EnvLogJSON)
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
    if strings.TrimSpace(s) == "" {
        return nil
    }
    parts := strings.Split(s, ",")
    list := make([]string, 0, len(parts))
    for _, p := range parts {
        if v := strings.TrimSpace(p); v != "" { list = append(list, v) }
    }
    return list
}
