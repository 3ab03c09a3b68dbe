package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/url"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
    Listen string `yaml:"listen" json:"listen"`

    Upstream struct {
        Timeout      Duration `yaml:"timeout" json:"timeout"`
        UserAgent    string   `yaml:"userAgent" json:"userAgent"`
        MaxRedirects int      `yaml:"maxRedirects" json:"maxRedirects"`
        MaxBodyBytes int64    `yaml:"maxBodyBytes" json:"maxBodyBytes"`
    } `yaml:"upstream" json:"upstream"`

    Hosts struct {
        Allow []string `yaml:"allow" json:"allow"`
    } `yaml:"hosts" json:"hosts"`

    Search struct {
        Base string `yaml:"base" json:"base"`
    } `yaml:"search" json:"search"`

    Server struct {
        ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
    } `yaml:"server" json:"server"`

    Log struct {
        Verbose bool `yaml:"verbose" json:"verbose"`
        JSON    bool `yaml:"json" json:"json"`
    } `yaml:"log" json:"log"`
}

// Duration is a time.Duration written as "5s" in both YAML and JSON files.
// Bare integers are read as nanoseconds.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
    var v any
    if err := json.Unmarshal(b, &v); err != nil {
        return err
    }
    switch x := v.(type) {
    case string:
        parsed, err := time.ParseDuration(x)
        if err != nil {
            return fmt.Errorf("invalid duration %q: %w", x, err)
        }
        *d = Duration(parsed)
    case float64:
        *d = Duration(int64(x))
    case nil:
    default:
        return fmt.Errorf("invalid duration %s", string(b))
    }
    return nil
}

// UnmarshalYAML accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
    if value.Kind != yaml.ScalarNode {
        return fmt.Errorf("line %d: duration must be a scalar", value.Line)
    }
    if parsed, err := time.ParseDuration(value.Value); err == nil {
        *d = Duration(parsed)
        return nil
    }
    var n int64
    if err := value.Decode(&n); err != nil {
        return fmt.Errorf("line %d: invalid duration %q", value.Line, value.Value)
    }
    *d = Duration(n)
    return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. Call it before
// ApplyEnvOverrides and flag handling so those keep higher precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if fc.Listen != "" { cfg.ListenAddr = fc.Listen }

    if fc.Upstream.Timeout > 0 { cfg.UpstreamTimeout = time.Duration(fc.Upstream.Timeout) }
    if fc.Upstream.UserAgent != "" { cfg.UserAgent = fc.Upstream.UserAgent }
    if fc.Upstream.MaxRedirects > 0 { cfg.MaxRedirects = fc.Upstream.MaxRedirects }
    if fc.Upstream.MaxBodyBytes > 0 { cfg.MaxBodyBytes = fc.Upstream.MaxBodyBytes }

    if len(fc.Hosts.Allow) > 0 { cfg.AllowedHosts = append([]string{}, fc.Hosts.Allow...) }
    if fc.Search.Base != "" { cfg.SearchBase = fc.Search.Base }
    if fc.Server.ShutdownTimeout > 0 { cfg.ShutdownTimeout = time.Duration(fc.Server.ShutdownTimeout) }

    if fc.Log.Verbose { cfg.Verbose = true }
    if fc.Log.JSON { cfg.LogJSON = true }
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
    if strings.TrimSpace(cfg.ListenAddr) == "" {
        return errors.New("config: listen address is required")
    }
    if cfg.UpstreamTimeout <= 0 {
        return errors.New("config: upstream timeout must be positive")
    }
    if cfg.MaxRedirects < 0 || cfg.MaxBodyBytes < 0 || cfg.ShutdownTimeout < 0 {
        return errors.New("config: negative limits are not allowed")
    }
    hosts := 0
    for _, h := range cfg.AllowedHosts {
        if strings.TrimSpace(h) != "" { hosts++ }
    }
    if hosts == 0 {
        return errors.New("config: at least one allowed host is required")
    }
    u, err := url.Parse(cfg.SearchBase)
    if err != nil || u.Scheme != "https" || u.Host == "" {
        return fmt.Errorf("config: search base must be an absolute https URL, got %q", cfg.SearchBase)
    }
    return nil
}
