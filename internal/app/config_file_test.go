package app

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    yaml "gopkg.in/yaml.v3"
)

func TestLoadConfigFile_YAML(t *testing.T) {
    path := filepath.Join(t.TempDir(), "piproxy.yaml")
    content := `listen: "127.0.0.1:9090"
upstream:
  timeout: 5s
  userAgent: "yaml-agent"
  maxRedirects: 3
hosts:
  allow: ["patient-innovation.com"]
server:
  shutdownTimeout: 2s
log:
  verbose: true
`
    if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
        t.Fatalf("write config: %v", err)
    }
    fc, err := LoadConfigFile(path)
    if err != nil {
        t.Fatalf("LoadConfigFile: %v", err)
    }
    cfg := DefaultConfig()
    ApplyFileConfig(&cfg, fc)
    if cfg.ListenAddr != "127.0.0.1:9090" || cfg.UpstreamTimeout != 5*time.Second || cfg.UserAgent != "yaml-agent" {
        t.Fatalf("unexpected cfg: %+v", cfg)
    }
    if cfg.MaxRedirects != 3 || cfg.ShutdownTimeout != 2*time.Second || !cfg.Verbose {
        t.Fatalf("unexpected cfg: %+v", cfg)
    }
    if len(cfg.AllowedHosts) != 1 || cfg.AllowedHosts[0] != "patient-innovation.com" {
        t.Fatalf("AllowedHosts=%v", cfg.AllowedHosts)
    }
    // Untouched values keep their defaults.
    if cfg.SearchBase != DefaultConfig().SearchBase || cfg.MaxBodyBytes != DefaultMaxBodyBytes {
        t.Fatalf("defaults lost: %+v", cfg)
    }
}

func TestLoadConfigFile_JSON(t *testing.T) {
    path := filepath.Join(t.TempDir(), "piproxy.json")
    if err := os.WriteFile(path, []byte(`{"listen":":7070","log":{"json":true}}`), 0o600); err != nil {
        t.Fatalf("write config: %v", err)
    }
    fc, err := LoadConfigFile(path)
    if err != nil {
        t.Fatalf("LoadConfigFile: %v", err)
    }
    if fc.Listen != ":7070" || !fc.Log.JSON {
        t.Fatalf("unexpected file config: %+v", fc)
    }
}

func TestLoadConfigFile_JSONDurations(t *testing.T) {
    path := filepath.Join(t.TempDir(), "piproxy.json")
    content := `{"upstream":{"timeout":"5s","maxRedirects":1},"server":{"shutdownTimeout":"2s"}}`
    if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
        t.Fatalf("write config: %v", err)
    }
    fc, err := LoadConfigFile(path)
    if err != nil {
        t.Fatalf("LoadConfigFile: %v", err)
    }
    cfg := DefaultConfig()
    ApplyFileConfig(&cfg, fc)
    if cfg.UpstreamTimeout != 5*time.Second || cfg.ShutdownTimeout != 2*time.Second || cfg.MaxRedirects != 1 {
        t.Fatalf("unexpected cfg: %+v", cfg)
    }
}

func TestDuration_Decode(t *testing.T) {
    var d Duration
    if err := d.UnmarshalJSON([]byte(`1500000000`)); err != nil || time.Duration(d) != 1500*time.Millisecond {
        t.Fatalf("json nanoseconds: %v %v", time.Duration(d), err)
    }
    if err := d.UnmarshalJSON([]byte(`"soon"`)); err == nil {
        t.Fatalf("expected error for bad json duration")
    }
    if err := d.UnmarshalJSON([]byte(`true`)); err == nil {
        t.Fatalf("expected error for json bool")
    }

    var fc FileConfig
    if err := yaml.Unmarshal([]byte("upstream:\n  timeout: 250ms\n"), &fc); err != nil {
        t.Fatalf("yaml: %v", err)
    }
    if time.Duration(fc.Upstream.Timeout) != 250*time.Millisecond {
        t.Fatalf("yaml timeout=%v", time.Duration(fc.Upstream.Timeout))
    }
    if err := yaml.Unmarshal([]byte("upstream:\n  timeout: later\n"), &fc); err == nil {
        t.Fatalf("expected error for bad yaml duration")
    }
}

func TestLoadConfigFile_Invalid(t *testing.T) {
    path := filepath.Join(t.TempDir(), "broken.yaml")
    if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
        t.Fatalf("write config: %v", err)
    }
    if _, err := LoadConfigFile(path); err == nil || !strings.Contains(err.Error(), "parse yaml") {
        t.Fatalf("expected yaml parse error, got %v", err)
    }
    if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
        t.Fatalf("expected error for missing file")
    }
}

func TestValidateConfig(t *testing.T) {
    if err := ValidateConfig(DefaultConfig()); err != nil {
        t.Fatalf("defaults must validate: %v", err)
    }
    cases := map[string]func(*Config){
        "empty listen":     func(c *Config) { c.ListenAddr = " " },
        "zero timeout":     func(c *Config) { c.UpstreamTimeout = 0 },
        "negative hops":    func(c *Config) { c.MaxRedirects = -1 },
        "no hosts":         func(c *Config) { c.AllowedHosts = []string{" ", ""} },
        "http search base": func(c *Config) { c.SearchBase = "http://patient-innovation.com/" },
        "relative base":    func(c *Config) { c.SearchBase = "/search" },
    }
    for name, mutate := range cases {
        cfg := DefaultConfig()
        mutate(&cfg)
        if err := ValidateConfig(cfg); err == nil {
            t.Fatalf("%s: expected validation error", name)
        }
    }
}
