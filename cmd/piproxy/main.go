package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/piproxy/internal/app"
)

// cliFlags holds raw flag values; only flags the user actually set are
// applied on top of file and environment configuration.
type cliFlags struct {
	configPath   string
	envFiles     string
	listen       string
	timeout      time.Duration
	userAgent    string
	maxRedirects int
	maxBodyBytes int64
	hosts        string
	searchBase   string
	verbose      bool
	logJSON      bool
	version      bool
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	f, set, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if f.version {
		fmt.Println(app.VersionString())
		return
	}

	cfg, err := buildConfig(f, set)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)
	setGinMode(cfg)
	log.Info().Str("version", app.BuildVersion).Str("commit", app.BuildCommit).Msg("starting piproxy")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func parseFlags(args []string) (cliFlags, map[string]bool, error) {
	var f cliFlags
	fs := flag.NewFlagSet("piproxy", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", os.Getenv("PIPROXY_CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&f.envFiles, "env", ".env", "Comma-separated dotenv files to load (missing files are skipped)")
	fs.StringVar(&f.listen, "listen", app.DefaultListenAddr, "HTTP listen address")
	fs.DurationVar(&f.timeout, "upstream.timeout", app.DefaultUpstreamTimeout, "Timeout for each upstream request")
	fs.StringVar(&f.userAgent, "upstream.ua", app.DefaultUserAgent, "User-Agent sent to the upstream site (empty disables the header)")
	fs.IntVar(&f.maxRedirects, "upstream.maxRedirects", 0, "Follow up to N upstream redirects, each re-checked against the allowlist (0 disables)")
	fs.Int64Var(&f.maxBodyBytes, "upstream.maxBodyBytes", app.DefaultMaxBodyBytes, "Maximum upstream body size in bytes")
	fs.StringVar(&f.hosts, "hosts.allow", "", "Comma-separated allowlist of upstream hosts")
	fs.StringVar(&f.searchBase, "search.base", "", "Base URL of the site search page")
	fs.BoolVar(&f.verbose, "v", false, "Verbose logging")
	fs.BoolVar(&f.logJSON, "log.json", false, "Log JSON lines instead of console output")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return f, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, nil
}

// buildConfig layers defaults, config file, environment and explicit flags,
// in increasing order of precedence.
func buildConfig(f cliFlags, set map[string]bool) (app.Config, error) {
	if err := app.LoadEnvFiles(app.SplitList(f.envFiles)...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}

	cfg := app.DefaultConfig()
	if f.configPath != "" {
		fc, err := app.LoadConfigFile(f.configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("config file %s: %w", f.configPath, err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	if set["listen"] {
		cfg.ListenAddr = f.listen
	}
	if set["upstream.timeout"] {
		cfg.UpstreamTimeout = f.timeout
	}
	if set["upstream.ua"] {
		cfg.UserAgent = f.userAgent
	}
	if set["upstream.maxRedirects"] {
		cfg.MaxRedirects = f.maxRedirects
	}
	if set["upstream.maxBodyBytes"] {
		cfg.MaxBodyBytes = f.maxBodyBytes
	}
	if set["hosts.allow"] {
		cfg.AllowedHosts = app.SplitList(f.hosts)
	}
	if set["search.base"] {
		cfg.SearchBase = f.searchBase
	}
	if set["v"] {
		cfg.Verbose = f.verbose
	}
	if set["log.json"] {
		cfg.LogJSON = f.logJSON
	}

	return cfg, app.ValidateConfig(cfg)
}

func setupLogging(cfg app.Config) {
	if cfg.LogJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// setGinMode picks the router mode once, before any engine is built.
func setGinMode(cfg app.Config) {
	if cfg.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}
