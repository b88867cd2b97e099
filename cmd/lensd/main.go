package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lensd/internal/config"
	"lensd/internal/registry"
)

// defaultConfigFile is read when present and no --config is given.
const defaultConfigFile = "config.toml"

// options holds the flags shared by all subcommands.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	engine     string
	remoteURL  string
	apiKey     string
	modelsFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "lensd",
		Short:         "Logit lens and tokenization service for traced language models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", os.Getenv("LENSD_CONFIG"), "Config file (.toml, .yaml, .json); defaults to ./config.toml when present")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&o.logFormat, "log-format", "", "Log format: console|json")
	pf.StringVar(&o.engine, "engine", "", "Tracing engine: local|remote")
	pf.StringVar(&o.remoteURL, "remote-url", "", "Base URL of the remote tracing service")
	pf.StringVar(&o.apiKey, "api-key", "", "API key for the remote tracing service")
	pf.StringVar(&o.modelsFile, "models-file", "", "Additional models file ([models.<key>] tables)")

	root.AddCommand(newServeCmd(o), newModelsCmd(o), newTokenizeCmd(o), newLensCmd(o))
	return root
}

// loadConfig layers the config file, LENSD_* env and changed flags, in that
// order, then merges the models file and validates.
func loadConfig(cmd *cobra.Command, o *options) (config.Config, error) {
	var cfg config.Config
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("engine") {
		cfg.Engine.Kind = o.engine
	}
	if flags.Changed("remote-url") {
		cfg.Engine.RemoteURL = o.remoteURL
	}
	if flags.Changed("api-key") {
		cfg.Engine.APIKey = o.apiKey
	}
	if flags.Changed("models-file") {
		cfg.ModelsFile = o.modelsFile
	}
	cfg.ApplyDefaults()
	if cfg.ModelsFile != "" {
		extra, err := registry.LoadFile(cfg.ModelsFile)
		if err != nil {
			return cfg, err
		}
		cfg.Models = registry.MergeModels(cfg.Models, extra)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the process logger.
func newLogger(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level: %w", err)
	}
	var l zerolog.Logger
	switch format {
	case "json":
		l = zerolog.New(os.Stderr)
	case "console", "":
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	default:
		return zerolog.Logger{}, fmt.Errorf("unknown log format: %q", format)
	}
	return l.Level(lvl).With().Timestamp().Logger(), nil
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
