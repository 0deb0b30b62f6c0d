// Package main provides the entry point for the saypipe CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/saypipe/saypipe/internal/audio"
	"github.com/saypipe/saypipe/internal/cache"
	"github.com/saypipe/saypipe/internal/chunk"
	"github.com/saypipe/saypipe/internal/config"
	"github.com/saypipe/saypipe/internal/merge"
	"github.com/saypipe/saypipe/internal/pipeline"
	"github.com/saypipe/saypipe/internal/retry"
	"github.com/saypipe/saypipe/internal/synth"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	voiceFlag  string
	cacheDir   string
	noPlay     bool
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "saypipe [text]",
		Short: "Speak text aloud with Edge neural voices",
		Long: "\nSynthesize text to speech and play it. Text comes from the argument,\n" +
			"or from stdin when piped or when the argument is '-'. Artifacts are\n" +
			"cached on disk so repeated text plays instantly.",
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		RunE:          execute,
	}
)

func execute(cmd *cobra.Command, args []string) error {
	text, err := readText(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger()
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	result, err := p.Speak(ctx, text, cfg.Voice, !noPlay)
	if err != nil {
		return err
	}
	logger.Info(result.Status())
	if !noPlay {
		return nil
	}
	// Without playback the artifact path is the useful output.
	fmt.Println(result.ArtifactPath)
	return nil
}

// readText resolves the text to speak: a pipe or "-" means stdin, anything
// else is the literal argument.
func readText(args []string) (string, error) {
	fromArg := ""
	if len(args) == 1 {
		fromArg = args[0]
	}

	piped, err := stdinIsPipe()
	if err != nil {
		return "", err
	}
	if fromArg == "-" || (fromArg == "" && piped) {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read stdin: %w", err)
		}
		return string(b), nil
	}
	if fromArg == "" {
		return "", fmt.Errorf("nothing to speak: pass text as an argument or pipe it in")
	}
	return fromArg, nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// loadConfig layers defaults, the config file, the environment, and flags,
// in that precedence order.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if v := viper.GetString("voice"); v != "" {
		cfg.Voice = v
	}
	if v := viper.GetString("cache_dir"); v != "" {
		cfg.CacheDir = v
	}
	if v := viper.GetInt("max_chunk_size"); v > 0 {
		cfg.MaxChunkSize = v
	}
	if v := viper.GetInt("min_chunk_size"); v > 0 {
		cfg.MinChunkSize = v
	}
	if v := viper.GetInt("max_cache_entries"); v > 0 {
		cfg.MaxCacheEntries = v
	}
	if v := viper.GetDuration("retention_window"); v > 0 {
		cfg.RetentionWindow = v
	}
	if v := viper.GetInt("max_attempts"); v > 0 {
		cfg.MaxAttempts = v
	}
	if v := viper.GetDuration("base_delay"); v > 0 {
		cfg.BaseDelay = v
	}
	if v := viper.GetDuration("max_delay"); v > 0 {
		cfg.MaxDelay = v
	}
	if v := viper.GetInt("max_in_flight"); v > 0 {
		cfg.MaxInFlight = v
	}
	if v := viper.GetInt("requests_per_minute"); v > 0 {
		cfg.RequestsPerMinute = v
	}

	cfg, err := config.FromEnv(cfg)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("voice") {
		cfg.Voice = voiceFlag
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir = cacheDir
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildPipeline wires the components from the resolved configuration.
func buildPipeline(cfg config.Config, logger *log.Logger) (*pipeline.Pipeline, error) {
	dir, err := cfg.ResolveCacheDir()
	if err != nil {
		return nil, err
	}
	store, err := cache.New(dir, cfg.MaxCacheEntries, cfg.RetentionWindow)
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Deps{
		Chunker:     chunk.New(cfg.MaxChunkSize, cfg.MinChunkSize),
		Store:       store,
		Client:      synth.NewEdgeClient(cfg.RequestsPerMinute, logger),
		Retrier:     retry.New(cfg.MaxAttempts, cfg.BaseDelay, cfg.MaxDelay),
		Merger:      merge.Detect("", logger),
		Player:      audio.NewOtoPlayer(logger),
		Catalog:     synth.NewCatalog(nil),
		MaxInFlight: cfg.MaxInFlight,
		Logger:      logger,
	})
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	log.SetDefault(logger)
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")
	rootCmd.Flags().StringVarP(&voiceFlag, "voice", "v", "", "synthesis voice ID or display name")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "artifact cache directory")
	rootCmd.Flags().BoolVar(&noPlay, "no-play", false, "synthesize and cache without playing; prints the artifact path")

	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("cache_dir", rootCmd.Flags().Lookup("cache-dir"))

	rootCmd.AddCommand(voicesCmd, cacheCmd, configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "saypipe")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "saypipe")}, dirs...)
	}

	if c := os.Getenv("SAYPIPE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("saypipe")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("saypipe")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "saypipe.yml")
}
