package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"tap-instagram/pkg/auth"
	"tap-instagram/pkg/config"
	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/logger"
	"tap-instagram/pkg/state"
	"tap-instagram/pkg/stream"
	"tap-instagram/pkg/tap"
	"tap-instagram/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool

	// Sync flags
	discoverMode  bool
	aboutMode     bool
	inputState    string
	stateFile     string
	selectStreams []string
	sinkKind      string
	outputDir     string
	sqlitePath    string
	accountName   string
	accessToken   string
	maxPages      int
	checkSchema   bool
)

// rootCmd syncs all selected streams when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "tap-instagram",
	Short: "Singer tap for the Instagram Graph API",
	Long: `tap-instagram extracts Facebook pages, their linked Instagram business
accounts, and the media and stories of those accounts from the Graph API.

Singer messages (SCHEMA, RECORD, STATE) are written to stdout unless another
sink is selected. Logs and progress go to stderr.

The only required setting is an access token, given in the config file
({"access_token": "..."}), the TAP_INSTAGRAM_ACCESS_TOKEN variable, the
--access-token flag or a stored account (see 'tap-instagram auth login').`,
	Example: `  # Sync everything to stdout
  tap-instagram --config config.json > messages.jsonl

  # Print the catalog
  tap-instagram --config config.json --discover

  # Sync only media into SQLite
  tap-instagram --select media --sink sqlite --sqlite-path ig.db`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetQuiet(quiet)
		if quiet && !cmd.Flags().Changed("log-level") {
			logLevel = "error"
		}
	},
	RunE: runSync,
}

// Execute runs the root command and exits with the tap's exit code
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		ui.PrintError("tap-instagram", err)
	}
	os.Exit(tap.ExitCode(err))
}

func init() {
	tap.Version = version

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file, JSON or YAML (default is $HOME/.tap-instagram.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	f := rootCmd.Flags()
	f.BoolVar(&discoverMode, "discover", false, "print the catalog and exit")
	f.BoolVar(&aboutMode, "about", false, "print tap information and exit")
	f.StringVar(&inputState, "state", "", "state file from a previous run")
	f.StringVar(&stateFile, "state-file", "", "write the final state to this file")
	f.StringSliceVar(&selectStreams, "select", nil, "stream to sync (repeatable; default all)")
	f.StringVar(&sinkKind, "sink", "", "where messages go (stdout, jsonl, sqlite)")
	f.StringVarP(&outputDir, "output", "o", "", "output directory for the jsonl sink")
	f.StringVar(&sqlitePath, "sqlite-path", "", "database file for the sqlite sink")
	f.StringVarP(&accountName, "account", "a", "", "stored account to take the access token from")
	f.StringVar(&accessToken, "access-token", "", "Graph API access token")
	f.IntVar(&maxPages, "max-pages", 0, "maximum pages per partition (0 = unlimited)")
	f.BoolVar(&checkSchema, "check-schema", false, "report records that do not match their schema")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errs.NewConfigurationError("flags", "%v", err)
	})

	rootCmd.SetVersionTemplate(`tap-instagram {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the config file, environment and flags. Load failures are
// configuration errors.
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = map[string]interface{}{}
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, errs.NewConfigurationError("config", "%v", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, errs.NewConfigurationError("logging", "%v", err)
	}
	return cfg, nil
}

func syncFlags() map[string]interface{} {
	return map[string]interface{}{
		"access-token": accessToken,
		"account":      accountName,
		"sink":         sinkKind,
		"output":       outputDir,
		"sqlite-path":  sqlitePath,
		"state-file":   stateFile,
		"select":       selectStreams,
		"check-schema": checkSchema,
		"max-pages":    maxPages,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	if aboutMode {
		return writeJSON(tap.About())
	}

	cfg, err := loadConfig(syncFlags())
	if err != nil {
		return err
	}
	log := logger.GetLogger().WithField("version", version)

	registry, err := stream.Default()
	if err != nil {
		return err
	}

	if discoverMode {
		catalog, err := tap.Discover(registry, cfg.Streams.Selected)
		if err != nil {
			return err
		}
		return writeJSON(catalog)
	}

	opts := tap.Options{
		Config:   cfg,
		Registry: registry,
		Stdout:   os.Stdout,
		Logger:   log,
	}

	if inputState != "" {
		input, err := state.NewManager(inputState, log).Load()
		if err != nil {
			return errs.NewConfigurationError("state", "%v", err)
		}
		opts.InputState = input
	}

	if cfg.AccessToken == "" {
		manager, err := auth.NewManager("")
		if err != nil {
			log.WithError(err).Warn("Credential store unavailable")
		} else {
			opts.Credentials = manager
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := tap.New(opts)
	if err != nil {
		return err
	}

	runErr := t.Finish(t.Run(ctx))
	if status := t.Status(); status != nil {
		status.PrintSummary()
	}
	return runErr
}

// writeJSON prints v to stdout as indented JSON
func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
