package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"itcharchive/pkg/config"
	"itcharchive/pkg/errors"
	"itcharchive/pkg/logger"
	"itcharchive/pkg/ui"
)

var (
	// Version information, set with -ldflags at build time
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
)

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitNotFound  = 2
	exitCancelled = 130
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "itcharchive",
	Short: "Archive an itch.io creator's public project pages",
	Long: `itcharchive downloads every public project page of an itch.io creator,
extracts the project metadata, fetches cover art and screenshots and packs
everything into a single ZIP archive with a JSON index.

Run it once from the command line with 'itcharchive scrape <creator>' or
start the HTTP API with 'itcharchive serve'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			os.Setenv("NO_COLOR", "1")
		}
		ui.SetOutput(os.Stdout)
		ui.SetQuiet(quiet)
	},
}

// Execute adds all child commands to the root command and exits with a code
// matching the failure
func Execute() {
	err := rootCmd.Execute()
	code := exitCode(err)
	if err != nil && code != exitCancelled {
		ui.PrintError("Error", err)
	}
	os.Exit(code)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.IsCanceled(err), stderrors.Is(err, context.Canceled):
		return exitCancelled
	case errors.IsNotFound(err), errors.IsInvalidInput(err):
		return exitNotFound
	default:
		return exitFailure
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.itcharchive.yaml or $HOME/.config/itcharchive/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show log output alongside progress")

	rootCmd.SetVersionTemplate(`itcharchive {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges flags into the configuration and initialises the global
// logger from it
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
