package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"itcharchive/pkg/config"
	"itcharchive/pkg/logger"
	"itcharchive/pkg/scraper"
	"itcharchive/pkg/ui"
	"itcharchive/pkg/ui/tui"
)

var (
	// Scrape command flags
	outputDir       string
	concurrent      int
	requestTimeout  time.Duration
	baseURL         string
	skipScreenshots bool
	useTUI          bool
	notify          bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <creator>",
	Short: "Archive every public project of an itch.io creator",
	Long: `Archive every public project of an itch.io creator.

The creator's project listing is walked page by page, each project page is
parsed for its metadata and the cover and screenshots are downloaded. The
result is written to <creator>_itch.zip in the output directory. Projects
that cannot be fetched or parsed are skipped and listed in index.json.`,
	Example: `  # Archive into the default output directory
  itcharchive scrape some-dev

  # Archive into ./archives without screenshots
  itcharchive scrape some-dev -o ./archives --skip-screenshots

  # Follow the run in a full-screen dashboard
  itcharchive scrape some-dev --tui`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := scrapeFlags(cmd)
		if !verbose && logLevel == "" && ui.IsInteractive() {
			// keep the progress line readable
			flags["log-level"] = "error"
		}

		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = runScrape(ctx, cfg, args[0], scrapeOptions{tui: useTUI, notify: notify})
		return err
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the archive")
	scrapeCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent image downloads")
	scrapeCmd.Flags().DurationVar(&requestTimeout, "timeout", 0, "per-request timeout")
	scrapeCmd.Flags().StringVar(&baseURL, "base-url", "", "creator page URL template containing {creator}")
	scrapeCmd.Flags().BoolVar(&skipScreenshots, "skip-screenshots", false, "only download cover images")
	scrapeCmd.Flags().BoolVar(&useTUI, "tui", false, "show a full-screen dashboard while archiving")
	scrapeCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

func scrapeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent > 0 {
		flags["concurrent-downloads"] = concurrent
	}
	if requestTimeout > 0 {
		flags["timeout"] = requestTimeout
	}
	if baseURL != "" {
		flags["base-url"] = baseURL
	}
	if cmd.Flags().Changed("skip-screenshots") {
		flags["skip-screenshots"] = skipScreenshots
	}
	return flags
}

type scrapeOptions struct {
	tui    bool
	notify bool
}

// runScrape archives creator and returns the archive path
func runScrape(ctx context.Context, cfg *config.Config, creator string, opts scrapeOptions) (string, error) {
	log := logger.GetLogger()
	s := scraper.New(cfg, nil, log)
	progress := scraper.NewProgress()
	notifier := ui.NewNotifier(opts.notify)

	var (
		path string
		err  error
	)
	if opts.tui {
		path, err = runWithDashboard(ctx, s, creator, cfg.Output.Directory, progress)
	} else {
		ui.PrintBanner()
		ui.PrintInfo("Creator", creator)
		ui.PrintInfo("Output", cfg.Output.Directory)

		display := ui.NewProgressDisplay(verbose)
		display.Attach(progress)
		_, path, err = s.Run(ctx, creator, progress)
		if err == nil {
			display.Complete(progress.Snapshot(), path)
		}
	}

	switch {
	case err == nil:
		notifier.SendSuccess("Archive ready", path)
		if quiet {
			fmt.Fprintln(os.Stdout, path)
		}
	case progress.Snapshot().Status == scraper.StatusCancelled:
		ui.PrintWarning("Run cancelled, partial archive discarded")
	default:
		notifier.SendError("Archive failed", err.Error())
	}
	return path, err
}

// runWithDashboard runs s behind the full-screen dashboard. Quitting the
// dashboard cancels the run.
func runWithDashboard(ctx context.Context, s *scraper.Scraper, creator, outputDir string, progress *scraper.Progress) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dashboard := tui.NewTUI(creator, cancel)
	dashboard.Attach(progress)

	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		dashboard.LogInfo("Writing archive to " + outputDir)
		_, path, err := s.Run(ctx, creator, progress)
		dashboard.Finish(path, err)
		done <- result{path: path, err: err}
	}()

	if err := dashboard.Run(); err != nil {
		cancel()
		<-done
		return "", fmt.Errorf("dashboard failed: %w", err)
	}

	res := <-done
	return res.path, res.err
}
