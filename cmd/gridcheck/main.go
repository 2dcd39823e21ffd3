package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/browser/chrome"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/harness"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	gridName    = flag.String("grid", "education", "Grid to act on: education or certification")
	action      = flag.String("action", "snapshot", "Action: snapshot, drain or runs")
	baseURL     = flag.String("base-url", "", "Application base URL (overrides config)")
	headed      = flag.Bool("headed", false, "Show the browser window")
	limit       = flag.Int("limit", 20, "Number of ledger entries listed by -action runs")
	schedule    = flag.String("schedule", "", "Cron spec (e.g. \"@every 30m\"); repeats the action until interrupted")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("gridcheck version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("gridcheck.toml"); err == nil {
			configFiles = append(configFiles, "gridcheck.toml")
		}
	}

	// 1. Load config (defaults -> files -> env), 2. flags, 3. logger, 4. banner
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	var headless *bool
	if *headed {
		off := false
		headless = &off
	}
	common.ApplyFlagOverrides(config, *baseURL, headless)

	logger := common.InitLogger(config)
	common.InstallCrashHandler(config.Logging.Dir)
	defer common.RecoverWithCrashFile()
	common.PrintBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil {
		logger.Error().Err(err).Str("action", *action).Str("grid", *gridName).Msg("gridcheck failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, config *common.Config, logger arbor.ILogger) error {
	var runs interfaces.RunStorage
	if config.Storage.Badger.Enabled {
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return err
		}
		defer db.Close()
		runs = badger.NewRunStorage(db, logger)
	}

	if *action == "runs" {
		if runs == nil {
			return errors.New("run ledger is disabled ([storage.badger] enabled = false)")
		}
		return listRuns(ctx, runs)
	}

	if *gridName != "education" && *gridName != "certification" {
		return fmt.Errorf("unknown grid %q", *gridName)
	}
	if *action != "snapshot" && *action != "drain" {
		return fmt.Errorf("unknown action %q", *action)
	}
	if !config.HasLiveTarget() {
		return errors.New("no base_url configured (set [environment] base_url, GRIDCHECK_BASE_URL or -base-url)")
	}

	if *schedule != "" {
		return runScheduled(ctx, *schedule, logger, func(ctx context.Context) error {
			return runSession(ctx, config, runs, logger)
		})
	}
	return runSession(ctx, config, runs, logger)
}

// runSession runs the action once in a fresh browser
func runSession(ctx context.Context, config *common.Config, runs interfaces.RunStorage, logger arbor.ILogger) error {
	browser, err := chrome.NewSession(chrome.OptionsFromConfig(config.Browser), logger)
	if err != nil {
		return err
	}
	hc, err := harness.New(ctx, config, browser, harness.Options{
		Name:   fmt.Sprintf("cli/%s/%s", *gridName, *action),
		Runs:   runs,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer hc.Cleanup()

	if err := hc.Open(); err != nil {
		return err
	}
	return hc.Fail(perform(hc))
}

func perform(hc *harness.Context) error {
	switch *gridName {
	case "certification":
		if err := hc.Certification.OpenTab(hc.Ctx); err != nil {
			return err
		}
		if *action == "drain" {
			report, err := hc.Certification.DrainAll(hc.Ctx)
			hc.Log("Drained %d certification rows in %d iterations (%d skips)", report.Removed, report.Iterations, report.Skips)
			return err
		}
		details, err := hc.Certification.Details(hc.Ctx)
		if err != nil {
			return err
		}
		hc.Log("Certification grid: %s", details)
	default:
		if err := hc.Education.OpenTab(hc.Ctx); err != nil {
			return err
		}
		if *action == "drain" {
			report, err := hc.Education.DrainAll(hc.Ctx)
			hc.Log("Drained %d education rows in %d iterations (%d skips)", report.Removed, report.Iterations, report.Skips)
			return err
		}
		details, err := hc.Education.Details(hc.Ctx)
		if err != nil {
			return err
		}
		hc.Log("Education grid: %s", details)
	}
	return nil
}

func listRuns(ctx context.Context, runs interfaces.RunStorage) error {
	list, err := runs.ListRuns(ctx, interfaces.RunListOptions{Limit: *limit})
	if err != nil {
		return err
	}
	for _, r := range list {
		line := fmt.Sprintf("%s  %-8s %-40s %6dms", r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Name, r.DurationMs)
		if r.Failure != "" {
			line += "  " + strings.SplitN(r.Failure, "\n", 2)[0]
		}
		fmt.Println(line)
	}
	return nil
}
