package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/alibenameur/dupfinder/internal/cleaner"
	"github.com/alibenameur/dupfinder/internal/config"
	"github.com/alibenameur/dupfinder/internal/duplicates"
	"github.com/alibenameur/dupfinder/internal/hasher"
	"github.com/alibenameur/dupfinder/internal/reporter"
	"github.com/alibenameur/dupfinder/internal/scanner"
	"github.com/alibenameur/dupfinder/internal/server"
	"github.com/alibenameur/dupfinder/internal/trash"
	"github.com/alibenameur/dupfinder/internal/ui"
	"github.com/alibenameur/dupfinder/pkg/utils"
)

var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath  string
	verbose     bool
	htmlPath    string
	noSort      bool
	autoClean   bool
	dryRun      bool
	force       bool
	interactive bool
	outputFmt   string
	workers     int
	noPermanent bool
	serveAddr   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dupfinder [flags] DIRECTORY...",
	Short: "Find and clean up duplicate files",
	Long: `Dupfinder scans one or more directories, fingerprints every regular file
and reports groups of identical files. Duplicates can be cleaned up
automatically (keeping the first copy found), reviewed interactively, or
deleted one by one from the generated HTML report.

Deletions are reversible: files go to the system trash whenever one is
available.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	Args:    cobra.MinimumNArgs(1),
	RunE:    runScan,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve and delete files referenced by HTML reports",
	Long: `Starts the report companion server. HTML reports link to it for viewing
files inline and for the per-file delete buttons.

  File serving:  GET    http://ADDR/?file_path=/path/to/file
  File deletion: DELETE http://ADDR/?file_path=/path/to/file`,
	RunE: runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		fmt.Printf("Config file: %s\n", cfgPath)
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			fmt.Println("Config file does not exist. Using default configuration.")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	rootCmd.Flags().StringVar(&htmlPath, "html", "", "write an HTML report to this path")
	rootCmd.Flags().BoolVar(&noSort, "no-sort", false, "keep discovery order instead of sorting groups by size")
	rootCmd.Flags().BoolVar(&autoClean, "auto-clean", false, "delete all duplicates except the first copy of each group")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what auto-clean would delete without deleting")
	rootCmd.Flags().BoolVar(&force, "force", false, "skip the auto-clean confirmation prompt")
	rootCmd.Flags().BoolVar(&interactive, "interactive", false, "review duplicates in a terminal browser")
	rootCmd.Flags().StringVar(&outputFmt, "output", "text", "stdout report format (text, json, yaml)")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "hashing workers (0 = one per CPU)")
	rootCmd.Flags().BoolVar(&noPermanent, "no-permanent", false, "fail deletions instead of falling back to permanent removal")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Walk the directory trees.
	stepStart := time.Now()
	scn := scanner.New(cfg.Rules())
	result, err := scn.Scan(ctx, args)
	if err != nil {
		if errors.Is(err, scanner.ErrNoValidRoots) {
			return fmt.Errorf("no valid directories to scan")
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	stepDone("scan", stepStart)
	fmt.Printf("Found %d files in %d directories\n", result.TotalFiles(), len(result.Summaries))

	// Fingerprint every file.
	stepStart = time.Now()
	engine := hasher.New(cfg.Hash.Workers, cfg.ChunkSize())
	bar := newHashBar(len(result.Records))
	records, hashAdvisories, err := engine.HashAll(ctx, result.Records, func(done int, path string) {
		_ = bar.Set(done)
	})
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("hashing failed: %w", err)
	}
	stepDone("hash", stepStart)

	advisories := append(result.Advisories, hashAdvisories...)

	// Group and order.
	groups := duplicates.GroupRecords(records)
	if cfg.SortBySize() {
		duplicates.SortBySize(groups)
	}
	redundantFiles, redundantBytes := duplicates.Totals(groups)
	fmt.Printf("Found %d duplicate groups among %d unique contents (%d redundant files, %s)\n",
		len(groups), duplicates.UniqueCount(records), redundantFiles, utils.FormatBytes(redundantBytes))

	trasher := trash.New(trash.AllowPermanent(cfg.AllowPermanent()))
	cln := cleaner.New(trasher)

	data := &reporter.Data{
		GeneratedAt: time.Now(),
		Summaries:   result.Summaries,
		Groups:      groups,
		Advisories:  advisories,
		ServerAddr:  cfg.Server.Addr,
	}

	switch {
	case interactive:
		model, err := ui.Run(groups, cln)
		if err != nil {
			return err
		}
		if stats := model.Stats(); stats.FilesDeleted > 0 {
			data.Stats = &stats
		}
		data.Failures = model.Failures()

	case autoClean || dryRun:
		stepStart = time.Now()
		cleanResult, err := runClean(ctx, cln, groups)
		if err != nil {
			return err
		}
		stepDone("clean", stepStart)

		if cleanResult.Aborted {
			fmt.Println("Auto-clean cancelled, nothing deleted.")
		} else {
			data.Stats = &cleanResult.Stats
			data.Failures = cleanResult.Errors
			reportCleanResult(cleanResult)
		}
	}

	if err := emitReports(data); err != nil {
		return err
	}
	return nil
}

// runClean applies the keep-first policy behind the interactive
// confirmation gate.
func runClean(ctx context.Context, cln *cleaner.Cleaner, groups []duplicates.Group) (*cleaner.Result, error) {
	cln.SetDryRun(dryRun)
	if force {
		cln.SetConfirmer(autoConfirmer{})
	} else {
		cln.SetConfirmer(surveyConfirmer{})
	}

	result, err := cln.Clean(ctx, groups)
	if err != nil {
		return nil, fmt.Errorf("auto-clean failed: %w", err)
	}
	return result, nil
}

func reportCleanResult(result *cleaner.Result) {
	if result.DryRun {
		fmt.Printf("[DRY RUN] Would delete %d files (%s)\n",
			result.Stats.FilesDeleted, utils.FormatBytes(result.Stats.BytesFreed))
		return
	}

	fmt.Printf("Deleted %d files, freed %s\n",
		result.Stats.FilesDeleted, utils.FormatBytes(result.Stats.BytesFreed))
	if result.Permanent > 0 {
		fmt.Printf("Warning: %d file(s) were deleted permanently (no trash available)\n", result.Permanent)
	}
	if len(result.Errors) > 0 {
		fmt.Print(cleaner.FormatErrorSummary(result.Errors))
	}
}

func emitReports(data *reporter.Data) error {
	format := reporter.OutputFormat(outputFmt)
	switch format {
	case reporter.FormatText, reporter.FormatJSON, reporter.FormatYAML:
	default:
		return fmt.Errorf("unsupported output format: %s", outputFmt)
	}

	if err := reporter.New(os.Stdout, format).Report(data); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if htmlPath != "" {
		if err := reporter.SaveToFile(data, htmlPath, reporter.FormatHTML); err != nil {
			return fmt.Errorf("failed to save HTML report: %w", err)
		}
		fmt.Printf("HTML report saved to: %s\n", htmlPath)
		fmt.Println("Run 'dupfinder serve' to enable the report's view and delete links.")
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	allowPermanent := cfg.AllowPermanent() && !noPermanent
	cln := cleaner.New(trash.New(trash.AllowPermanent(allowPermanent)))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := server.New(addr, cln, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving report files on http://%s\n", addr)
	fmt.Println("Press Ctrl+C to stop.")
	return srv.ListenAndServe(ctx)
}

// surveyConfirmer asks on the terminal before a destructive run. The
// default answer is no, and a missing terminal counts as no.
type surveyConfirmer struct{}

func (surveyConfirmer) Confirm(plan cleaner.Plan) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Delete %d files (%s)?",
			plan.FilesToDelete, utils.FormatBytes(plan.BytesToDelete)),
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// autoConfirmer implements --force.
type autoConfirmer struct{}

func (autoConfirmer) Confirm(plan cleaner.Plan) (bool, error) {
	return true, nil
}

func newHashBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Hashing files"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer: "=", SaucerPadding: " ", BarStart: "[", BarEnd: "]",
		}),
	)
}

func stepDone(name string, start time.Time) {
	if !verbose {
		return
	}
	fmt.Printf("  [%s] completed in %s\n", name, utils.FormatDuration(time.Since(start).Seconds()))
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") {
		cfg.Hash.Workers = workers
	}
	if noSort {
		off := false
		cfg.Report.SortBySize = &off
	}
	if noPermanent {
		off := false
		cfg.Trash.AllowPermanent = &off
	}
	if verbose {
		cfg.Verbose = true
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(cfgPath)
}
