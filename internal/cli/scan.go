package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"GoldEater/internal/domain/model"
	"GoldEater/internal/logger"
	"GoldEater/internal/usecase"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	District    string
	Platforms   []string
	PromptTypes []string
	NoParallel  bool
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a district across AI platforms",
		Long: `Scan covers the district with an H3 grid, asks every selected platform
every selected prompt at each cell center, stores the rankings and resolves
the recommended names to real places.

Example:
  goldeater scan --district surry_hills
  goldeater scan --district newtown --platforms chatgpt,claude --prompt-types coffee_spot --no-parallel`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.District, "district", "", "district to scan (required)")
	cmd.Flags().StringSliceVar(&opts.Platforms, "platforms", nil, "platforms to scan (default from config)")
	cmd.Flags().StringSliceVar(&opts.PromptTypes, "prompt-types", nil, "prompt types to use (default from config)")
	cmd.Flags().BoolVar(&opts.NoParallel, "no-parallel", false, "run work items one at a time")
	_ = cmd.MarkFlagRequired("district")

	return cmd
}

func runScan(ctx context.Context, opts *ScanOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	platforms := opts.Platforms
	if len(platforms) == 0 {
		platforms = cfg.Scan.Platforms
	}

	a, err := buildApp(ctx, cfg, appNeeds{platforms: platforms, places: true, store: true})
	if err != nil {
		return err
	}
	defer a.close()
	ctx = a.withLogger(ctx)

	planned, err := a.useCase.PlannedItems(opts.District, platforms, opts.PromptTypes)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Scanning %s: %d work items\n", opts.District, planned)

	report, runErr := a.useCase.Run(ctx, usecase.ScanRequest{
		District:    opts.District,
		Platforms:   platforms,
		PromptTypes: opts.PromptTypes,
		Parallel:    !opts.NoParallel,
		Progress:    progressPrinter(out),
	})
	if report != nil {
		printRunSummary(out, report)
	}
	if runErr != nil {
		logger.FromContext(ctx).Sugar().Warnw("scan ended early", "error", runErr)
	}
	return runErr
}

// progressPrinter 1件終わるごとに ✓/✗ 行を出力する
func progressPrinter(out io.Writer) func(model.WorkItem, error) {
	return func(item model.WorkItem, err error) {
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", item.String(), err)
			return
		}
		fmt.Fprintf(out, "✓ %s\n", item.String())
	}
}

func printRunSummary(out io.Writer, r *model.RunReport) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run %s (%s)\n", r.RunID, r.Status)
	fmt.Fprintf(out, "  work items: %d succeeded, %d failed\n", r.Succeeded, r.Failed)
	fmt.Fprintf(out, "  stored:     %d jobs, %d results (%d tokens)\n", r.Jobs, r.Results, r.TokensConsumed)
	fmt.Fprintf(out, "  places:     %d resolved, %d unresolved of %d names\n", r.Resolved, r.Unresolved(), r.DistinctNames)
	for _, e := range r.StoreErrors {
		fmt.Fprintf(out, "  store error: %s\n", e)
	}
}
