package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	District string
	Limit    int
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve stored results that have no place yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.District, "district", "", "district whose results to resolve (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum number of stored results to load")
	_ = cmd.MarkFlagRequired("district")

	return cmd
}

func runResolve(ctx context.Context, opts *ResolveOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, appNeeds{places: true, store: true})
	if err != nil {
		return err
	}
	defer a.close()
	ctx = a.withLogger(ctx)

	report, err := a.useCase.Backfill(ctx, opts.District, opts.Limit)
	if report != nil {
		res := report.Resolution
		fmt.Fprintf(out, "%s: %d unresolved results, %d distinct names\n", report.District, report.Candidates, res.DistinctNames)
		fmt.Fprintf(out, "  resolved %d, not found %d, errors %d, updated %d results\n",
			res.Resolved, res.NotFound, len(res.Failures), report.Updated)
		for _, name := range res.NotFoundNames {
			fmt.Fprintf(out, "  ? %s\n", name)
		}
	}
	return err
}
