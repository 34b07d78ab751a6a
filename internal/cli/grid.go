package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// GridOptions holds flags for the grid command.
type GridOptions struct {
	*RootOptions
	District string
	JSON     bool
}

// NewGridCommand creates the grid command.
func NewGridCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GridOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Preview the H3 grid of a district without calling any provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrid(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.District, "district", "", "district to preview (required)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print cells as JSON")
	_ = cmd.MarkFlagRequired("district")

	return cmd
}

func runGrid(ctx context.Context, opts *GridOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, appNeeds{})
	if err != nil {
		return err
	}
	defer a.close()

	d, cells, err := a.useCase.Grid(opts.District)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cells)
	}

	fmt.Fprintf(out, "%s (%s): %d cells at resolution %d\n", d.DisplayName, d.Name, len(cells), a.cfg.Scan.H3Resolution)
	for _, c := range cells {
		fmt.Fprintf(out, "%s  %.6f,%.6f\n", c.H3Index, c.CenterLat, c.CenterLng)
	}
	perCell := len(a.cfg.Scan.Platforms) * len(a.cfg.Scan.PromptTypes) * a.cfg.Scan.Repetitions
	fmt.Fprintf(out, "full scan: %d work items\n", len(cells)*perCell)
	return nil
}
