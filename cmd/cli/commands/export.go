package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

type ExportOptions struct {
	OutputFile string
}

func NewExportCmd() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <dashboard-id>",
		Short: "Export a dashboard document as JSON",
		Args:  cobra.ExactArgs(1),
		Example: `  # Export to stdout
  dashctl export 3f9a1c2e

  # Export to a file
  dashctl export 3f9a1c2e --output dashboard.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(ctx context.Context, id string, opts *ExportOptions) error {
	var d models.Dashboard
	if err := newAPIClient().do(ctx, "GET", "/api/v1/dashboards/"+id, nil, &d); err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(&d, "", "  ")
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')

	if opts.OutputFile == "" {
		_, err = os.Stdout.Write(encoded)
		return err
	}
	if err := os.WriteFile(opts.OutputFile, encoded, 0o644); err != nil {
		return err
	}
	fmt.Printf("Exported dashboard %s to %s\n", id, opts.OutputFile)
	return nil
}
