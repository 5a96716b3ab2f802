package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

type ImportOptions struct {
	InputFile string
	ID        string
}

func NewImportCmd() *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a dashboard document from JSON",
		Long: `Import a dashboard from a JSON file. Without --id a new dashboard is
created; with --id (or an id inside the file) the existing dashboard is
overwritten.`,
		Example: `  # Create a new dashboard from a file
  dashctl import --file dashboard.json

  # Overwrite an existing dashboard
  dashctl import --file dashboard.json --id 3f9a1c2e`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "file", "f", "", "dashboard JSON file (required)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "target dashboard id")
	cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions) error {
	raw, err := os.ReadFile(opts.InputFile)
	if err != nil {
		return err
	}

	var d models.Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		return fmt.Errorf("invalid dashboard document: %w", err)
	}
	if d.Title == "" {
		return fmt.Errorf("dashboard document has no title")
	}

	client := newAPIClient()

	id := opts.ID
	if id == "" {
		id = d.ID
	}
	if id == "" {
		var created models.Dashboard
		body := map[string]string{"title": d.Title}
		if err := client.do(ctx, "POST", "/api/v1/dashboards", body, &created); err != nil {
			return err
		}
		id = created.ID
	}

	d.ID = id
	var stored models.Dashboard
	if err := client.do(ctx, "PUT", "/api/v1/dashboards/"+id, &d, &stored); err != nil {
		return err
	}

	fmt.Printf("Imported dashboard %q as %s\n", stored.Title, stored.ID)
	return nil
}
