package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dashboards on the server",
		Example: `  # List all dashboards
  dashctl list --server http://localhost:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context())
		},
	}
}

func runList(ctx context.Context) error {
	var resp struct {
		Data []*models.Dashboard `json:"data"`
	}
	if err := newAPIClient().do(ctx, "GET", "/api/v1/dashboards", nil, &resp); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tWIDGETS\tSTATES")
	for _, d := range resp.Data {
		widgets, states := 0, 0
		if d.Configuration != nil {
			widgets = len(d.Configuration.Widgets)
			states = len(d.Configuration.States)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", d.ID, d.Title, widgets, states)
	}
	return w.Flush()
}
