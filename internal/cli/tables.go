package cli

import (
	"encoding/json"
	"fmt"

	accountrepo "github.com/smallbiznis/menuya/internal/account/repository"
	orderrepo "github.com/smallbiznis/menuya/internal/order/repository"
	"github.com/smallbiznis/menuya/internal/realtime"
	tablerepo "github.com/smallbiznis/menuya/internal/table/repository"
	"github.com/spf13/cobra"
)

func newTablesCmd(e *env) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Show every table with its bucket",
		Long:  "Show the salon as the waiters see it: free, occupied, awaiting order confirmation or awaiting payment confirmation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := e.open()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			views := realtime.NewViews(conn, orderrepo.Provide(), accountrepo.Provide(), tablerepo.Provide())
			view, err := views.Tables(cmd.Context())
			if err != nil {
				return fmt.Errorf("load tables: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderTables(view))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
