package cli

import (
	"fmt"

	"github.com/smallbiznis/menuya/internal/migration"
	"github.com/spf13/cobra"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := e.open()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			res, err := migration.Run(conn)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if res.Changed() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema migrated from version %d to %d\n", passStyle.Render("✓"), res.From, res.To)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date (%s)\n", passStyle.Render("✓"), res.Strategy)
			return nil
		},
	}
}
