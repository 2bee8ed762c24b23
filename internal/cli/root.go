// Package cli implements menuyactl, the operator command line.
package cli

import (
	"github.com/smallbiznis/menuya/internal/config"
	"github.com/smallbiznis/menuya/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	version = "dev"
	commit  = "none"
)

// Opener connects to the database the commands work on.
type Opener func() (*gorm.DB, error)

type env struct {
	open    Opener
	verbose bool
}

func (e *env) logger() *zap.Logger {
	if !e.verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func newRootCmd(open Opener) *cobra.Command {
	e := &env{open: open}

	cmd := &cobra.Command{
		Use:           "menuyactl",
		Short:         "Operate a MenuYa restaurant",
		Long:          "menuyactl inspects tables and bills and performs the operator-side resets the apps cannot do.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Log what the command does")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newTablesCmd(e))
	cmd.AddCommand(newDiscountCmd(e))
	cmd.AddCommand(newMigrateCmd(e))
	return cmd
}

// NewRootCmdForTest returns the root command bound to open.
func NewRootCmdForTest(open Opener) *cobra.Command {
	return newRootCmd(open)
}

func Execute() error {
	return newRootCmd(func() (*gorm.DB, error) {
		return db.Open(config.Load())
	}).Execute()
}
