package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/seatplan/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migrations command (up, down, status, version, ...)",
		// goose arguments are passed through untouched
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageErr(cmd, args)
			}
			return runMigrationsFunc(cmd.Context(), cli.db, args[0], args[1:]...)
		},
	}
}
