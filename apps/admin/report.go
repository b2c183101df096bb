package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trezcool/seatplan/core/ghost"
)

func (cli *commandLine) newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report ENGINE",
		Short: "Print the markdown report of a Ghost Lab engine",
		Long:  "Print the markdown report of a Ghost Lab engine. Engines: " + strings.Join(ghost.Engines, ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErr(cmd, args)
			}
			report, err := cli.ghostSvc.Report(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), report)
			return err
		},
	}
}
