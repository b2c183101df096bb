package main

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/seatplan/core/ghost"
	"github.com/trezcool/seatplan/core/transfer"
	"github.com/trezcool/seatplan/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sqlx.DB
	usrRepo     user.Repository
	transferSvc transfer.Service
	ghostSvc    ghost.Service
	out         io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Seatplan administration commands",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          usageErr,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(cli.out)
	rootCmd.SetErr(cli.out)

	rootCmd.AddCommand(
		cli.newMigrateCmd(),
		cli.newAddUserCmd(),
		cli.newResetPasswordCmd(),
		cli.newImportCmd(),
		cli.newReportCmd(),
	)
	return rootCmd
}

// run executes the command line args, program name included.
func (cli *commandLine) run(args []string) error {
	rootCmd := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func usageErr(cmd *cobra.Command, _ []string) error {
	_ = cmd.Usage()
	return errHelp
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", usageErr(cmd, nil)
	}
	return string(pwd), nil
}
