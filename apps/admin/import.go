package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/seatplan/core/transfer"
)

func (cli *commandLine) newImportCmd() *cobra.Command {
	var groupsPath string

	cmd := &cobra.Command{
		Use:   "import CLASSROOM_JSON",
		Short: "Import a classroom JSON document",
		Long: `Import a classroom JSON document: students, furniture, groups and logs.
Student groups kept in a separate file can be given with --groups.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErr(cmd, args)
			}
			data, err := readClassroomData(args[0], groupsPath)
			if err != nil {
				return err
			}
			res, err := cli.transferSvc.Import(cmd.Context(), data)
			if err != nil {
				return errors.Wrap(err, "importing classroom data")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&groupsPath, "groups", "", "Student groups JSON document (group id -> group)")
	return cmd
}

func readClassroomData(path, groupsPath string) (transfer.ClassroomData, error) {
	f, err := os.Open(path)
	if err != nil {
		return transfer.ClassroomData{}, err
	}
	defer func() { _ = f.Close() }()

	data, err := transfer.DecodeClassroomData(f)
	if err != nil {
		return transfer.ClassroomData{}, err
	}
	if groupsPath == "" {
		return data, nil
	}

	gf, err := os.Open(groupsPath)
	if err != nil {
		return transfer.ClassroomData{}, err
	}
	defer func() { _ = gf.Close() }()

	groups, err := transfer.DecodeGroups(gf)
	if err != nil {
		return transfer.ClassroomData{}, err
	}
	if data.StudentGroups == nil {
		data.StudentGroups = make(map[string]transfer.GroupRecord, len(groups))
	}
	for id, g := range groups {
		data.StudentGroups[id] = g
	}
	return data, nil
}
