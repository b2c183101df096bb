package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/user"
)

func (cli *commandLine) newAddUserCmd() *cobra.Command {
	var name, uname, email string
	var isAdmin bool

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the one with the same username or email",
		Long:  "Create a user, or update the one with the same username or email. The password is prompted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" && email == "" {
				return usageErr(cmd, args)
			}
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), name, uname, email, pwd, isAdmin)
			if err != nil {
				return err
			}
			login := usr.Username
			if login == "" {
				login = usr.Email
			}
			cmd.Printf("user %q saved\n", login)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "The user's full name")
	cmd.Flags().StringVar(&uname, "username", "", "The user's username")
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Give the user the admin owner role")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, isAdmin bool) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.findUser(ctx, uname, email)
	found := err == nil
	if err != nil && !core.IsNotFound(err) {
		return user.User{}, err
	}

	now := core.Now()
	if !found {
		usr = user.User{
			ID:        uuid.NewString(),
			Username:  uname,
			Email:     email,
			Roles:     []string{user.RoleTeacher},
			CreatedAt: now,
		}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if isAdmin {
		usr.Roles = []string{user.RoleAdminOwner}
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	if found {
		return cli.usrRepo.UpdateUser(ctx, usr)
	}
	return cli.usrRepo.CreateUser(ctx, usr)
}

func (cli *commandLine) findUser(ctx context.Context, logins ...string) (user.User, error) {
	for _, login := range logins {
		if login == "" {
			continue
		}
		usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, login)
		if err == nil || !core.IsNotFound(err) {
			return usr, err
		}
	}
	return user.User{}, user.ErrNotFound
}
