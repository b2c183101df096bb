package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/ghost"
	"github.com/trezcool/seatplan/core/transfer"
	"github.com/trezcool/seatplan/core/user"
	logsvc "github.com/trezcool/seatplan/services/logger"
	sqlxrepos "github.com/trezcool/seatplan/storage/database/sqlx"
	"github.com/trezcool/seatplan/tests"
)

type testEnv struct {
	cli      *commandLine
	out      *bytes.Buffer
	usrRepo  user.Repository
	classSvc classroom.Service
}

func setup(t *testing.T) testEnv {
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t)

	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	transfer.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	logger.Enable(false)

	usrRepo := sqlxrepos.NewUserRepository(db)
	classSvc := classroom.NewService(sqlxrepos.NewClassroomRepository(db), conf.Canvas)
	actSvc := activity.NewService(sqlxrepos.NewActivityRepository(db))

	out := new(bytes.Buffer)
	return testEnv{
		cli: &commandLine{
			db:          db,
			usrRepo:     usrRepo,
			transferSvc: transfer.NewService(classSvc, actSvc, validate, logger),
			ghostSvc:    ghost.NewService(conf.Ghost, classSvc, actSvc, nil),
			out:         out,
		},
		out:      out,
		usrRepo:  usrRepo,
		classSvc: classSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_root(t *testing.T) {
	env := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, env.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	var gotCommand string
	var gotArgs []string
	orig := runMigrationsFunc
	runMigrationsFunc = func(ctx context.Context, db *sqlx.DB, command string, args ...string) error {
		gotCommand, gotArgs = command, args
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { runMigrationsFunc = orig })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}, extra: "up"},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}, extra: "up-by-one"},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}, extra: "up-to"},
		{name: "down", args: []string{"migrate", "down"}, extra: "down"},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}, extra: "down-to"},
		{name: "redo", args: []string{"migrate", "redo"}, extra: "redo"},
		{name: "status", args: []string{"migrate", "status"}, extra: "status"},
		{name: "create", args: []string{"migrate", "create", "seats", "sql"}, extra: "create"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommand, gotArgs = "", nil
			err := env.cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if want, ok := tt.extra.(string); ok {
				assert.Equal(t, want, gotCommand)
				assert.Equal(t, tt.args[2:], append([]string{}, gotArgs...))
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, env.usrRepo, "Old Name", "awe", "awe@test.cd", "mdr", []string{user.RoleTeacher}, false)

	tests := []cliTest{
		{name: "no login", args: []string{"adduser", "--name", "Nobody"}, extra: "pwd", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--username", "new"}, wantErr: errHelp},
		{name: "create teacher", args: []string{"adduser", "--name", "New Teacher", "--username", "New"}, extra: "pwd"},
		{name: "create admin", args: []string{"adduser", "--email", "Boss@Test.cd", "--admin"}, extra: "pwd"},
		{name: "update existing", args: []string{"adduser", "--username", "awe", "--name", "New Name", "--admin"}, extra: "pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)
			tt.check(t, env.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	teacher, err := env.usrRepo.GetUserByUsername(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "New Teacher", teacher.Name)
	assert.Equal(t, []string{user.RoleTeacher}, teacher.Roles)
	assert.True(t, teacher.IsActive)
	assert.NoError(t, teacher.CheckPassword("pwd"))

	boss, err := env.usrRepo.GetUserByEmail(ctx, "boss@test.cd")
	require.NoError(t, err)
	assert.True(t, boss.IsAdmin())

	updated, err := env.usrRepo.GetUserByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.True(t, updated.IsActive)
	assert.True(t, updated.IsAdmin())
	assert.NoError(t, updated.CheckPassword("pwd"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, env.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, extra: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)

			err := env.cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err == nil {
				refreshed, err := env.usrRepo.GetUserByID(ctx, usr.ID)
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(pwd))
			}
		})
	}
}

const classroomJSON = `{
	"students": {
		"s1": {"first_name": "Ada", "last_name": "Lovelace", "x": 10, "y": 20, "style_overrides": {}, "group_id": "g1"},
		"s2": {"first_name": "Alan", "last_name": "Turing", "x": 300, "y": 20, "style_overrides": {}}
	},
	"furniture": {},
	"behavior_log": [
		{"student_id": "s1", "timestamp": "2024-03-04T09:15:00", "behavior": "Participating"}
	],
	"homework_log": []
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_commandLine_import(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	dataPath := writeFile(t, "classroom.json", classroomJSON)
	groupsPath := writeFile(t, "groups.json", `{"g1": {"name": "Reds", "color": "#FF0000"}}`)
	badPath := writeFile(t, "bad.json", `{"students": [`)

	tests := []cliTest{
		{name: "no file", args: []string{"import"}, wantErr: errHelp},
		{name: "missing file", args: []string{"import", filepath.Join(filepath.Dir(badPath), "nope.json")}, wantErr: os.ErrNotExist},
		{name: "invalid json", args: []string{"import", badPath}, wantErrStr: "decoding classroom data: unexpected EOF"},
		{name: "import with groups", args: []string{"import", dataPath, "--groups", groupsPath}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.out.Reset()
			tt.check(t, env.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Contains(t, env.out.String(), `"students_created": 2`)

	students, err := env.classSvc.QueryStudents(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, students, 2)

	groups, err := env.classSvc.QueryGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Reds", groups[0].Name)
}

func Test_commandLine_report(t *testing.T) {
	env := setup(t)

	tests := []cliTest{
		{name: "no engine", args: []string{"report"}, wantErr: errHelp},
		{name: "unknown engine", args: []string{"report", "lol"}, wantErr: ghost.ErrUnknownEngine},
		{name: "entanglement", args: []string{"report", ghost.EngineEntanglement}, extra: "ENTANGLEMENT"},
		{name: "warp", args: []string{"report", ghost.EngineWarp}, extra: "WARP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.out.Reset()
			tt.check(t, env.cli.run(append([]string{"admin"}, tt.args...)))
			if want, ok := tt.extra.(string); ok {
				assert.Contains(t, env.out.String(), want)
			}
		})
	}
}
