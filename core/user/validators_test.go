package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/seatplan/core"
)

func TestPasswordPolicyViolation(t *testing.T) {
	LoadCommonPasswords()

	tests := []struct {
		name    string
		pwd     string
		usrName string
		uname   string
		email   string
		wantTag string
	}{
		{name: "too short", pwd: "Sh0rt!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Has Space1!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcdefgh1", wantTag: pwdComplexityTag},
		{name: "no upper", pwd: "abcdefg1!", wantTag: pwdComplexityTag},
		{name: "similar to name", pwd: "JonathanSmith1!", usrName: "Jonathan Smith", wantTag: pwdAttrSimTag},
		{name: "similar to email", pwd: "J.smith@mail.io1", email: "j.smith@mail.io", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd1", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Tr0ub4dor&3xyz", usrName: "Alice", uname: "alice", email: "alice@school.edu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, passwordPolicyViolation(tt.pwd, tt.usrName, tt.uname, tt.email))
		})
	}
}

func TestNewUserValidation(t *testing.T) {
	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name       string
		nu         NewUser
		wantFields []string
	}{
		{
			name:       "username or email",
			nu:         NewUser{Name: "Alice", Password: "Tr0ub4dor&3xyz", PasswordConfirm: "Tr0ub4dor&3xyz"},
			wantFields: []string{"username", "email"},
		},
		{
			name: "password mismatch",
			nu: NewUser{
				Name: "Alice", Username: "alice", Password: "Tr0ub4dor&3xyz", PasswordConfirm: "Tr0ub4dor&3xy",
			},
			wantFields: []string{"password_confirm"},
		},
		{
			name: "invalid roles",
			nu: NewUser{
				Name: "Alice", Username: "alice", Password: "Tr0ub4dor&3xyz", PasswordConfirm: "Tr0ub4dor&3xyz",
				Roles: []string{RoleTeacher, "student:"},
			},
			wantFields: []string{"roles"},
		},
		{
			name:       "weak password",
			nu:         NewUser{Name: "Alice", Email: "alice@school.edu", Password: "password", PasswordConfirm: "password"},
			wantFields: []string{"password"},
		},
		{
			name: "valid",
			nu: NewUser{
				Name: "Alice", Email: "alice@school.edu", Password: "Tr0ub4dor&3xyz", PasswordConfirm: "Tr0ub4dor&3xyz",
				Roles: []string{RoleAdmin, RoleTeacher},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.nu)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 0, MaxRolePriority(nil))
	assert.Equal(t, 15, MaxRolePriority([]string{RoleTeacherAssistant, RoleTeacher}))
	assert.Equal(t, 30, MaxRolePriority(AllRoles))
}
