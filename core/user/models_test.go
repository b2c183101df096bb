package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_CanAssignRoles(t *testing.T) {
	owner := User{Roles: []string{RoleAdminOwner}}
	admin := User{Roles: []string{RoleAdmin}}
	teacher := User{Roles: []string{RoleTeacher}}
	assistant := User{Roles: []string{RoleTeacherAssistant}}

	tests := []struct {
		name  string
		usr   User
		roles []string
		want  bool
	}{
		{name: "owner grants owner", usr: owner, roles: []string{RoleAdminOwner}, want: true},
		{name: "admin grants teacher", usr: admin, roles: []string{RoleTeacher, RoleTeacherAssistant}, want: true},
		{name: "admin cannot grant owner", usr: admin, roles: []string{RoleAdminOwner}},
		{name: "teacher grants assistant", usr: teacher, roles: []string{RoleTeacherAssistant}, want: true},
		{name: "teacher grants nothing", usr: teacher, want: true},
		{name: "teacher cannot grant teacher", usr: teacher, roles: []string{RoleTeacher}},
		{name: "teacher cannot grant admin", usr: teacher, roles: []string{RoleTeacherAssistant, RoleAdmin}},
		{name: "assistant cannot grant assistant", usr: assistant, roles: []string{RoleTeacherAssistant}},
		{name: "no role", usr: User{}, roles: []string{RoleTeacherAssistant}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.usr.CanAssignRoles(tt.roles))
		})
	}
}

func TestUser_IsLeadTeacher(t *testing.T) {
	assert.True(t, (&User{Roles: []string{RoleTeacher}}).IsLeadTeacher())
	assert.True(t, (&User{Roles: []string{RoleTeacherAssistant, RoleTeacher}}).IsLeadTeacher())
	assert.False(t, (&User{Roles: []string{RoleTeacherAssistant}}).IsLeadTeacher())
	assert.False(t, (&User{Roles: []string{RoleAdmin}}).IsLeadTeacher())
}
