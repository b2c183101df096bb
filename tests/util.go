package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/user"
	"github.com/trezcool/seatplan/storage/database"
)

// PrepareDB opens a migrated in-memory database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Millisecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateGroup(t *testing.T, repo classroom.Repository, name, color string) classroom.StudentGroup {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	g, err := repo.CreateGroup(context.Background(), classroom.StudentGroup{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return g
}

func CreateStudent(t *testing.T, repo classroom.Repository, firstName, lastName string, x, y float64, groupID string) classroom.Student {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s, err := repo.CreateStudent(context.Background(), classroom.Student{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  lastName,
		Initials:  classroom.Initials(firstName, lastName),
		X:         x,
		Y:         y,
		GroupID:   groupID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
