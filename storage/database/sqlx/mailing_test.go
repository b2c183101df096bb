package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/mailing"
	"github.com/trezcool/seatplan/storage/database/sqlx"
	"github.com/trezcool/seatplan/tests"
)

func TestMailingRepository_Schedules(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewMailingRepository(testutil.PrepareDB(t))

	now := core.Now()
	newSchedule := func(hour, minute int, days ...string) mailing.EmailSchedule {
		s, err := repo.CreateSchedule(ctx, mailing.EmailSchedule{
			ID: uuid.NewString(), Hour: hour, Minute: minute, Days: days, RecipientEmail: "head@school.edu",
			Subject: "Report", ExportRange: "Past 7 days", Enabled: true, CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
		return s
	}
	evening := newSchedule(17, 30, "Mon", "Fri")
	morning := newSchedule(8, 0, "Tue")

	got, err := repo.QuerySchedules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []mailing.EmailSchedule{morning, evening}, got)

	evening.Enabled = false
	evening.Days = []string{"Sat"}
	_, err = repo.UpdateSchedule(ctx, evening)
	require.NoError(t, err)
	s, err := repo.GetSchedule(ctx, evening.ID)
	require.NoError(t, err)
	assert.Equal(t, evening, s)

	require.NoError(t, repo.DeleteSchedule(ctx, evening.ID))
	assert.Equal(t, mailing.ErrScheduleNotFound, repo.DeleteSchedule(ctx, evening.ID))
	_, err = repo.GetSchedule(ctx, evening.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestMailingRepository_PendingEmails(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewMailingRepository(testutil.PrepareDB(t))

	p, err := repo.CreatePendingEmail(ctx, mailing.PendingEmail{
		ID: uuid.NewString(), RecipientEmail: "head@school.edu", Subject: "Daily Report", Body: "See attached",
		AttachmentName: "daily_report.json", AttachmentContent: []byte(`{"students":{}}`),
		Attempts: 1, LastError: "connection refused", CreatedAt: core.Now(),
	})
	require.NoError(t, err)

	got, err := repo.QueryPendingEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []mailing.PendingEmail{p}, got)

	p.Attempts++
	p.LastError = "timeout"
	_, err = repo.UpdatePendingEmail(ctx, p)
	require.NoError(t, err)
	got, err = repo.QueryPendingEmails(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Attempts)
	assert.Equal(t, "timeout", got[0].LastError)

	require.NoError(t, repo.DeletePendingEmail(ctx, p.ID))
	assert.Equal(t, mailing.ErrPendingEmailNotFound, repo.DeletePendingEmail(ctx, p.ID))
}
