package mailing

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/transfer"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeMailer struct {
	err  error
	sent []*core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		_ = m.Send(msg)
	}
}

func (m *fakeMailer) Send(msg *core.EmailMessage) error {
	if err := msg.Render(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeExporter struct {
	opts []transfer.ExportOptions
}

func (e *fakeExporter) Import(context.Context, transfer.ClassroomData) (transfer.ImportResult, error) {
	return transfer.ImportResult{}, nil
}

func (e *fakeExporter) Export(_ context.Context, opts transfer.ExportOptions) (transfer.Export, error) {
	e.opts = append(e.opts, opts)
	return transfer.Export{
		GeneratedAt: time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC),
		Students:    []classroom.Student{{ID: "s1", ExternalID: "1", FirstName: "Ada"}},
		BehaviorEvents: []activity.BehaviorEvent{
			{ID: "b1", StudentID: "s1", Type: "Talking", Timestamp: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)},
		},
	}, nil
}

type memRepo struct {
	schedules map[string]EmailSchedule
	pending   map[string]PendingEmail
}

func newMemRepo() *memRepo {
	return &memRepo{schedules: make(map[string]EmailSchedule), pending: make(map[string]PendingEmail)}
}

func (r *memRepo) CreateSchedule(_ context.Context, s EmailSchedule, _ ...core.DBExecutor) (EmailSchedule, error) {
	r.schedules[s.ID] = s
	return s, nil
}

func (r *memRepo) QuerySchedules(context.Context, ...core.DBExecutor) ([]EmailSchedule, error) {
	res := make([]EmailSchedule, 0, len(r.schedules))
	for _, s := range r.schedules {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *memRepo) GetSchedule(_ context.Context, id string, _ ...core.DBExecutor) (EmailSchedule, error) {
	s, ok := r.schedules[id]
	if !ok {
		return EmailSchedule{}, ErrScheduleNotFound
	}
	return s, nil
}

func (r *memRepo) UpdateSchedule(_ context.Context, s EmailSchedule, _ ...core.DBExecutor) (EmailSchedule, error) {
	r.schedules[s.ID] = s
	return s, nil
}

func (r *memRepo) DeleteSchedule(_ context.Context, id string, _ ...core.DBExecutor) error {
	if _, ok := r.schedules[id]; !ok {
		return ErrScheduleNotFound
	}
	delete(r.schedules, id)
	return nil
}

func (r *memRepo) CreatePendingEmail(_ context.Context, p PendingEmail, _ ...core.DBExecutor) (PendingEmail, error) {
	r.pending[p.ID] = p
	return p, nil
}

func (r *memRepo) QueryPendingEmails(context.Context, ...core.DBExecutor) ([]PendingEmail, error) {
	res := make([]PendingEmail, 0, len(r.pending))
	for _, p := range r.pending {
		res = append(res, p)
	}
	return res, nil
}

func (r *memRepo) UpdatePendingEmail(_ context.Context, p PendingEmail, _ ...core.DBExecutor) (PendingEmail, error) {
	r.pending[p.ID] = p
	return p, nil
}

func (r *memRepo) DeletePendingEmail(_ context.Context, id string, _ ...core.DBExecutor) error {
	delete(r.pending, id)
	return nil
}

func TestDue(t *testing.T) {
	// Monday
	now := time.Date(2024, 3, 4, 8, 30, 45, 0, time.UTC)
	schedules := []EmailSchedule{
		{ID: "due", Hour: 8, Minute: 30, Days: []string{"Mon", "Wed"}, Enabled: true},
		{ID: "disabled", Hour: 8, Minute: 30, Days: []string{"Mon"}},
		{ID: "other day", Hour: 8, Minute: 30, Days: []string{"Tue"}, Enabled: true},
		{ID: "other minute", Hour: 8, Minute: 31, Days: []string{"Mon"}, Enabled: true},
		{ID: "other hour", Hour: 9, Minute: 30, Days: []string{"Mon"}, Enabled: true},
		{ID: "case insensitive", Hour: 8, Minute: 30, Days: []string{"mon"}, Enabled: true},
	}

	due := Due(schedules, now)
	ids := make([]string, 0, len(due))
	for _, s := range due {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"due", "case insensitive"}, ids)
}

func TestCleanDays(t *testing.T) {
	assert.Equal(t, []string{"Mon", "Tue"}, cleanDays([]string{" monday", "TUE", "Mon"}))
}

func newTestService(mailer *fakeMailer) (*service, *memRepo, *fakeExporter) {
	repo := newMemRepo()
	exporter := new(fakeExporter)
	svc := NewService(repo, exporter, mailer, nopLogger{}).(*service)
	return svc, repo, exporter
}

func TestSendNow(t *testing.T) {
	ctx := context.Background()
	sched := EmailSchedule{ID: "s1", RecipientEmail: "head@school.edu", Body: "Weekly numbers", Enabled: true}

	t.Run("sent", func(t *testing.T) {
		mailer := new(fakeMailer)
		svc, repo, exporter := newTestService(mailer)

		sent, err := svc.SendNow(ctx, sched)
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Empty(t, repo.pending)

		require.Len(t, mailer.sent, 1)
		msg := mailer.sent[0]
		assert.Equal(t, "Daily Report - 2024-03-04", msg.Subject)
		assert.Equal(t, "head@school.edu", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "Weekly numbers")
		assert.Contains(t, msg.TextContent, "Behavior events: 1")
		require.Len(t, msg.Attachments, 1)
		assert.Equal(t, reportAttachmentName, msg.Attachments[0].Filename)

		require.Len(t, exporter.opts, 1)
		assert.Equal(t, transfer.RangePast24Hours, exporter.opts[0].RelativeRange)
	})

	t.Run("stored when delivery fails", func(t *testing.T) {
		mailer := &fakeMailer{err: errors.New("smtp down")}
		svc, repo, _ := newTestService(mailer)

		s := sched
		s.Subject = "Numbers"
		s.ExportRange = transfer.RangePast7Days
		sent, err := svc.SendNow(ctx, s)
		require.NoError(t, err)
		assert.False(t, sent)

		require.Len(t, repo.pending, 1)
		for _, p := range repo.pending {
			assert.Equal(t, "head@school.edu", p.RecipientEmail)
			assert.Equal(t, "Numbers", p.Subject)
			assert.Equal(t, 1, p.Attempts)
			assert.Equal(t, "smtp down", p.LastError)
			assert.Equal(t, reportAttachmentName, p.AttachmentName)

			var data transfer.ClassroomData
			require.NoError(t, json.Unmarshal(p.AttachmentContent, &data))
			assert.Contains(t, data.Students, "1")
			assert.Len(t, data.BehaviorLog, 1)
		}
	})
}

func TestSendDue(t *testing.T) {
	ctx := context.Background()
	mailer := new(fakeMailer)
	svc, repo, _ := newTestService(mailer)

	now := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	repo.schedules["a"] = EmailSchedule{ID: "a", Hour: 8, Minute: 30, Days: []string{"Mon"}, RecipientEmail: "a@school.edu", Enabled: true}
	repo.schedules["b"] = EmailSchedule{ID: "b", Hour: 9, Minute: 0, Days: []string{"Mon"}, RecipientEmail: "b@school.edu", Enabled: true}

	n, err := svc.SendDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// same minute: already sent
	n, err = svc.SendDue(ctx, now.Add(20*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, mailer.sent, 1)

	// next week
	n, err = svc.SendDue(ctx, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessPending_SkipsEmailsQueuedSinceLastRun(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc, repo, _ := newTestService(mailer)

	now := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	repo.schedules["a"] = EmailSchedule{ID: "a", Hour: 8, Minute: 30, Days: []string{"Mon"}, RecipientEmail: "a@school.edu", Enabled: true}
	repo.pending["old"] = PendingEmail{ID: "old", RecipientEmail: "b@school.edu", Subject: "Old", Body: "Report", Attempts: 1}

	_, err := svc.SendDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, repo.pending, 2)

	var queued string
	for id := range repo.pending {
		if id != "old" {
			queued = id
		}
	}

	tests := []struct {
		name         string
		want         ProcessResult
		wantAttempts map[string]int
	}{
		{
			name:         "same tick",
			want:         ProcessResult{Failed: 1, Deferred: 1},
			wantAttempts: map[string]int{"old": 2, queued: 1},
		},
		{
			name:         "next tick",
			want:         ProcessResult{Failed: 2},
			wantAttempts: map[string]int{"old": 3, queued: 2},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.ProcessPending(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res)
			for id, attempts := range tc.wantAttempts {
				assert.Equal(t, attempts, repo.pending[id].Attempts, id)
			}
		})
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{err: errors.New("still down")}
	svc, repo, _ := newTestService(mailer)

	repo.pending["p1"] = PendingEmail{
		ID:                "p1",
		RecipientEmail:    "head@school.edu",
		Subject:           "Daily Report - 2024-03-04",
		Body:              "Report",
		AttachmentName:    reportAttachmentName,
		AttachmentContent: []byte(`{"students":{}}`),
		Attempts:          1,
	}

	res, err := svc.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, ProcessResult{Failed: 1}, res)
	assert.Equal(t, 2, repo.pending["p1"].Attempts)
	assert.Equal(t, "still down", repo.pending["p1"].LastError)

	mailer.err = nil
	res, err = svc.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, ProcessResult{Sent: 1}, res)
	assert.Empty(t, repo.pending)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "Report", msg.TextContent)
	require.Len(t, msg.Attachments, 1)
	name, content := attachmentContent(msg)
	assert.Equal(t, reportAttachmentName, name)
	assert.JSONEq(t, `{"students":{}}`, string(content))
}

func TestScheduleUpdate(t *testing.T) {
	hour, subject, enabled := 7, "Morning", false
	s := EmailSchedule{Hour: 8, Minute: 15, Days: []string{"Mon"}, Subject: "Daily", Enabled: true}
	UpdateSchedule{Hour: &hour, Subject: &subject, Enabled: &enabled, Days: []string{"Fri"}}.apply(&s)
	assert.Equal(t, EmailSchedule{Hour: 7, Minute: 15, Days: []string{"Fri"}, Subject: "Morning"}, s)
}
