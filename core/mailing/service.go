package mailing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/transfer"
)

const (
	reportTemplate       = "daily_report"
	reportAttachmentName = "daily_report.json"
	defaultExportRange   = transfer.RangePast24Hours
)

var (
	// errors
	ErrScheduleNotFound     = core.NewNotFoundError("email schedule not found")
	ErrPendingEmailNotFound = core.NewNotFoundError("pending email not found")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, s EmailSchedule, exec ...core.DBExecutor) (EmailSchedule, error)
		QuerySchedules(ctx context.Context, exec ...core.DBExecutor) ([]EmailSchedule, error)
		GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (EmailSchedule, error)
		UpdateSchedule(ctx context.Context, s EmailSchedule, exec ...core.DBExecutor) (EmailSchedule, error)
		DeleteSchedule(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreatePendingEmail(ctx context.Context, p PendingEmail, exec ...core.DBExecutor) (PendingEmail, error)
		QueryPendingEmails(ctx context.Context, exec ...core.DBExecutor) ([]PendingEmail, error)
		UpdatePendingEmail(ctx context.Context, p PendingEmail, exec ...core.DBExecutor) (PendingEmail, error)
		DeletePendingEmail(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		CreateSchedule(ctx context.Context, ns NewSchedule) (EmailSchedule, error)
		QuerySchedules(ctx context.Context) ([]EmailSchedule, error)
		GetSchedule(ctx context.Context, id string) (EmailSchedule, error)
		UpdateSchedule(ctx context.Context, s EmailSchedule, us UpdateSchedule) (EmailSchedule, error)
		DeleteSchedule(ctx context.Context, id string) error

		// SendNow sends the report of s. When delivery fails the report is stored as a pending
		// email and sent is false; err is only set when the report could not be built or stored.
		SendNow(ctx context.Context, s EmailSchedule) (sent bool, err error)
		// SendDue sends the reports due at now, at most once per schedule and minute.
		SendDue(ctx context.Context, now time.Time) (int, error)

		QueryPending(ctx context.Context) ([]PendingEmail, error)
		// ProcessPending retries the pending emails, deleting those that went through.
		// Emails queued since the previous run are left for the next one.
		ProcessPending(ctx context.Context) (ProcessResult, error)
	}

	service struct {
		repo        Repository
		transferSvc transfer.Service
		mailSvc     core.EmailService
		logger      core.Logger

		mu      sync.Mutex
		lastRun map[string]string   // {schedule id: minute key}
		fresh   map[string]struct{} // pending emails queued since the last ProcessPending
	}

	reportData struct {
		Body           string
		Date           string
		Students       int
		BehaviorEvents int
		HomeworkLogs   int
		QuizLogs       int
		AttachmentName string
	}
)

func NewService(repo Repository, transferSvc transfer.Service, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:        repo,
		transferSvc: transferSvc,
		mailSvc:     mailSvc,
		logger:      logger,
		lastRun:     make(map[string]string),
		fresh:       make(map[string]struct{}),
	}
}

func (svc *service) CreateSchedule(ctx context.Context, ns NewSchedule) (EmailSchedule, error) {
	now := core.Now()
	s := EmailSchedule{
		ID:             uuid.NewString(),
		Days:           ns.Days,
		RecipientEmail: ns.RecipientEmail,
		Subject:        ns.Subject,
		Body:           ns.Body,
		ExportRange:    ns.ExportRange,
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if ns.Hour != nil {
		s.Hour = *ns.Hour
	}
	if ns.Minute != nil {
		s.Minute = *ns.Minute
	}
	if ns.Enabled != nil {
		s.Enabled = *ns.Enabled
	}
	return svc.repo.CreateSchedule(ctx, s)
}

func (svc *service) QuerySchedules(ctx context.Context) ([]EmailSchedule, error) {
	return svc.repo.QuerySchedules(ctx)
}

func (svc *service) GetSchedule(ctx context.Context, id string) (EmailSchedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

func (svc *service) UpdateSchedule(ctx context.Context, s EmailSchedule, us UpdateSchedule) (EmailSchedule, error) {
	us.apply(&s)
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateSchedule(ctx, s)
}

func (svc *service) DeleteSchedule(ctx context.Context, id string) error {
	svc.mu.Lock()
	delete(svc.lastRun, id)
	svc.mu.Unlock()
	return svc.repo.DeleteSchedule(ctx, id)
}

// reportMessage exports the classroom data over the schedule's range and attaches it to a report email.
func (svc *service) reportMessage(ctx context.Context, s EmailSchedule) (*core.EmailMessage, error) {
	exportRange := s.ExportRange
	if exportRange == "" {
		exportRange = defaultExportRange
	}
	exp, err := svc.transferSvc.Export(ctx, transfer.ExportOptions{RelativeRange: exportRange})
	if err != nil {
		return nil, errors.Wrap(err, "exporting data")
	}
	content, err := json.MarshalIndent(exp.ClassroomData(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding export")
	}

	date := exp.GeneratedAt.Format("2006-01-02")
	subject := s.Subject
	if subject == "" {
		subject = "Daily Report - " + date
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: s.RecipientEmail}},
		Subject:      subject,
		BodyStr:      s.Body,
		TemplateName: reportTemplate,
		TemplateData: reportData{
			Body:           s.Body,
			Date:           date,
			Students:       len(exp.Students),
			BehaviorEvents: len(exp.BehaviorEvents),
			HomeworkLogs:   len(exp.HomeworkLogs),
			QuizLogs:       len(exp.QuizLogs),
			AttachmentName: reportAttachmentName,
		},
	}
	if err := msg.Attach(bytes.NewReader(content), reportAttachmentName, "application/json"); err != nil {
		return nil, err
	}
	if err := msg.Render(); err != nil {
		return nil, errors.Wrap(err, "rendering report")
	}
	return msg, nil
}

func (svc *service) SendNow(ctx context.Context, s EmailSchedule) (bool, error) {
	msg, err := svc.reportMessage(ctx, s)
	if err != nil {
		return false, err
	}

	sendErr := svc.mailSvc.Send(msg)
	if sendErr == nil {
		return true, nil
	}
	svc.logger.Error(fmt.Sprintf("sending report to %s: %v", s.RecipientEmail, sendErr), sendErr)

	name, content := attachmentContent(msg)
	p, err := svc.repo.CreatePendingEmail(ctx, PendingEmail{
		ID:                uuid.NewString(),
		RecipientEmail:    s.RecipientEmail,
		Subject:           msg.Subject,
		Body:              msg.TextContent,
		AttachmentName:    name,
		AttachmentContent: content,
		Attempts:          1,
		LastError:         sendErr.Error(),
		CreatedAt:         core.Now(),
	})
	if err != nil {
		return false, errors.Wrap(err, "storing pending email")
	}

	svc.mu.Lock()
	svc.fresh[p.ID] = struct{}{}
	svc.mu.Unlock()
	return false, nil
}

func minuteKey(t time.Time) string { return t.Format("200601021504") }

// claim marks s as run for now's minute; false if it already ran.
func (svc *service) claim(s EmailSchedule, now time.Time) bool {
	key := minuteKey(now)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.lastRun[s.ID] == key {
		return false
	}
	svc.lastRun[s.ID] = key
	return true
}

func (svc *service) SendDue(ctx context.Context, now time.Time) (int, error) {
	schedules, err := svc.repo.QuerySchedules(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying schedules")
	}

	var count int
	for _, s := range Due(schedules, now) {
		if !svc.claim(s, now) {
			continue
		}
		if _, err := svc.SendNow(ctx, s); err != nil {
			svc.logger.Error(fmt.Sprintf("sending scheduled report %s: %v", s.ID, err), err)
			continue
		}
		count++
	}
	return count, nil
}

func (svc *service) QueryPending(ctx context.Context) ([]PendingEmail, error) {
	return svc.repo.QueryPendingEmails(ctx)
}

func (svc *service) ProcessPending(ctx context.Context) (ProcessResult, error) {
	var res ProcessResult
	pending, err := svc.repo.QueryPendingEmails(ctx)
	if err != nil {
		return res, errors.Wrap(err, "querying pending emails")
	}

	svc.mu.Lock()
	fresh := svc.fresh
	svc.fresh = make(map[string]struct{})
	svc.mu.Unlock()

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, ok := fresh[p.ID]; ok {
			res.Deferred++
			continue
		}
		msg, err := p.message()
		if err != nil {
			return res, errors.Wrap(err, "building pending email")
		}

		if sendErr := svc.mailSvc.Send(msg); sendErr != nil {
			res.Failed++
			p.Attempts++
			p.LastError = sendErr.Error()
			if _, err := svc.repo.UpdatePendingEmail(ctx, p); err != nil {
				return res, errors.Wrap(err, "updating pending email")
			}
			continue
		}

		res.Sent++
		if err := svc.repo.DeletePendingEmail(ctx, p.ID); err != nil {
			return res, errors.Wrap(err, "deleting pending email")
		}
	}
	return res, nil
}
