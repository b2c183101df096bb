package sqlxrepos

import (
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/mailing"
)

const (
	scheduleColumns = `id, hour, minute, days, recipient_email, subject, body, export_range, enabled, created_at, updated_at`
	pendingColumns  = `id, recipient_email, subject, body, attachment_name, attachment_content, attempts, last_error, created_at`
)

type (
	scheduleRow struct {
		ID             string `db:"id"`
		Hour           int    `db:"hour"`
		Minute         int    `db:"minute"`
		Days           string `db:"days"`
		RecipientEmail string `db:"recipient_email"`
		Subject        string `db:"subject"`
		Body           string `db:"body"`
		ExportRange    string `db:"export_range"`
		Enabled        bool   `db:"enabled"`
		CreatedAt      int64  `db:"created_at"`
		UpdatedAt      int64  `db:"updated_at"`
	}

	pendingRow struct {
		ID                string      `db:"id"`
		RecipientEmail    string      `db:"recipient_email"`
		Subject           string      `db:"subject"`
		Body              string      `db:"body"`
		AttachmentName    null.String `db:"attachment_name"`
		AttachmentContent null.String `db:"attachment_content"` // base64
		Attempts          int         `db:"attempts"`
		LastError         string      `db:"last_error"`
		CreatedAt         int64       `db:"created_at"`
	}
)

func newScheduleRow(s mailing.EmailSchedule) scheduleRow {
	return scheduleRow{
		ID:             s.ID,
		Hour:           s.Hour,
		Minute:         s.Minute,
		Days:           joinList(s.Days),
		RecipientEmail: s.RecipientEmail,
		Subject:        s.Subject,
		Body:           s.Body,
		ExportRange:    s.ExportRange,
		Enabled:        s.Enabled,
		CreatedAt:      toMillis(s.CreatedAt),
		UpdatedAt:      toMillis(s.UpdatedAt),
	}
}

func (r scheduleRow) schedule() mailing.EmailSchedule {
	return mailing.EmailSchedule{
		ID:             r.ID,
		Hour:           r.Hour,
		Minute:         r.Minute,
		Days:           splitList(r.Days),
		RecipientEmail: r.RecipientEmail,
		Subject:        r.Subject,
		Body:           r.Body,
		ExportRange:    r.ExportRange,
		Enabled:        r.Enabled,
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

func newPendingRow(p mailing.PendingEmail) pendingRow {
	r := pendingRow{
		ID:             p.ID,
		RecipientEmail: p.RecipientEmail,
		Subject:        p.Subject,
		Body:           p.Body,
		AttachmentName: nullString(p.AttachmentName),
		Attempts:       p.Attempts,
		LastError:      p.LastError,
		CreatedAt:      toMillis(p.CreatedAt),
	}
	if len(p.AttachmentContent) > 0 {
		r.AttachmentContent = null.StringFrom(base64.StdEncoding.EncodeToString(p.AttachmentContent))
	}
	return r
}

func (r pendingRow) pending() (mailing.PendingEmail, error) {
	p := mailing.PendingEmail{
		ID:             r.ID,
		RecipientEmail: r.RecipientEmail,
		Subject:        r.Subject,
		Body:           r.Body,
		AttachmentName: r.AttachmentName.String,
		Attempts:       r.Attempts,
		LastError:      r.LastError,
		CreatedAt:      fromMillis(r.CreatedAt),
	}
	if r.AttachmentContent.Valid {
		content, err := base64.StdEncoding.DecodeString(r.AttachmentContent.String)
		if err != nil {
			return mailing.PendingEmail{}, errors.Wrap(err, "decoding attachment")
		}
		p.AttachmentContent = content
	}
	return p, nil
}

type mailingRepository struct {
	repository
}

var _ mailing.Repository = (*mailingRepository)(nil) // interface compliance check

func NewMailingRepository(exec core.DBExecutor) *mailingRepository {
	return &mailingRepository{repository{exec: exec}}
}

func (repo mailingRepository) CreateSchedule(ctx context.Context, s mailing.EmailSchedule, exec ...core.DBExecutor) (mailing.EmailSchedule, error) {
	r := newScheduleRow(s)
	_, err := repo.exe(ctx, repo.getExec(exec),
		"INSERT INTO email_schedules ("+scheduleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Hour, r.Minute, r.Days, r.RecipientEmail, r.Subject, r.Body, r.ExportRange, r.Enabled,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return mailing.EmailSchedule{}, errors.Wrap(err, "inserting email schedule")
	}
	return r.schedule(), nil
}

func (repo mailingRepository) QuerySchedules(ctx context.Context, exec ...core.DBExecutor) ([]mailing.EmailSchedule, error) {
	var rows []scheduleRow
	q := "SELECT " + scheduleColumns + " FROM email_schedules ORDER BY hour ASC, minute ASC, created_at ASC"
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying email schedules")
	}
	schedules := make([]mailing.EmailSchedule, 0, len(rows))
	for _, r := range rows {
		schedules = append(schedules, r.schedule())
	}
	return schedules, nil
}

func (repo mailingRepository) GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (mailing.EmailSchedule, error) {
	var r scheduleRow
	if err := repo.get(ctx, repo.getExec(exec), &r, "SELECT "+scheduleColumns+" FROM email_schedules WHERE id = ?", id); err != nil {
		return mailing.EmailSchedule{}, trapNoRowsErr(err, mailing.ErrScheduleNotFound, "finding email schedule")
	}
	return r.schedule(), nil
}

func (repo mailingRepository) UpdateSchedule(ctx context.Context, s mailing.EmailSchedule, exec ...core.DBExecutor) (mailing.EmailSchedule, error) {
	r := newScheduleRow(s)
	n, err := repo.exe(ctx, repo.getExec(exec),
		`UPDATE email_schedules SET hour = ?, minute = ?, days = ?, recipient_email = ?, subject = ?, body = ?,
			export_range = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		r.Hour, r.Minute, r.Days, r.RecipientEmail, r.Subject, r.Body, r.ExportRange, r.Enabled, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return mailing.EmailSchedule{}, errors.Wrap(err, "updating email schedule")
	}
	if n == 0 {
		return mailing.EmailSchedule{}, mailing.ErrScheduleNotFound
	}
	return r.schedule(), nil
}

func (repo mailingRepository) DeleteSchedule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := repo.deleteIn(ctx, repo.getExec(exec), "email_schedules", []string{id})
	if err != nil {
		return errors.Wrap(err, "deleting email schedule")
	}
	if n == 0 {
		return mailing.ErrScheduleNotFound
	}
	return nil
}

func (repo mailingRepository) CreatePendingEmail(ctx context.Context, p mailing.PendingEmail, exec ...core.DBExecutor) (mailing.PendingEmail, error) {
	r := newPendingRow(p)
	_, err := repo.exe(ctx, repo.getExec(exec),
		"INSERT INTO pending_emails ("+pendingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.RecipientEmail, r.Subject, r.Body, r.AttachmentName, r.AttachmentContent, r.Attempts, r.LastError,
		r.CreatedAt,
	)
	if err != nil {
		return mailing.PendingEmail{}, errors.Wrap(err, "inserting pending email")
	}
	return p, nil
}

func (repo mailingRepository) QueryPendingEmails(ctx context.Context, exec ...core.DBExecutor) ([]mailing.PendingEmail, error) {
	var rows []pendingRow
	q := "SELECT " + pendingColumns + " FROM pending_emails ORDER BY created_at ASC, id ASC"
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying pending emails")
	}
	emails := make([]mailing.PendingEmail, 0, len(rows))
	for _, r := range rows {
		p, err := r.pending()
		if err != nil {
			return nil, err
		}
		emails = append(emails, p)
	}
	return emails, nil
}

func (repo mailingRepository) UpdatePendingEmail(ctx context.Context, p mailing.PendingEmail, exec ...core.DBExecutor) (mailing.PendingEmail, error) {
	n, err := repo.exe(ctx, repo.getExec(exec),
		"UPDATE pending_emails SET attempts = ?, last_error = ? WHERE id = ?",
		p.Attempts, p.LastError, p.ID,
	)
	if err != nil {
		return mailing.PendingEmail{}, errors.Wrap(err, "updating pending email")
	}
	if n == 0 {
		return mailing.PendingEmail{}, mailing.ErrPendingEmailNotFound
	}
	return p, nil
}

func (repo mailingRepository) DeletePendingEmail(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := repo.deleteIn(ctx, repo.getExec(exec), "pending_emails", []string{id})
	if err != nil {
		return errors.Wrap(err, "deleting pending email")
	}
	if n == 0 {
		return mailing.ErrPendingEmailNotFound
	}
	return nil
}
