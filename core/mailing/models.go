package mailing

import (
	"bytes"
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/seatplan/core"
)

// Weekdays are the day names a schedule may run on, indexed by time.Weekday.
var Weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type (
	// EmailSchedule sends a report to RecipientEmail on the listed days, at Hour:Minute local time.
	EmailSchedule struct {
		ID             string    `json:"id"`
		Hour           int       `json:"hour"`
		Minute         int       `json:"minute"`
		Days           []string  `json:"days"`
		RecipientEmail string    `json:"recipient_email"`
		Subject        string    `json:"subject"`
		Body           string    `json:"body"`
		ExportRange    string    `json:"export_range,omitempty"`
		Enabled        bool      `json:"enabled"`
		CreatedAt      time.Time `json:"created_at"` // UTC
		UpdatedAt      time.Time `json:"updated_at"` // UTC
	}

	// PendingEmail is a report whose delivery failed, kept for a later retry.
	PendingEmail struct {
		ID                string    `json:"id"`
		RecipientEmail    string    `json:"recipient_email"`
		Subject           string    `json:"subject"`
		Body              string    `json:"body"`
		AttachmentName    string    `json:"attachment_name,omitempty"`
		AttachmentContent []byte    `json:"-"`
		Attempts          int       `json:"attempts"`
		LastError         string    `json:"last_error,omitempty"`
		CreatedAt         time.Time `json:"created_at"` // UTC
	}
)

func (s EmailSchedule) runsOn(day time.Weekday) bool {
	name := Weekdays[day]
	for _, d := range s.Days {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// IsDue reports whether s must run at now's minute.
func (s EmailSchedule) IsDue(now time.Time) bool {
	return s.Enabled && s.runsOn(now.Weekday()) && s.Hour == now.Hour() && s.Minute == now.Minute()
}

// Due returns the schedules to run at now's minute.
func Due(schedules []EmailSchedule, now time.Time) []EmailSchedule {
	due := make([]EmailSchedule, 0)
	for _, s := range schedules {
		if s.IsDue(now) {
			due = append(due, s)
		}
	}
	return due
}

func (p PendingEmail) message() (*core.EmailMessage, error) {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: p.RecipientEmail}},
		Subject: p.Subject,
		BodyStr: p.Body,
	}
	if p.AttachmentName != "" {
		if err := msg.Attach(bytes.NewReader(p.AttachmentContent), p.AttachmentName, "application/json"); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// attachmentContent decodes the first attachment of msg.
func attachmentContent(msg *core.EmailMessage) (name string, content []byte) {
	if !msg.HasAttachments() {
		return "", nil
	}
	at := msg.Attachments[0]
	content, err := base64.StdEncoding.DecodeString(at.Content.String())
	if err != nil {
		return "", nil
	}
	return at.Filename, content
}

func cleanDays(days []string) []string {
	cleaned := make([]string, 0, len(days))
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		d = core.CleanString(d)
		if len(d) >= 3 {
			d = strings.ToUpper(d[:1]) + strings.ToLower(d[1:3])
		}
		if !seen[d] {
			seen[d] = true
			cleaned = append(cleaned, d)
		}
	}
	return cleaned
}

// NewSchedule contains information needed to create a new EmailSchedule.
type NewSchedule struct {
	Hour           *int     `json:"hour" validate:"required,min=0,max=23"`
	Minute         *int     `json:"minute" validate:"required,min=0,max=59"`
	Days           []string `json:"days" validate:"required,min=1,dive,weekday"`
	RecipientEmail string   `json:"recipient_email" validate:"required,email"`
	Subject        string   `json:"subject" validate:"max=200"`
	Body           string   `json:"body" validate:"max=5000"`
	ExportRange    string   `json:"export_range" validate:"omitempty,exportrange"`
	Enabled        *bool    `json:"enabled"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Days = cleanDays(ns.Days)
	ns.RecipientEmail = core.CleanString(ns.RecipientEmail, true)
	ns.Subject = core.CleanString(ns.Subject)
	ns.ExportRange = core.CleanString(ns.ExportRange)
	return validate.Struct(ns)
}

// UpdateSchedule defines what information may be provided to modify an existing EmailSchedule.
type UpdateSchedule struct {
	Hour           *int     `json:"hour" validate:"omitempty,min=0,max=23"`
	Minute         *int     `json:"minute" validate:"omitempty,min=0,max=59"`
	Days           []string `json:"days" validate:"omitempty,min=1,dive,weekday"`
	RecipientEmail *string  `json:"recipient_email" validate:"omitempty,email"`
	Subject        *string  `json:"subject" validate:"omitempty,max=200"`
	Body           *string  `json:"body" validate:"omitempty,max=5000"`
	ExportRange    *string  `json:"export_range" validate:"omitempty,exportrange|len=0"`
	Enabled        *bool    `json:"enabled"`
}

func (us *UpdateSchedule) Validate(validate *validator.Validate) error {
	if us.Days != nil {
		us.Days = cleanDays(us.Days)
	}
	if us.RecipientEmail != nil {
		*us.RecipientEmail = core.CleanString(*us.RecipientEmail, true)
	}
	if us.ExportRange != nil {
		*us.ExportRange = core.CleanString(*us.ExportRange)
	}
	return validate.Struct(us)
}

func (us UpdateSchedule) apply(s *EmailSchedule) {
	if us.Hour != nil {
		s.Hour = *us.Hour
	}
	if us.Minute != nil {
		s.Minute = *us.Minute
	}
	if us.Days != nil {
		s.Days = us.Days
	}
	if us.RecipientEmail != nil {
		s.RecipientEmail = *us.RecipientEmail
	}
	if us.Subject != nil {
		s.Subject = *us.Subject
	}
	if us.Body != nil {
		s.Body = *us.Body
	}
	if us.ExportRange != nil {
		s.ExportRange = *us.ExportRange
	}
	if us.Enabled != nil {
		s.Enabled = *us.Enabled
	}
}

// ProcessResult counts the outcome of a pending emails run.
type ProcessResult struct {
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Deferred int `json:"deferred,omitempty"` // queued during this tick, retried on the next one
}
