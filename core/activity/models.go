package activity

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/classroom"
)

type (
	BehaviorEvent struct {
		ID        string    `json:"id"`
		StudentID string    `json:"student_id"`
		Type      string    `json:"type"`
		Timestamp time.Time `json:"timestamp"` // UTC
		Comment   string    `json:"comment,omitempty"`
	}

	HomeworkLog struct {
		ID             string            `json:"id"`
		StudentID      string            `json:"student_id"`
		AssignmentName string            `json:"assignment_name"`
		Status         string            `json:"status"`
		LoggedAt       time.Time         `json:"logged_at"` // UTC
		Comment        string            `json:"comment,omitempty"`
		MarksData      map[string]string `json:"marks_data,omitempty"`
	}

	QuizLog struct {
		ID           string         `json:"id"`
		StudentID    string         `json:"student_id"`
		QuizName     string         `json:"quiz_name"`
		LoggedAt     time.Time      `json:"logged_at"`            // UTC
		MarksData    map[string]int `json:"marks_data,omitempty"` // mark type -> count
		NumQuestions int            `json:"num_questions"`
		MarkValue    *float64       `json:"mark_value,omitempty"`
		MaxMarkValue *float64       `json:"max_mark_value,omitempty"`
		Comment      string         `json:"comment,omitempty"`
	}
)

// ScoreRatio is MarkValue / MaxMarkValue; ok is false when the quiz has no usable score.
func (q QuizLog) ScoreRatio() (ratio float64, ok bool) {
	if q.MarkValue == nil || q.MaxMarkValue == nil || *q.MaxMarkValue <= 0 {
		return 0, false
	}
	return *q.MarkValue / *q.MaxMarkValue, true
}

// StudentGetter finds the student a log entry belongs to.
type StudentGetter interface {
	GetStudent(ctx context.Context, id string) (classroom.Student, error)
}

func checkStudentExists(ctx context.Context, students StudentGetter, id string) error {
	if _, err := students.GetStudent(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding student")
	}
	return nil
}

// NewBehaviorEvent contains information needed to log a behaviour. Timestamp defaults to now.
type NewBehaviorEvent struct {
	StudentID string    `json:"student_id" validate:"required"`
	Type      string    `json:"type" validate:"required,max=100"`
	Timestamp time.Time `json:"timestamp"`
	Comment   string    `json:"comment" validate:"max=1000"`
}

func (nb *NewBehaviorEvent) Validate(ctx context.Context, validate *validator.Validate, students StudentGetter) error {
	nb.StudentID = core.CleanString(nb.StudentID)
	nb.Type = core.CleanString(nb.Type)
	nb.Comment = core.CleanString(nb.Comment)
	if err := validate.Struct(nb); err != nil {
		return err
	}
	return checkStudentExists(ctx, students, nb.StudentID)
}

type NewHomeworkLog struct {
	StudentID      string            `json:"student_id" validate:"required"`
	AssignmentName string            `json:"assignment_name" validate:"required,max=200"`
	Status         string            `json:"status" validate:"required,max=50"`
	LoggedAt       time.Time         `json:"logged_at"`
	Comment        string            `json:"comment" validate:"max=1000"`
	MarksData      map[string]string `json:"marks_data"`
}

func (nh *NewHomeworkLog) Validate(ctx context.Context, validate *validator.Validate, students StudentGetter) error {
	nh.StudentID = core.CleanString(nh.StudentID)
	nh.AssignmentName = core.CleanString(nh.AssignmentName)
	nh.Status = core.CleanString(nh.Status)
	nh.Comment = core.CleanString(nh.Comment)
	if err := validate.Struct(nh); err != nil {
		return err
	}
	return checkStudentExists(ctx, students, nh.StudentID)
}

type NewQuizLog struct {
	StudentID    string         `json:"student_id" validate:"required"`
	QuizName     string         `json:"quiz_name" validate:"required,max=200"`
	LoggedAt     time.Time      `json:"logged_at"`
	MarksData    map[string]int `json:"marks_data" validate:"dive,min=0"`
	NumQuestions int            `json:"num_questions" validate:"min=0"`
	MarkValue    *float64       `json:"mark_value" validate:"omitempty,min=0"`
	MaxMarkValue *float64       `json:"max_mark_value" validate:"omitempty,gt=0"`
	Comment      string         `json:"comment" validate:"max=1000"`
}

func (nq *NewQuizLog) Validate(ctx context.Context, validate *validator.Validate, students StudentGetter) error {
	nq.StudentID = core.CleanString(nq.StudentID)
	nq.QuizName = core.CleanString(nq.QuizName)
	nq.Comment = core.CleanString(nq.Comment)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	return checkStudentExists(ctx, students, nq.StudentID)
}

// QueryFilter narrows log queries. Search matches the behaviour type, assignment or quiz name.
type QueryFilter struct {
	StudentIDs []string  `query:"student"`
	Search     string    `query:"search"`
	From       time.Time `query:"from"`
	To         time.Time `query:"to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentIDs == nil && qf.Search == "" && qf.From.IsZero() && qf.To.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// StudentSummary gathers what the analysis engines need to know about one student.
type StudentSummary struct {
	BehaviorTimes    []time.Time
	BehaviorTypes    []string
	QuizRatios       []float64
	HomeworkStatuses []string
}
