package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
)

const (
	behaviorColumns = "id, student_id, type, occurred_at, comment"
	homeworkColumns = "id, student_id, assignment_name, status, logged_at, comment, marks_data"
	quizColumns     = "id, student_id, quiz_name, logged_at, marks_data, num_questions, mark_value, max_mark_value, comment"
)

var (
	behaviorOrderings = map[string]string{"timestamp": "occurred_at", "type": "type", "student_id": "student_id"}
	homeworkOrderings = map[string]string{"timestamp": "logged_at", "logged_at": "logged_at", "assignment_name": "assignment_name", "status": "status"}
	quizOrderings     = map[string]string{"timestamp": "logged_at", "logged_at": "logged_at", "quiz_name": "quiz_name"}
)

type (
	behaviorRow struct {
		ID         string `db:"id"`
		StudentID  string `db:"student_id"`
		Type       string `db:"type"`
		OccurredAt int64  `db:"occurred_at"`
		Comment    string `db:"comment"`
	}

	homeworkRow struct {
		ID             string      `db:"id"`
		StudentID      string      `db:"student_id"`
		AssignmentName string      `db:"assignment_name"`
		Status         string      `db:"status"`
		LoggedAt       int64       `db:"logged_at"`
		Comment        string      `db:"comment"`
		MarksData      null.String `db:"marks_data"`
	}

	quizRow struct {
		ID           string       `db:"id"`
		StudentID    string       `db:"student_id"`
		QuizName     string       `db:"quiz_name"`
		LoggedAt     int64        `db:"logged_at"`
		MarksData    null.String  `db:"marks_data"`
		NumQuestions int          `db:"num_questions"`
		MarkValue    null.Float64 `db:"mark_value"`
		MaxMarkValue null.Float64 `db:"max_mark_value"`
		Comment      string       `db:"comment"`
	}
)

// marshalMarks stores marks as a JSON object, or NULL when there are none.
func marshalMarks(marks interface{}, empty bool) (null.String, error) {
	if empty {
		return null.String{}, nil
	}
	b, err := json.Marshal(marks)
	if err != nil {
		return null.String{}, errors.Wrap(err, "encoding marks data")
	}
	return null.StringFrom(string(b)), nil
}

func unmarshalMarks(data null.String, dest interface{}) error {
	if !data.Valid || data.String == "" {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(data.String), dest), "decoding marks data")
}

func (r behaviorRow) event() activity.BehaviorEvent {
	return activity.BehaviorEvent{
		ID:        r.ID,
		StudentID: r.StudentID,
		Type:      r.Type,
		Timestamp: fromMillis(r.OccurredAt),
		Comment:   r.Comment,
	}
}

func (r homeworkRow) log() (activity.HomeworkLog, error) {
	l := activity.HomeworkLog{
		ID:             r.ID,
		StudentID:      r.StudentID,
		AssignmentName: r.AssignmentName,
		Status:         r.Status,
		LoggedAt:       fromMillis(r.LoggedAt),
		Comment:        r.Comment,
	}
	return l, unmarshalMarks(r.MarksData, &l.MarksData)
}

func (r quizRow) log() (activity.QuizLog, error) {
	l := activity.QuizLog{
		ID:           r.ID,
		StudentID:    r.StudentID,
		QuizName:     r.QuizName,
		LoggedAt:     fromMillis(r.LoggedAt),
		NumQuestions: r.NumQuestions,
		MarkValue:    r.MarkValue.Ptr(),
		MaxMarkValue: r.MaxMarkValue.Ptr(),
		Comment:      r.Comment,
	}
	return l, unmarshalMarks(r.MarksData, &l.MarksData)
}

func activityWhere(filter *activity.QueryFilter, timeColumn string, searchColumns ...string) *where {
	w := new(where)
	if filter == nil {
		return w
	}
	if filter.StudentIDs != nil {
		w.in("student_id", filter.StudentIDs)
	}
	w.search(filter.Search, searchColumns...)
	if !filter.From.IsZero() {
		w.add(timeColumn+" >= ?", toMillis(filter.From))
	}
	if !filter.To.IsZero() {
		w.add(timeColumn+" <= ?", toMillis(filter.To))
	}
	return w
}

type activityRepository struct {
	repository
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(exec core.DBExecutor) *activityRepository {
	return &activityRepository{repository{exec: exec}}
}

func (repo activityRepository) CreateBehaviorEvent(ctx context.Context, e activity.BehaviorEvent, exec ...core.DBExecutor) (activity.BehaviorEvent, error) {
	_, err := repo.exe(ctx, repo.getExec(exec),
		"INSERT INTO behavior_events ("+behaviorColumns+") VALUES (?, ?, ?, ?, ?)",
		e.ID, e.StudentID, e.Type, toMillis(e.Timestamp), e.Comment,
	)
	if err != nil {
		return activity.BehaviorEvent{}, errors.Wrap(err, "inserting behavior event")
	}
	return e, nil
}

func (repo activityRepository) QueryBehaviorEvents(ctx context.Context, filter *activity.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]activity.BehaviorEvent, error) {
	w := activityWhere(filter, "occurred_at", "type", "comment")
	var rows []behaviorRow
	q := "SELECT " + behaviorColumns + " FROM behavior_events" + w.String() + core.OrderBy(ordering, behaviorOrderings, "occurred_at DESC")
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying behavior events")
	}
	events := make([]activity.BehaviorEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, nil
}

func (repo activityRepository) DeleteBehaviorEvents(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	n, err := repo.deleteIn(ctx, repo.getExec(exec), "behavior_events", ids)
	return n, errors.Wrap(err, "deleting behavior events")
}

func (repo activityRepository) CreateHomeworkLog(ctx context.Context, l activity.HomeworkLog, exec ...core.DBExecutor) (activity.HomeworkLog, error) {
	marks, err := marshalMarks(l.MarksData, len(l.MarksData) == 0)
	if err != nil {
		return activity.HomeworkLog{}, err
	}
	_, err = repo.exe(ctx, repo.getExec(exec),
		"INSERT INTO homework_logs ("+homeworkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		l.ID, l.StudentID, l.AssignmentName, l.Status, toMillis(l.LoggedAt), l.Comment, marks,
	)
	if err != nil {
		return activity.HomeworkLog{}, errors.Wrap(err, "inserting homework log")
	}
	return l, nil
}

func (repo activityRepository) QueryHomeworkLogs(ctx context.Context, filter *activity.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]activity.HomeworkLog, error) {
	w := activityWhere(filter, "logged_at", "assignment_name", "status", "comment")
	var rows []homeworkRow
	q := "SELECT " + homeworkColumns + " FROM homework_logs" + w.String() + core.OrderBy(ordering, homeworkOrderings, "logged_at DESC")
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying homework logs")
	}
	logs := make([]activity.HomeworkLog, 0, len(rows))
	for _, r := range rows {
		l, err := r.log()
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (repo activityRepository) DeleteHomeworkLogs(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	n, err := repo.deleteIn(ctx, repo.getExec(exec), "homework_logs", ids)
	return n, errors.Wrap(err, "deleting homework logs")
}

func (repo activityRepository) CreateQuizLog(ctx context.Context, l activity.QuizLog, exec ...core.DBExecutor) (activity.QuizLog, error) {
	marks, err := marshalMarks(l.MarksData, len(l.MarksData) == 0)
	if err != nil {
		return activity.QuizLog{}, err
	}
	_, err = repo.exe(ctx, repo.getExec(exec),
		"INSERT INTO quiz_logs ("+quizColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		l.ID, l.StudentID, l.QuizName, toMillis(l.LoggedAt), marks, l.NumQuestions,
		null.Float64FromPtr(l.MarkValue), null.Float64FromPtr(l.MaxMarkValue), l.Comment,
	)
	if err != nil {
		return activity.QuizLog{}, errors.Wrap(err, "inserting quiz log")
	}
	return l, nil
}

func (repo activityRepository) QueryQuizLogs(ctx context.Context, filter *activity.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]activity.QuizLog, error) {
	w := activityWhere(filter, "logged_at", "quiz_name", "comment")
	var rows []quizRow
	q := "SELECT " + quizColumns + " FROM quiz_logs" + w.String() + core.OrderBy(ordering, quizOrderings, "logged_at DESC")
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying quiz logs")
	}
	logs := make([]activity.QuizLog, 0, len(rows))
	for _, r := range rows {
		l, err := r.log()
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (repo activityRepository) DeleteQuizLogs(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	n, err := repo.deleteIn(ctx, repo.getExec(exec), "quiz_logs", ids)
	return n, errors.Wrap(err, "deleting quiz logs")
}
