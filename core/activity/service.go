package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
)

var (
	// errors
	ErrBehaviorEventNotFound = core.NewNotFoundError("behavior event not found")
	ErrHomeworkLogNotFound   = core.NewNotFoundError("homework log not found")
	ErrQuizLogNotFound       = core.NewNotFoundError("quiz log not found")
)

type (
	// Repository deletes return the number of removed rows.
	Repository interface {
		CreateBehaviorEvent(ctx context.Context, e BehaviorEvent, exec ...core.DBExecutor) (BehaviorEvent, error)
		QueryBehaviorEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]BehaviorEvent, error)
		DeleteBehaviorEvents(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error)

		CreateHomeworkLog(ctx context.Context, l HomeworkLog, exec ...core.DBExecutor) (HomeworkLog, error)
		QueryHomeworkLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]HomeworkLog, error)
		DeleteHomeworkLogs(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error)

		CreateQuizLog(ctx context.Context, l QuizLog, exec ...core.DBExecutor) (QuizLog, error)
		QueryQuizLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]QuizLog, error)
		DeleteQuizLogs(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error)
	}

	Service interface {
		LogBehavior(ctx context.Context, nb NewBehaviorEvent) (BehaviorEvent, error)
		QueryBehaviorEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]BehaviorEvent, error)
		DeleteBehaviorEvents(ctx context.Context, ids ...string) error

		LogHomework(ctx context.Context, nh NewHomeworkLog) (HomeworkLog, error)
		QueryHomeworkLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]HomeworkLog, error)
		DeleteHomeworkLogs(ctx context.Context, ids ...string) error

		LogQuiz(ctx context.Context, nq NewQuizLog) (QuizLog, error)
		QueryQuizLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]QuizLog, error)
		DeleteQuizLogs(ctx context.Context, ids ...string) error

		// Summaries groups the logs matching filter by student id.
		Summaries(ctx context.Context, filter *QueryFilter) (map[string]*StudentSummary, error)
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return core.Now()
	}
	return t.UTC().Truncate(time.Millisecond)
}

func cleanFilter(filter *QueryFilter) *QueryFilter {
	if filter != nil {
		filter.Clean()
	}
	return filter
}

// checkDeleted reports errNotFound when nothing matched ids.
func checkDeleted(n int64, err error, errNotFound error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotFound
	}
	return nil
}

func (svc *service) LogBehavior(ctx context.Context, nb NewBehaviorEvent) (BehaviorEvent, error) {
	return svc.repo.CreateBehaviorEvent(ctx, BehaviorEvent{
		ID:        uuid.NewString(),
		StudentID: nb.StudentID,
		Type:      nb.Type,
		Timestamp: orNow(nb.Timestamp),
		Comment:   nb.Comment,
	})
}

func (svc *service) QueryBehaviorEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]BehaviorEvent, error) {
	return svc.repo.QueryBehaviorEvents(ctx, cleanFilter(filter), ordering)
}

func (svc *service) DeleteBehaviorEvents(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := svc.repo.DeleteBehaviorEvents(ctx, ids)
	return checkDeleted(n, err, ErrBehaviorEventNotFound)
}

func (svc *service) LogHomework(ctx context.Context, nh NewHomeworkLog) (HomeworkLog, error) {
	return svc.repo.CreateHomeworkLog(ctx, HomeworkLog{
		ID:             uuid.NewString(),
		StudentID:      nh.StudentID,
		AssignmentName: nh.AssignmentName,
		Status:         nh.Status,
		LoggedAt:       orNow(nh.LoggedAt),
		Comment:        nh.Comment,
		MarksData:      nh.MarksData,
	})
}

func (svc *service) QueryHomeworkLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]HomeworkLog, error) {
	return svc.repo.QueryHomeworkLogs(ctx, cleanFilter(filter), ordering)
}

func (svc *service) DeleteHomeworkLogs(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := svc.repo.DeleteHomeworkLogs(ctx, ids)
	return checkDeleted(n, err, ErrHomeworkLogNotFound)
}

func (svc *service) LogQuiz(ctx context.Context, nq NewQuizLog) (QuizLog, error) {
	return svc.repo.CreateQuizLog(ctx, QuizLog{
		ID:           uuid.NewString(),
		StudentID:    nq.StudentID,
		QuizName:     nq.QuizName,
		LoggedAt:     orNow(nq.LoggedAt),
		MarksData:    nq.MarksData,
		NumQuestions: nq.NumQuestions,
		MarkValue:    nq.MarkValue,
		MaxMarkValue: nq.MaxMarkValue,
		Comment:      nq.Comment,
	})
}

func (svc *service) QueryQuizLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]QuizLog, error) {
	return svc.repo.QueryQuizLogs(ctx, cleanFilter(filter), ordering)
}

func (svc *service) DeleteQuizLogs(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := svc.repo.DeleteQuizLogs(ctx, ids)
	return checkDeleted(n, err, ErrQuizLogNotFound)
}

func (svc *service) Summaries(ctx context.Context, filter *QueryFilter) (map[string]*StudentSummary, error) {
	filter = cleanFilter(filter)
	asc := []core.DBOrdering{{Field: "timestamp", Ascending: true}}

	events, err := svc.repo.QueryBehaviorEvents(ctx, filter, asc)
	if err != nil {
		return nil, errors.Wrap(err, "querying behavior events")
	}
	homework, err := svc.repo.QueryHomeworkLogs(ctx, filter, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying homework logs")
	}
	quizzes, err := svc.repo.QueryQuizLogs(ctx, filter, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz logs")
	}
	return Summarize(events, homework, quizzes), nil
}

// Summarize groups logs by student id. Quizzes without a usable score are left out of QuizRatios.
func Summarize(events []BehaviorEvent, homework []HomeworkLog, quizzes []QuizLog) map[string]*StudentSummary {
	summaries := make(map[string]*StudentSummary)
	get := func(id string) *StudentSummary {
		s, ok := summaries[id]
		if !ok {
			s = new(StudentSummary)
			summaries[id] = s
		}
		return s
	}

	for _, e := range events {
		s := get(e.StudentID)
		s.BehaviorTimes = append(s.BehaviorTimes, e.Timestamp)
		s.BehaviorTypes = append(s.BehaviorTypes, e.Type)
	}
	for _, h := range homework {
		s := get(h.StudentID)
		s.HomeworkStatuses = append(s.HomeworkStatuses, h.Status)
	}
	for _, q := range quizzes {
		s := get(q.StudentID)
		if ratio, ok := q.ScoreRatio(); ok {
			s.QuizRatios = append(s.QuizRatios, ratio)
		}
	}
	return summaries
}
