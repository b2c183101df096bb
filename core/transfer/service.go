package transfer

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
)

type (
	Service interface {
		// Import loads data on a best-effort basis: a failing item is logged, counted and skipped.
		// Students and furniture are matched on their external id, so importing twice updates them.
		Import(ctx context.Context, data ClassroomData) (ImportResult, error)
		Export(ctx context.Context, opts ExportOptions) (Export, error)
	}

	service struct {
		classroomSvc classroom.Service
		activitySvc  activity.Service
		validate     *validator.Validate
		logger       core.Logger
	}
)

func NewService(classroomSvc classroom.Service, activitySvc activity.Service, validate *validator.Validate, logger core.Logger) Service {
	return &service{
		classroomSvc: classroomSvc,
		activitySvc:  activitySvc,
		validate:     validate,
		logger:       logger,
	}
}

func (svc *service) skip(res *ImportResult, err error) {
	svc.logger.Warn(fmt.Sprintf("import: %v", err))
	res.skip(err)
}

func (svc *service) Import(ctx context.Context, data ClassroomData) (ImportResult, error) {
	res := ImportResult{Errors: make([]string, 0)}

	groupNames, err := svc.importGroups(ctx, data.StudentGroups, &res)
	if err != nil {
		return res, err
	}
	studentIDs, err := svc.importStudents(ctx, data.Students, groupNames, &res)
	if err != nil {
		return res, err
	}
	if err := svc.importFurniture(ctx, data.Furniture, &res); err != nil {
		return res, err
	}
	if err := svc.importBehaviorLog(ctx, data.BehaviorLog, studentIDs, &res); err != nil {
		return res, err
	}
	if err := svc.importHomeworkLog(ctx, data.HomeworkLog, studentIDs, &res); err != nil {
		return res, err
	}
	return res, nil
}

// importGroups creates the missing groups and returns the group names by their external id.
func (svc *service) importGroups(ctx context.Context, groups map[string]GroupRecord, res *ImportResult) (map[string]string, error) {
	names := make(map[string]string, len(groups))
	for extID, rec := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		names[extID] = rec.Name

		if _, err := svc.classroomSvc.GetGroupByName(ctx, rec.Name); err == nil {
			continue
		} else if !core.IsNotFound(err) {
			return nil, errors.Wrap(err, "finding group")
		}

		ng := classroom.NewGroup{Name: rec.Name, Color: rec.Color}
		if err := ng.Validate(ctx, svc.validate, svc.classroomSvc); err != nil {
			svc.skip(res, errors.Wrapf(err, "group %q", rec.Name))
			continue
		}
		if _, err := svc.classroomSvc.CreateGroup(ctx, ng); err != nil {
			svc.skip(res, errors.Wrapf(err, "group %q", rec.Name))
			continue
		}
		res.GroupsCreated++
	}
	return names, nil
}

// resolveGroup finds a student's group from its external id, or from its name.
func (svc *service) resolveGroup(ctx context.Context, ref string, groupNames map[string]string) string {
	if ref == "" {
		return ""
	}
	name := ref
	if n, ok := groupNames[ref]; ok {
		name = n
	}
	g, err := svc.classroomSvc.GetGroupByName(ctx, name)
	if err != nil {
		return ""
	}
	return g.ID
}

// importStudents upserts students and returns the student ids by external id.
func (svc *service) importStudents(ctx context.Context, students map[string]StudentRecord, groupNames map[string]string, res *ImportResult) (map[string]string, error) {
	ids := make(map[string]string, len(students))
	for extID, rec := range students {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		groupID := svc.resolveGroup(ctx, rec.GroupID, groupNames)

		existing, err := svc.classroomSvc.GetStudentByExternalID(ctx, extID)
		switch {
		case err == nil:
			us := classroom.UpdateStudent{
				FirstName:    &rec.FirstName,
				LastName:     &rec.LastName,
				Nickname:     &rec.Nickname,
				Gender:       &rec.Gender,
				X:            rec.X,
				Y:            rec.Y,
				Width:        rec.StyleOverrides.Width,
				Height:       rec.StyleOverrides.Height,
				FillColor:    &rec.StyleOverrides.FillColor,
				OutlineColor: &rec.StyleOverrides.OutlineColor,
				TextColor:    &rec.StyleOverrides.TextColor,
				GroupID:      &groupID,
			}
			if err := us.Validate(ctx, svc.validate, svc.classroomSvc); err != nil {
				svc.skip(res, errors.Wrapf(err, "student %s", extID))
				continue
			}
			s, err := svc.classroomSvc.UpdateStudent(ctx, existing, us)
			if err != nil {
				svc.skip(res, errors.Wrapf(err, "student %s", extID))
				continue
			}
			ids[extID] = s.ID
			res.StudentsUpdated++

		case core.IsNotFound(err):
			ns := classroom.NewStudent{
				ExternalID:   extID,
				FirstName:    rec.FirstName,
				LastName:     rec.LastName,
				Nickname:     rec.Nickname,
				Gender:       rec.Gender,
				X:            rec.X,
				Y:            rec.Y,
				Width:        rec.StyleOverrides.Width,
				Height:       rec.StyleOverrides.Height,
				FillColor:    rec.StyleOverrides.FillColor,
				OutlineColor: rec.StyleOverrides.OutlineColor,
				TextColor:    rec.StyleOverrides.TextColor,
				GroupID:      groupID,
			}
			if err := ns.Validate(ctx, svc.validate, svc.classroomSvc); err != nil {
				svc.skip(res, errors.Wrapf(err, "student %s", extID))
				continue
			}
			s, err := svc.classroomSvc.CreateStudent(ctx, ns)
			if err != nil {
				svc.skip(res, errors.Wrapf(err, "student %s", extID))
				continue
			}
			ids[extID] = s.ID
			res.StudentsCreated++

		default:
			return nil, errors.Wrap(err, "finding student")
		}
	}
	return ids, nil
}

func (svc *service) importFurniture(ctx context.Context, furniture map[string]FurnitureRecord, res *ImportResult) error {
	for extID, rec := range furniture {
		if err := ctx.Err(); err != nil {
			return err
		}
		existing, err := svc.classroomSvc.GetFurnitureByExternalID(ctx, extID)
		switch {
		case err == nil:
			uf := classroom.UpdateFurniture{
				Name:         &rec.Name,
				Type:         &rec.Type,
				X:            &rec.X,
				Y:            &rec.Y,
				Width:        &rec.Width,
				Height:       &rec.Height,
				FillColor:    &rec.FillColor,
				OutlineColor: &rec.OutlineColor,
			}
			if err := uf.Validate(svc.validate); err != nil {
				svc.skip(res, errors.Wrapf(err, "furniture %s", extID))
				continue
			}
			if _, err := svc.classroomSvc.UpdateFurniture(ctx, existing, uf); err != nil {
				svc.skip(res, errors.Wrapf(err, "furniture %s", extID))
				continue
			}
			res.FurnitureUpdated++

		case core.IsNotFound(err):
			nf := classroom.NewFurniture{
				ExternalID:   extID,
				Name:         rec.Name,
				Type:         rec.Type,
				X:            rec.X,
				Y:            rec.Y,
				Width:        rec.Width,
				Height:       rec.Height,
				FillColor:    rec.FillColor,
				OutlineColor: rec.OutlineColor,
			}
			if err := nf.Validate(svc.validate); err != nil {
				svc.skip(res, errors.Wrapf(err, "furniture %s", extID))
				continue
			}
			if _, err := svc.classroomSvc.CreateFurniture(ctx, nf); err != nil {
				svc.skip(res, errors.Wrapf(err, "furniture %s", extID))
				continue
			}
			res.FurnitureCreated++

		default:
			return errors.Wrap(err, "finding furniture")
		}
	}
	return nil
}

// lookupStudent resolves an external student id, from this import or from earlier ones.
func (svc *service) lookupStudent(ctx context.Context, extID string, studentIDs map[string]string) (string, error) {
	if id, ok := studentIDs[extID]; ok {
		return id, nil
	}
	s, err := svc.classroomSvc.GetStudentByExternalID(ctx, extID)
	if err != nil {
		return "", err
	}
	studentIDs[extID] = s.ID
	return s.ID, nil
}

func (svc *service) importBehaviorLog(ctx context.Context, logs []LogRecord, studentIDs map[string]string, res *ImportResult) error {
	for i, rec := range logs {
		if err := ctx.Err(); err != nil {
			return err
		}
		studentID, err := svc.lookupStudent(ctx, rec.StudentID, studentIDs)
		if err != nil {
			svc.skip(res, errors.Wrapf(err, "behavior_log[%d]: student %s", i, rec.StudentID))
			continue
		}
		ts, err := ParseTimestamp(rec.Timestamp)
		if err != nil {
			svc.skip(res, errors.Wrapf(err, "behavior_log[%d]", i))
			continue
		}

		if rec.Type == KindQuiz {
			nq := activity.NewQuizLog{StudentID: studentID, QuizName: rec.Behavior, LoggedAt: ts, Comment: rec.Comment}
			if sd := rec.ScoreDetails; sd != nil {
				mark, total := float64(sd.Correct), float64(sd.TotalAsked)
				nq.NumQuestions = sd.TotalAsked
				nq.MarkValue = &mark
				if total > 0 {
					nq.MaxMarkValue = &total
				}
			}
			if rec.MarkValue != nil || rec.MaxMarkValue != nil {
				nq.MarkValue, nq.MaxMarkValue = rec.MarkValue, rec.MaxMarkValue
			}
			if rec.NumQuestions != nil {
				nq.NumQuestions = *rec.NumQuestions
			}
			if rec.MarksData != nil {
				nq.MarksData = rec.MarksData
			}
			if err := nq.Validate(ctx, svc.validate, svc.classroomSvc); err != nil {
				svc.skip(res, errors.Wrapf(err, "behavior_log[%d]", i))
				continue
			}
			if _, err := svc.activitySvc.LogQuiz(ctx, nq); err != nil {
				svc.skip(res, errors.Wrapf(err, "behavior_log[%d]", i))
				continue
			}
			res.QuizLogs++
			continue
		}

		nb := activity.NewBehaviorEvent{StudentID: studentID, Type: rec.Behavior, Timestamp: ts, Comment: rec.Comment}
		if err := nb.Validate(ctx, svc.validate, svc.classroomSvc); err != nil {
			svc.skip(res, errors.Wrapf(err, "behavior_log[%d]", i))
			continue
		}
		if _, err := svc.activitySvc.LogBehavior(ctx, nb); err != nil {
			svc.skip(res, errors.Wrapf(err, "behavior_log[%d]", i))
			continue
		}
		res.BehaviorEvents++
	}
	return nil
}

func (svc *service) importHomeworkLog(ctx context.Context, logs []HomeworkRecord, studentIDs map[string]string, res *ImportResult) error {
	for i, rec := range logs {
		if err := ctx.Err(); err != nil {
			return err
		}
		studentID, err := svc.lookupStudent(ctx, rec.StudentID, studentIDs)
		if err != nil {
			svc.skip(res, errors.Wrapf(err, "homework_log[%d]: student %s", i, rec.StudentID))
			continue
		}
		ts, err := ParseTimestamp(rec.Timestamp)
		if err != nil {
			svc.skip(res, errors.Wrapf(err, "homework_log[%d]", i))
			continue
		}

		nh := activity.NewHomeworkLog{
			StudentID:      studentID,
			AssignmentName: rec.HomeworkType,
			Status:         rec.Behavior,
			LoggedAt:       ts,
			Comment:        rec.Comment,
			MarksData:      rec.HomeworkDetails,
		}
		if err := nh.Validate(ctx, svc.validate, svc.classroomSvc); err != nil {
			svc.skip(res, errors.Wrapf(err, "homework_log[%d]", i))
			continue
		}
		if _, err := svc.activitySvc.LogHomework(ctx, nh); err != nil {
			svc.skip(res, errors.Wrapf(err, "homework_log[%d]", i))
			continue
		}
		res.HomeworkLogs++
	}
	return nil
}

func (svc *service) Export(ctx context.Context, opts ExportOptions) (Export, error) {
	now := core.Now()
	opts = opts.Resolve(now)
	exp := Export{GeneratedAt: now}
	if !opts.From.IsZero() {
		from := opts.From.UTC()
		exp.From = &from
	}
	if !opts.To.IsZero() {
		to := opts.To.UTC()
		exp.To = &to
	}

	layout, err := svc.classroomSvc.Layout(ctx)
	if err != nil {
		return Export{}, errors.Wrap(err, "loading layout")
	}
	exp.Groups = layout.Groups
	exp.Furniture = layout.Furniture
	exp.Students = layout.Students
	if len(opts.StudentIDs) > 0 {
		wanted := make(map[string]bool, len(opts.StudentIDs))
		for _, id := range opts.StudentIDs {
			wanted[id] = true
		}
		exp.Students = make([]classroom.Student, 0, len(opts.StudentIDs))
		for _, s := range layout.Students {
			if wanted[s.ID] {
				exp.Students = append(exp.Students, s)
			}
		}
	}

	filter := &activity.QueryFilter{StudentIDs: opts.StudentIDs, From: opts.From, To: opts.To}
	asc := []core.DBOrdering{{Field: "timestamp", Ascending: true}}

	exp.BehaviorEvents = make([]activity.BehaviorEvent, 0)
	if opts.includes(KindBehavior) {
		if exp.BehaviorEvents, err = svc.activitySvc.QueryBehaviorEvents(ctx, filter, asc); err != nil {
			return Export{}, errors.Wrap(err, "querying behavior events")
		}
	}
	exp.HomeworkLogs = make([]activity.HomeworkLog, 0)
	if opts.includes(KindHomework) {
		if exp.HomeworkLogs, err = svc.activitySvc.QueryHomeworkLogs(ctx, filter, asc); err != nil {
			return Export{}, errors.Wrap(err, "querying homework logs")
		}
	}
	exp.QuizLogs = make([]activity.QuizLog, 0)
	if opts.includes(KindQuiz) {
		if exp.QuizLogs, err = svc.activitySvc.QueryQuizLogs(ctx, filter, asc); err != nil {
			return Export{}, errors.Wrap(err, "querying quiz logs")
		}
	}
	return exp, nil
}
