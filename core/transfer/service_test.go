package transfer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/transfer"
	logsvc "github.com/trezcool/seatplan/services/logger"
	"github.com/trezcool/seatplan/storage/database/sqlx"
	"github.com/trezcool/seatplan/tests"
)

const classroomJSON = `{
	"students": {
		"s1": {"first_name": "Ada", "last_name": "Lovelace", "x": 10, "y": 20, "style_overrides": {"width": 180}, "group_id": "g1"},
		"s2": {"first_name": "Alan", "last_name": "Turing", "x": 300, "y": 20, "style_overrides": {}},
		"bad": {"first_name": "", "x": 0, "y": 0, "style_overrides": {}}
	},
	"furniture": {
		"f1": {"name": "Desk", "type": "desk", "x": 0, "y": 500, "width": 300, "height": 100}
	},
	"behavior_log": [
		{"student_id": "s1", "timestamp": "2024-03-04T09:15:00", "behavior": "Participating", "comment": "great answer"},
		{"student_id": "s2", "timestamp": "2024-03-04T10:00:00.123", "behavior": "Fractions", "type": "quiz",
			"score_details": {"correct": 7, "total_asked": 10}},
		{"student_id": "nobody", "timestamp": "2024-03-04T10:00:00", "behavior": "Disruptive"},
		{"student_id": "s1", "timestamp": "yesterday", "behavior": "Disruptive"}
	],
	"homework_log": [
		{"student_id": "s2", "timestamp": "2024-03-04 11:00:00", "homework_type": "Essay", "behavior": "Done",
			"homework_details": {"Effort": "A"}}
	],
	"student_groups": {"g1": {"name": "Reds", "color": "#FF0000"}}
}`

type services struct {
	classroom classroom.Service
	activity  activity.Service
	transfer  transfer.Service
}

func setup(t *testing.T) services {
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t)

	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	transfer.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	logger.Enable(false)

	classSvc := classroom.NewService(sqlxrepos.NewClassroomRepository(db), conf.Canvas)
	actSvc := activity.NewService(sqlxrepos.NewActivityRepository(db))
	return services{
		classroom: classSvc,
		activity:  actSvc,
		transfer:  transfer.NewService(classSvc, actSvc, validate, logger),
	}
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	data, err := transfer.DecodeClassroomData(strings.NewReader(classroomJSON))
	require.NoError(t, err)

	res, err := svc.transfer.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.GroupsCreated)
	assert.Equal(t, 2, res.StudentsCreated)
	assert.Equal(t, 1, res.FurnitureCreated)
	assert.Equal(t, 1, res.BehaviorEvents)
	assert.Equal(t, 1, res.QuizLogs)
	assert.Equal(t, 1, res.HomeworkLogs)
	assert.Equal(t, 3, res.Skipped)
	assert.Len(t, res.Errors, 3)

	ada, err := svc.classroom.GetStudentByExternalID(ctx, "s1")
	require.NoError(t, err)
	reds, err := svc.classroom.GetGroupByName(ctx, "Reds")
	require.NoError(t, err)
	assert.Equal(t, reds.ID, ada.GroupID)
	assert.Equal(t, "AL", ada.Initials)
	require.NotNil(t, ada.Width)
	assert.Equal(t, 180.0, *ada.Width)

	quizzes, err := svc.activity.QueryQuizLogs(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, 10, quizzes[0].NumQuestions)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 123e6, time.UTC), quizzes[0].LoggedAt)

	t.Run("importing again updates", func(t *testing.T) {
		data.Students["s1"] = transfer.StudentRecord{FirstName: "Augusta", LastName: "King", X: ptr(50.0), Y: ptr(60.0)}
		res, err := svc.transfer.Import(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, 0, res.GroupsCreated)
		assert.Equal(t, 0, res.StudentsCreated)
		assert.Equal(t, 2, res.StudentsUpdated)
		assert.Equal(t, 1, res.FurnitureUpdated)

		got, err := svc.classroom.GetStudent(ctx, ada.ID)
		require.NoError(t, err)
		assert.Equal(t, "Augusta", got.FirstName)
		assert.Equal(t, "AK", got.Initials)
		assert.Equal(t, 50.0, got.X)
		assert.Empty(t, got.GroupID)
	})
}

func TestService_Export(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	data, err := transfer.DecodeClassroomData(strings.NewReader(classroomJSON))
	require.NoError(t, err)
	_, err = svc.transfer.Import(ctx, data)
	require.NoError(t, err)
	alan, err := svc.classroom.GetStudentByExternalID(ctx, "s2")
	require.NoError(t, err)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name         string
		opts         transfer.ExportOptions
		wantStudents int
		wantEvents   int
		wantHomework int
		wantQuizzes  int
	}{
		{name: "everything", wantStudents: 2, wantEvents: 1, wantHomework: 1, wantQuizzes: 1},
		{
			name:         "absolute range",
			opts:         transfer.ExportOptions{From: day.Add(9*time.Hour + 30*time.Minute), To: day.Add(10*time.Hour + 30*time.Minute)},
			wantStudents: 2, wantQuizzes: 1,
		},
		{name: "quizzes only", opts: transfer.ExportOptions{Include: []string{transfer.KindQuiz}}, wantStudents: 2, wantQuizzes: 1},
		{
			name:         "one student",
			opts:         transfer.ExportOptions{StudentIDs: []string{alan.ID}},
			wantStudents: 1, wantHomework: 1, wantQuizzes: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := svc.transfer.Export(ctx, tt.opts)
			require.NoError(t, err)
			assert.Len(t, exp.Students, tt.wantStudents)
			assert.Len(t, exp.Groups, 1)
			assert.Len(t, exp.Furniture, 1)
			assert.Len(t, exp.BehaviorEvents, tt.wantEvents)
			assert.Len(t, exp.HomeworkLogs, tt.wantHomework)
			assert.Len(t, exp.QuizLogs, tt.wantQuizzes)
		})
	}

	t.Run("relative range", func(t *testing.T) {
		defer func(orig func() time.Time) { core.NowFunc = orig }(core.NowFunc)
		core.NowFunc = func() time.Time { return day.Add(33 * time.Hour) } // 2024-03-05 09:00

		exp, err := svc.transfer.Export(ctx, transfer.ExportOptions{RelativeRange: transfer.RangePast24Hours})
		require.NoError(t, err)
		require.NotNil(t, exp.From)
		assert.Equal(t, day.Add(9*time.Hour), *exp.From)
		assert.Len(t, exp.BehaviorEvents, 1)
		assert.Len(t, exp.QuizLogs, 1)
	})

	t.Run("round trip", func(t *testing.T) {
		exp, err := svc.transfer.Export(ctx, transfer.ExportOptions{})
		require.NoError(t, err)
		out := exp.ClassroomData()
		assert.Contains(t, out.Students, "s1")
		assert.Contains(t, out.Furniture, "f1")
		assert.Len(t, out.BehaviorLog, 2)
		assert.Len(t, out.HomeworkLog, 1)

		other := setup(t)
		res, err := other.transfer.Import(ctx, out)
		require.NoError(t, err)
		assert.Zero(t, res.Skipped, res.Errors)
		assert.Equal(t, 1, res.GroupsCreated)
		assert.Equal(t, 2, res.StudentsCreated)
		assert.Equal(t, 1, res.BehaviorEvents)
		assert.Equal(t, 1, res.QuizLogs)

		ada, err := other.classroom.GetStudentByExternalID(ctx, "s1")
		require.NoError(t, err)
		assert.NotEmpty(t, ada.GroupID)
	})
}

func ptr[T any](v T) *T { return &v }

func TestService_ImportPlacement(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	_, err := svc.transfer.Import(ctx, transfer.ClassroomData{
		Students: map[string]transfer.StudentRecord{
			"s1": {FirstName: "Ada", LastName: "Lovelace", X: ptr(0.0), Y: ptr(0.0)},
		},
	})
	require.NoError(t, err)

	w, h := classroom.Student{}.IconSize()
	want, err := svc.classroom.NextFreePosition(ctx, "", w, h)
	require.NoError(t, err)
	require.NotEqual(t, classroom.Position{}, want)

	res, err := svc.transfer.Import(ctx, transfer.ClassroomData{
		Students: map[string]transfer.StudentRecord{
			"s2": {FirstName: "Alan", LastName: "Turing"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.StudentsCreated)

	alan, err := svc.classroom.GetStudentByExternalID(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, want, classroom.Position{X: alan.X, Y: alan.Y})

	t.Run("missing position keeps the current one on update", func(t *testing.T) {
		_, err := svc.transfer.Import(ctx, transfer.ClassroomData{
			Students: map[string]transfer.StudentRecord{
				"s2": {FirstName: "Alan", LastName: "Turing", Nickname: "Prof"},
			},
		})
		require.NoError(t, err)

		got, err := svc.classroom.GetStudent(ctx, alan.ID)
		require.NoError(t, err)
		assert.Equal(t, "Prof", got.Nickname)
		assert.Equal(t, want, classroom.Position{X: got.X, Y: got.Y})
	})
}

func TestService_QuizRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	_, err := svc.transfer.Import(ctx, transfer.ClassroomData{
		Students: map[string]transfer.StudentRecord{
			"s1": {FirstName: "Ada", LastName: "Lovelace", X: ptr(10.0), Y: ptr(20.0)},
		},
	})
	require.NoError(t, err)
	ada, err := svc.classroom.GetStudentByExternalID(ctx, "s1")
	require.NoError(t, err)

	loggedAt := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	quizzes := []activity.NewQuizLog{
		{
			StudentID: ada.ID, QuizName: "Fractions", LoggedAt: loggedAt, NumQuestions: 12,
			MarkValue: ptr(7.5), MaxMarkValue: ptr(10.0), MarksData: map[string]int{"correct": 7},
		},
		{StudentID: ada.ID, QuizName: "Geometry", LoggedAt: loggedAt.Add(time.Hour), MarkValue: ptr(4.0)},
		{StudentID: ada.ID, QuizName: "Spelling", LoggedAt: loggedAt.Add(2 * time.Hour), NumQuestions: 5},
	}
	for _, nq := range quizzes {
		_, err := svc.activity.LogQuiz(ctx, nq)
		require.NoError(t, err)
	}

	exp, err := svc.transfer.Export(ctx, transfer.ExportOptions{})
	require.NoError(t, err)
	out := exp.ClassroomData()

	other := setup(t)
	res, err := other.transfer.Import(ctx, out)
	require.NoError(t, err)
	assert.Zero(t, res.Skipped, res.Errors)
	assert.Equal(t, 3, res.QuizLogs)

	got, err := other.activity.QueryQuizLogs(ctx, nil, []core.DBOrdering{{Field: "quiz_name", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, got, 3)

	fractions := got[0]
	assert.Equal(t, "Fractions", fractions.QuizName)
	assert.Equal(t, loggedAt, fractions.LoggedAt)
	assert.Equal(t, 12, fractions.NumQuestions)
	require.NotNil(t, fractions.MarkValue)
	assert.Equal(t, 7.5, *fractions.MarkValue)
	require.NotNil(t, fractions.MaxMarkValue)
	assert.Equal(t, 10.0, *fractions.MaxMarkValue)
	assert.Equal(t, map[string]int{"correct": 7}, fractions.MarksData)

	geometry := got[1]
	assert.Equal(t, "Geometry", geometry.QuizName)
	assert.Zero(t, geometry.NumQuestions)
	require.NotNil(t, geometry.MarkValue)
	assert.Equal(t, 4.0, *geometry.MarkValue)
	assert.Nil(t, geometry.MaxMarkValue)

	spelling := got[2]
	assert.Equal(t, "Spelling", spelling.QuizName)
	assert.Equal(t, 5, spelling.NumQuestions)
	assert.Nil(t, spelling.MarkValue)
	assert.Nil(t, spelling.MaxMarkValue)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-03-04T09:15:00", want: time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)},
		{in: "2024-03-04T09:15:00.250", want: time.Date(2024, 3, 4, 9, 15, 0, 250e6, time.UTC)},
		{in: "2024-03-04T09:15:00+02:00", want: time.Date(2024, 3, 4, 7, 15, 0, 0, time.UTC)},
		{in: " 2024-03-04 09:15:00 ", want: time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)},
		{in: "04/03/2024", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := transfer.ParseTimestamp(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
