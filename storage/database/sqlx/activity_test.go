package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/storage/database/sqlx"
	"github.com/trezcool/seatplan/tests"
)

func TestActivityRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	classRepo := sqlxrepos.NewClassroomRepository(db)
	repo := sqlxrepos.NewActivityRepository(db)

	ada := testutil.CreateStudent(t, classRepo, "Ada", "Lovelace", 0, 0, "")
	alan := testutil.CreateStudent(t, classRepo, "Alan", "Turing", 200, 0, "")

	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	newEvent := func(studentID, typ string, at time.Time) activity.BehaviorEvent {
		e, err := repo.CreateBehaviorEvent(ctx, activity.BehaviorEvent{
			ID: uuid.NewString(), StudentID: studentID, Type: typ, Timestamp: at,
		})
		require.NoError(t, err)
		return e
	}
	e1 := newEvent(ada.ID, "Participating", base)
	e2 := newEvent(ada.ID, "Disruptive", base.Add(time.Hour))
	e3 := newEvent(alan.ID, "Participating", base.Add(2*time.Hour))

	t.Run("behavior events", func(t *testing.T) {
		tests := []struct {
			name     string
			filter   *activity.QueryFilter
			ordering []core.DBOrdering
			want     []activity.BehaviorEvent
		}{
			{name: "all, newest first", want: []activity.BehaviorEvent{e3, e2, e1}},
			{
				name:     "oldest first",
				ordering: []core.DBOrdering{{Field: "timestamp", Ascending: true}},
				want:     []activity.BehaviorEvent{e1, e2, e3},
			},
			{name: "student", filter: &activity.QueryFilter{StudentIDs: []string{alan.ID}}, want: []activity.BehaviorEvent{e3}},
			{name: "search", filter: &activity.QueryFilter{Search: "disrupt"}, want: []activity.BehaviorEvent{e2}},
			{
				name:   "range",
				filter: &activity.QueryFilter{From: base.Add(30 * time.Minute), To: base.Add(2 * time.Hour)},
				want:   []activity.BehaviorEvent{e3, e2},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.QueryBehaviorEvents(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("homework marks", func(t *testing.T) {
		hw, err := repo.CreateHomeworkLog(ctx, activity.HomeworkLog{
			ID: uuid.NewString(), StudentID: ada.ID, AssignmentName: "Essay", Status: "Done",
			LoggedAt: base, MarksData: map[string]string{"Effort": "A"},
		})
		require.NoError(t, err)
		plain, err := repo.CreateHomeworkLog(ctx, activity.HomeworkLog{
			ID: uuid.NewString(), StudentID: alan.ID, AssignmentName: "Worksheet", Status: "Missing", LoggedAt: base.Add(time.Hour),
		})
		require.NoError(t, err)

		got, err := repo.QueryHomeworkLogs(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []activity.HomeworkLog{plain, hw}, got)
	})

	t.Run("quiz scores", func(t *testing.T) {
		mark, total := 7.0, 10.0
		q, err := repo.CreateQuizLog(ctx, activity.QuizLog{
			ID: uuid.NewString(), StudentID: ada.ID, QuizName: "Fractions", LoggedAt: base,
			MarksData: map[string]int{"correct": 7, "incorrect": 3}, NumQuestions: 10,
			MarkValue: &mark, MaxMarkValue: &total,
		})
		require.NoError(t, err)

		got, err := repo.QueryQuizLogs(ctx, &activity.QueryFilter{Search: "fraction"}, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, q, got[0])
		ratio, ok := got[0].ScoreRatio()
		assert.True(t, ok)
		assert.InDelta(t, 0.7, ratio, 1e-9)
	})

	t.Run("delete", func(t *testing.T) {
		n, err := repo.DeleteBehaviorEvents(ctx, []string{e1.ID, uuid.NewString()})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		// logs go with their student
		require.NoError(t, classRepo.DeleteStudents(ctx, []string{alan.ID}))
		got, err := repo.QueryBehaviorEvents(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []activity.BehaviorEvent{e2}, got)
		homework, err := repo.QueryHomeworkLogs(ctx, &activity.QueryFilter{StudentIDs: []string{alan.ID}}, nil)
		require.NoError(t, err)
		assert.Empty(t, homework)
	})
}
