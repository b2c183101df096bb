package activity

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/seatplan/core"
)

func fptr(f float64) *float64 { return &f }

func TestQuizLog_ScoreRatio(t *testing.T) {
	tests := []struct {
		name      string
		quiz      QuizLog
		wantRatio float64
		wantOK    bool
	}{
		{name: "no marks", quiz: QuizLog{}},
		{name: "no max", quiz: QuizLog{MarkValue: fptr(4)}},
		{name: "zero max", quiz: QuizLog{MarkValue: fptr(4), MaxMarkValue: fptr(0)}},
		{name: "scored", quiz: QuizLog{MarkValue: fptr(3), MaxMarkValue: fptr(4)}, wantRatio: .75, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, ok := tt.quiz.ScoreRatio()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRatio, ratio)
		})
	}
}

func TestSummarize(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := []BehaviorEvent{
		{StudentID: "a", Type: "Positive Participation", Timestamp: t0},
		{StudentID: "a", Type: "Talking", Timestamp: t0.Add(time.Minute)},
		{StudentID: "b", Type: "Negative", Timestamp: t0},
	}
	homework := []HomeworkLog{{StudentID: "a", Status: "Done"}, {StudentID: "c", Status: "Missing"}}
	quizzes := []QuizLog{
		{StudentID: "a", MarkValue: fptr(8), MaxMarkValue: fptr(10)},
		{StudentID: "b"},
	}

	got := Summarize(events, homework, quizzes)
	require.Len(t, got, 3)
	assert.Equal(t, []time.Time{t0, t0.Add(time.Minute)}, got["a"].BehaviorTimes)
	assert.Equal(t, []string{"Positive Participation", "Talking"}, got["a"].BehaviorTypes)
	assert.Equal(t, []string{"Done"}, got["a"].HomeworkStatuses)
	assert.Equal(t, []float64{.8}, got["a"].QuizRatios)
	assert.Empty(t, got["b"].QuizRatios)
	assert.Equal(t, []string{"Missing"}, got["c"].HomeworkStatuses)
}

func TestNewQuizLogValidation(t *testing.T) {
	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	err := validate.Struct(NewQuizLog{StudentID: "s", QuizName: "Q1", MarkValue: fptr(11), MaxMarkValue: fptr(10)})
	require.Error(t, err)
	verrs := err.(validator.ValidationErrors)
	require.Len(t, verrs, 1)
	assert.Equal(t, "mark_value", verrs[0].Field())
	assert.Equal(t, markValueText, verrs[0].Translate(translator))

	assert.NoError(t, validate.Struct(NewQuizLog{StudentID: "s", QuizName: "Q1", MarkValue: fptr(10), MaxMarkValue: fptr(10)}))
}
