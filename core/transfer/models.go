package transfer

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
)

// Log entry kinds found in behavior_log.
const (
	KindBehavior = "behavior"
	KindQuiz     = "quiz"
	KindHomework = "homework"
)

// Relative export ranges, resolved against the time of the export.
const (
	RangePast24Hours = "Past 24 hours"
	RangePast7Days   = "Past 7 days"
	RangePast30Days  = "Past 30 days"
)

var relativeRanges = map[string]time.Duration{
	RangePast24Hours: 24 * time.Hour,
	RangePast7Days:   7 * 24 * time.Hour,
	RangePast30Days:  30 * 24 * time.Hour,
}

// timestamps are local date-times without offset, read as UTC
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

type (
	// ClassroomData is the classroom JSON document: students and furniture keyed by their external id.
	ClassroomData struct {
		Students      map[string]StudentRecord   `json:"students"`
		Furniture     map[string]FurnitureRecord `json:"furniture"`
		BehaviorLog   []LogRecord                `json:"behavior_log"`
		HomeworkLog   []HomeworkRecord           `json:"homework_log"`
		StudentGroups map[string]GroupRecord     `json:"student_groups,omitempty"`
	}

	StudentRecord struct {
		FirstName      string         `json:"first_name"`
		LastName       string         `json:"last_name"`
		Nickname       string         `json:"nickname"`
		Gender         string         `json:"gender"`
		X              *float64       `json:"x,omitempty"` // the student is auto-placed when x or y is missing
		Y              *float64       `json:"y,omitempty"`
		StyleOverrides StyleOverrides `json:"style_overrides"`
		GroupID        string         `json:"group_id"`
	}

	StyleOverrides struct {
		Width        *float64 `json:"width,omitempty"`
		Height       *float64 `json:"height,omitempty"`
		FillColor    string   `json:"fill_color,omitempty"`
		OutlineColor string   `json:"outline_color,omitempty"`
		TextColor    string   `json:"text_color,omitempty"`
	}

	FurnitureRecord struct {
		Name         string  `json:"name"`
		Type         string  `json:"type"`
		X            float64 `json:"x"`
		Y            float64 `json:"y"`
		Width        float64 `json:"width"`
		Height       float64 `json:"height"`
		FillColor    string  `json:"fill_color"`
		OutlineColor string  `json:"outline_color"`
	}

	// LogRecord is a behaviour incident, or a quiz when Type is KindQuiz.
	// Quiz marks given explicitly take precedence over ScoreDetails.
	LogRecord struct {
		StudentID    string         `json:"student_id"`
		Timestamp    string         `json:"timestamp"`
		Behavior     string         `json:"behavior"`
		Comment      string         `json:"comment"`
		Type         string         `json:"type,omitempty"`
		ScoreDetails *ScoreDetails  `json:"score_details,omitempty"`
		MarkValue    *float64       `json:"mark_value,omitempty"`
		MaxMarkValue *float64       `json:"max_mark_value,omitempty"`
		NumQuestions *int           `json:"num_questions,omitempty"`
		MarksData    map[string]int `json:"marks_data,omitempty"`
	}

	ScoreDetails struct {
		Correct    int `json:"correct"`
		TotalAsked int `json:"total_asked"`
	}

	// HomeworkRecord keeps the status in Behavior.
	HomeworkRecord struct {
		StudentID       string            `json:"student_id"`
		Timestamp       string            `json:"timestamp"`
		HomeworkType    string            `json:"homework_type"`
		Behavior        string            `json:"behavior"`
		Comment         string            `json:"comment"`
		Type            string            `json:"type,omitempty"`
		HomeworkDetails map[string]string `json:"homework_details,omitempty"`
	}

	GroupRecord struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	// ImportResult counts what an import did. Errors holds one message per skipped item.
	ImportResult struct {
		GroupsCreated    int      `json:"groups_created"`
		StudentsCreated  int      `json:"students_created"`
		StudentsUpdated  int      `json:"students_updated"`
		FurnitureCreated int      `json:"furniture_created"`
		FurnitureUpdated int      `json:"furniture_updated"`
		BehaviorEvents   int      `json:"behavior_events"`
		HomeworkLogs     int      `json:"homework_logs"`
		QuizLogs         int      `json:"quiz_logs"`
		Skipped          int      `json:"skipped"`
		Errors           []string `json:"errors"`
	}

	// ExportOptions selects the exported data. Include lists the log kinds to export; all when empty.
	ExportOptions struct {
		RelativeRange string    `json:"relative_range" query:"range" validate:"omitempty,exportrange"`
		From          time.Time `json:"from" query:"from"`
		To            time.Time `json:"to" query:"to"`
		StudentIDs    []string  `json:"student_ids" query:"student"`
		Include       []string  `json:"include" query:"include" validate:"dive,oneof=behavior homework quiz"`
	}

	Export struct {
		GeneratedAt    time.Time                `json:"generated_at"`
		From           *time.Time               `json:"from,omitempty"`
		To             *time.Time               `json:"to,omitempty"`
		Students       []classroom.Student      `json:"students"`
		Groups         []classroom.StudentGroup `json:"groups"`
		Furniture      []classroom.Furniture    `json:"furniture"`
		BehaviorEvents []activity.BehaviorEvent `json:"behavior_events"`
		HomeworkLogs   []activity.HomeworkLog   `json:"homework_logs"`
		QuizLogs       []activity.QuizLog       `json:"quiz_logs"`
	}
)

func (r *ImportResult) skip(err error) {
	r.Skipped++
	r.Errors = append(r.Errors, err.Error())
}

func (opts ExportOptions) Validate(validate *validator.Validate) error { return validate.Struct(opts) }

// Resolve turns a relative range into an absolute one ending at now.
func (opts ExportOptions) Resolve(now time.Time) ExportOptions {
	if d, ok := relativeRanges[opts.RelativeRange]; ok {
		opts.From = now.Add(-d)
		opts.To = now
	}
	return opts
}

func (opts ExportOptions) includes(kind string) bool {
	if len(opts.Include) == 0 {
		return true
	}
	for _, k := range opts.Include {
		if k == kind {
			return true
		}
	}
	return false
}

// ParseTimestamp reads the timestamps of the classroom JSON format.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("invalid timestamp %q", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000")
}

func DecodeClassroomData(r io.Reader) (ClassroomData, error) {
	var data ClassroomData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return ClassroomData{}, errors.Wrap(err, "decoding classroom data")
	}
	return data, nil
}

// DecodeGroups reads a student groups document (group id -> group).
func DecodeGroups(r io.Reader) (map[string]GroupRecord, error) {
	groups := make(map[string]GroupRecord)
	if err := json.NewDecoder(r).Decode(&groups); err != nil {
		return nil, errors.Wrap(err, "decoding student groups")
	}
	return groups, nil
}

// ClassroomData converts the export back to the classroom JSON format, so it can be imported again.
func (e Export) ClassroomData() ClassroomData {
	data := ClassroomData{
		Students:      make(map[string]StudentRecord, len(e.Students)),
		Furniture:     make(map[string]FurnitureRecord, len(e.Furniture)),
		BehaviorLog:   make([]LogRecord, 0, len(e.BehaviorEvents)+len(e.QuizLogs)),
		HomeworkLog:   make([]HomeworkRecord, 0, len(e.HomeworkLogs)),
		StudentGroups: make(map[string]GroupRecord, len(e.Groups)),
	}

	for _, g := range e.Groups {
		data.StudentGroups[g.ID] = GroupRecord{Name: g.Name, Color: g.Color}
	}

	extIDs := make(map[string]string, len(e.Students))
	for _, s := range e.Students {
		extID := s.ExternalID
		if extID == "" {
			extID = s.ID
		}
		extIDs[s.ID] = extID
		data.Students[extID] = StudentRecord{
			FirstName: s.FirstName,
			LastName:  s.LastName,
			Nickname:  s.Nickname,
			Gender:    s.Gender,
			X:         &s.X,
			Y:         &s.Y,
			StyleOverrides: StyleOverrides{
				Width:        s.Width,
				Height:       s.Height,
				FillColor:    s.FillColor,
				OutlineColor: s.OutlineColor,
				TextColor:    s.TextColor,
			},
			GroupID: s.GroupID,
		}
	}

	for _, f := range e.Furniture {
		extID := f.ExternalID
		if extID == "" {
			extID = f.ID
		}
		data.Furniture[extID] = FurnitureRecord{
			Name:         f.Name,
			Type:         f.Type,
			X:            f.X,
			Y:            f.Y,
			Width:        f.Width,
			Height:       f.Height,
			FillColor:    f.FillColor,
			OutlineColor: f.OutlineColor,
		}
	}

	for _, ev := range e.BehaviorEvents {
		data.BehaviorLog = append(data.BehaviorLog, LogRecord{
			StudentID: extIDs[ev.StudentID],
			Timestamp: formatTimestamp(ev.Timestamp),
			Behavior:  ev.Type,
			Comment:   ev.Comment,
			Type:      KindBehavior,
		})
	}
	for _, q := range e.QuizLogs {
		numQuestions := q.NumQuestions
		rec := LogRecord{
			StudentID:    extIDs[q.StudentID],
			Timestamp:    formatTimestamp(q.LoggedAt),
			Behavior:     q.QuizName,
			Comment:      q.Comment,
			Type:         KindQuiz,
			MarkValue:    q.MarkValue,
			MaxMarkValue: q.MaxMarkValue,
			NumQuestions: &numQuestions,
			MarksData:    q.MarksData,
		}
		// score_details keeps older readers working
		if q.MarkValue != nil && q.MaxMarkValue != nil {
			rec.ScoreDetails = &ScoreDetails{Correct: int(*q.MarkValue), TotalAsked: int(*q.MaxMarkValue)}
		}
		data.BehaviorLog = append(data.BehaviorLog, rec)
	}
	for _, h := range e.HomeworkLogs {
		data.HomeworkLog = append(data.HomeworkLog, HomeworkRecord{
			StudentID:       extIDs[h.StudentID],
			Timestamp:       formatTimestamp(h.LoggedAt),
			HomeworkType:    h.AssignmentName,
			Behavior:        h.Status,
			Comment:         h.Comment,
			Type:            KindHomework,
			HomeworkDetails: h.MarksData,
		})
	}
	return data
}
