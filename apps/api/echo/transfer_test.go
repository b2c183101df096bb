package echoapi

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/seatplan/core/transfer"
)

const importJSON = `{
	"students": {
		"s1": {"first_name": "Ada", "last_name": "Lovelace", "x": 10, "y": 20, "style_overrides": {}, "group_id": "g1"},
		"s2": {"first_name": "Alan", "last_name": "Turing", "x": 300, "y": 20, "style_overrides": {}}
	},
	"furniture": {},
	"behavior_log": [
		{"student_id": "s1", "timestamp": "2024-03-04T09:15:00", "behavior": "Participating"},
		{"student_id": "s2", "timestamp": "2024-03-05T09:15:00", "behavior": "Talking"},
		{"student_id": "s2", "timestamp": "2024-03-04T10:00:00", "behavior": "Fractions", "type": "quiz",
			"score_details": {"correct": 7, "total_asked": 10}}
	],
	"homework_log": [],
	"student_groups": {"g1": {"name": "Reds", "color": "#FF0000"}}
}`

func Test_transferApi(t *testing.T) {
	env := setup(t)
	token := env.staff(t)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/import", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenData)},
		{name: "invalid document", method: http.MethodPost, path: "/v1/import", token: token, body: []byte(`{"students": [`), wantCode: http.StatusBadRequest},
		{
			name: "import", method: http.MethodPost, path: "/v1/import", token: token, body: []byte(importJSON), wantCode: http.StatusOK,
			wantData: marchallObj(t, transfer.ImportResult{
				GroupsCreated: 1, StudentsCreated: 2, BehaviorEvents: 2, QuizLogs: 1, Errors: []string{},
			}),
		},
		{name: "export: unknown range", method: http.MethodGet, path: "/v1/export?range=lol", token: token, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.serve(tt))
		})
	}

	exportPath := func(include ...string) string {
		v := make(url.Values)
		v.Set("from", "2024-03-04T00:00:00Z")
		v.Set("to", "2024-03-04T23:59:59Z")
		for _, inc := range include {
			v.Add("include", inc)
		}
		return "/v1/export?" + v.Encode()
	}

	t.Run("export", func(t *testing.T) {
		rec := env.serve(httpTest{method: http.MethodGet, path: exportPath(), token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var exp transfer.Export
		unmarshal(t, rec, &exp)
		assert.Len(t, exp.Students, 2)
		assert.Len(t, exp.Groups, 1)
		assert.Len(t, exp.BehaviorEvents, 1)
		assert.Len(t, exp.QuizLogs, 1)
		require.NotNil(t, exp.From)
		assert.Equal(t, 2024, exp.From.Year())
	})

	t.Run("export: include", func(t *testing.T) {
		rec := env.serve(httpTest{method: http.MethodGet, path: exportPath("quiz"), token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var exp transfer.Export
		unmarshal(t, rec, &exp)
		assert.Empty(t, exp.BehaviorEvents)
		assert.Len(t, exp.QuizLogs, 1)
	})

	t.Run("export: classroom format", func(t *testing.T) {
		rec := env.serve(httpTest{method: http.MethodGet, path: exportPath() + "&format=classroom", token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var data transfer.ClassroomData
		unmarshal(t, rec, &data)
		assert.Contains(t, data.Students, "s1")
		assert.Contains(t, data.Students, "s2")
		assert.Len(t, data.BehaviorLog, 2)
	})
}
