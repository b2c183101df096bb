package lattice

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Run("fewer than two nodes", func(t *testing.T) {
		assert.Empty(t, Compute(nil))
		assert.Empty(t, Compute([]Node{{ID: "1"}}))
	})

	t.Run("only close pairs are linked", func(t *testing.T) {
		nodes := []Node{
			{ID: "1", X: 100, Y: 100},
			{ID: "2", X: 400, Y: 100},
			{ID: "3", X: 3000, Y: 3000},
		}
		edges := Compute(nodes)
		require.Len(t, edges, 1)
		assert.Equal(t, "1", edges[0].FromID)
		assert.Equal(t, "2", edges[0].ToID)
		assert.InDelta(t, 1-300.0/1200, edges[0].Strength, 1e-9)
		assert.Equal(t, edges[0].Type.Color(), edges[0].Color)
	})

	t.Run("strength floor", func(t *testing.T) {
		edges := Compute([]Node{{ID: "1", X: 0, Y: 0}, {ID: "2", X: 0, Y: 799}})
		require.Len(t, edges, 1)
		assert.InDelta(t, 1-799.0/1200, edges[0].Strength, 1e-9)

		edges = Compute([]Node{{ID: "1", X: 0, Y: 0}, {ID: "2", X: 0, Y: 0}})
		require.Len(t, edges, 1)
		assert.Equal(t, 1.0, edges[0].Strength)
	})

	t.Run("deterministic and capped", func(t *testing.T) {
		nodes := make([]Node, 0, 20)
		for i := 0; i < 20; i++ {
			nodes = append(nodes, Node{ID: string(rune('a' + i)), X: float64(i * 10), Y: 0})
		}
		first := Compute(nodes)
		assert.Len(t, first, MaxEdges)
		assert.Equal(t, first, Compute(nodes))
	})
}

func TestClusters(t *testing.T) {
	edge := func(from, to string, s float64) Edge {
		return Edge{FromID: from, ToID: to, Strength: s, Type: Neutral, Color: Neutral.Color()}
	}
	tests := []struct {
		name  string
		nodes []Node
		edges []Edge
		want  []Cluster
	}{
		{name: "empty", want: []Cluster{}},
		{
			name:  "single node",
			nodes: []Node{{ID: "1", X: 100, Y: 100}},
			want:  []Cluster{{StudentIDs: []string{"1"}}},
		},
		{
			name:  "disconnected nodes",
			nodes: []Node{{ID: "1", X: 100, Y: 100}, {ID: "2", X: 2000, Y: 2000}},
			want:  []Cluster{{StudentIDs: []string{"1"}}, {StudentIDs: []string{"2"}}},
		},
		{
			name:  "connected component",
			nodes: []Node{{ID: "1", X: 100, Y: 100}, {ID: "2", X: 150, Y: 150}, {ID: "3", X: 200, Y: 200}},
			edges: []Edge{edge("1", "2", .8), edge("2", "3", .6)},
			want:  []Cluster{{StudentIDs: []string{"1", "2", "3"}, AvgStrength: .7}},
		},
		{
			name: "largest cluster first",
			nodes: []Node{
				{ID: "1", X: 100, Y: 100},
				{ID: "2", X: 1000, Y: 1000},
				{ID: "3", X: 1050, Y: 1050},
				{ID: "4", X: 1100, Y: 1100},
			},
			edges: []Edge{edge("2", "3", .9), edge("3", "4", .5)},
			want: []Cluster{
				{StudentIDs: []string{"2", "3", "4"}, AvgStrength: .7},
				{StudentIDs: []string{"1"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clusters(tt.nodes, tt.edges)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.ElementsMatch(t, tt.want[i].StudentIDs, got[i].StudentIDs)
				assert.InDelta(t, tt.want[i].AvgStrength, got[i].AvgStrength, 1e-9)
			}
		})
	}
}

func TestConnectionType_MarshalText(t *testing.T) {
	data, err := json.Marshal(Edge{FromID: "1", ToID: "2", Type: Friction})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"FRICTION"`)
}

func TestReport(t *testing.T) {
	edges := []Edge{
		{FromID: "1", ToID: "2", Type: Collaboration, Strength: .9},
		{FromID: "2", ToID: "3", Type: Neutral, Strength: .5},
	}
	clusters := []Cluster{{StudentIDs: []string{"1", "2", "3"}, AvgStrength: .7}, {StudentIDs: []string{"4"}}}
	report := Report(edges, clusters, "2027-10-10 10:10:10")

	for _, want := range []string{
		"**Connections:** 2",
		"**Clusters:** 2",
		"- COLLABORATION: 1",
		"- FRICTION: 0",
		"- NEUTRAL: 1",
		"- Cluster 1: 3 student(s), avg strength 0.70",
		"- Cluster 2: 1 student(s), avg strength 0.00",
	} {
		assert.Contains(t, report, want)
	}
}
