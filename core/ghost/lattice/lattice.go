// Package lattice infers a social graph between nearby students and groups it into clusters.
package lattice

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/trezcool/seatplan/core"
)

const (
	ProximityThreshold = 800.0
	MaxEdges           = 50

	seed          = 42
	strengthRange = 1200.0
)

type ConnectionType int

const (
	Collaboration ConnectionType = iota
	Friction
	Neutral
)

var connectionNames = map[ConnectionType]string{
	Collaboration: "COLLABORATION",
	Friction:      "FRICTION",
	Neutral:       "NEUTRAL",
}

func (ct ConnectionType) String() string { return connectionNames[ct] }

func (ct ConnectionType) MarshalText() ([]byte, error) { return []byte(ct.String()), nil }

// Color returns the overlay colour of a connection type.
func (ct ConnectionType) Color() string {
	switch ct {
	case Collaboration:
		return "#00FFCC"
	case Friction:
		return "#FF3366"
	default:
		return "#6699FF"
	}
}

type (
	Node struct {
		ID string  `json:"id"`
		X  float64 `json:"x"`
		Y  float64 `json:"y"`
	}

	Edge struct {
		FromID   string         `json:"from_id"`
		ToID     string         `json:"to_id"`
		Strength float64        `json:"strength"` // 0.1..1
		Type     ConnectionType `json:"type"`
		Color    string         `json:"color"`
	}

	Cluster struct {
		StudentIDs  []string `json:"student_ids"`
		AvgStrength float64  `json:"avg_strength"`
	}
)

// Compute links every pair of students closer than ProximityThreshold.
// The connection type is drawn from a fixed-seed generator so the lattice is stable between calls.
func Compute(nodes []Node) []Edge {
	edges := make([]Edge, 0)
	if len(nodes) < 2 {
		return edges
	}
	rnd := rand.New(rand.NewSource(seed))
	thresholdSq := ProximityThreshold * ProximityThreshold

	for i := 0; i < len(nodes); i++ {
		a := nodes[i]
		for j := i + 1; j < len(nodes); j++ {
			b := nodes[j]
			dx := a.X - b.X
			dy := a.Y - b.Y
			distSq := dx*dx + dy*dy
			if distSq >= thresholdSq {
				continue
			}

			isPositive := rnd.Float64() > 0.7
			isNegative := !isPositive && rnd.Float64() > 0.8
			ct := Neutral
			switch {
			case isPositive:
				ct = Collaboration
			case isNegative:
				ct = Friction
			}

			edges = append(edges, Edge{
				FromID:   a.ID,
				ToID:     b.ID,
				Strength: core.Clamp(1-math.Sqrt(distSq)/strengthRange, 0.1, 1),
				Type:     ct,
				Color:    ct.Color(),
			})
		}
	}
	if len(edges) > MaxEdges {
		edges = edges[:MaxEdges]
	}
	return edges
}

// Clusters returns the connected components of the lattice, largest first.
func Clusters(nodes []Node, edges []Edge) []Cluster {
	clusters := make([]Cluster, 0)
	if len(nodes) == 0 {
		return clusters
	}

	adjacency := make(map[string][]int, len(nodes))
	for i, e := range edges {
		adjacency[e.FromID] = append(adjacency[e.FromID], i)
		adjacency[e.ToID] = append(adjacency[e.ToID], i)
	}

	visited := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if visited[n.ID] {
			continue
		}
		visited[n.ID] = true

		var ids []string
		clusterEdges := make(map[int]bool)
		queue := []string{n.ID}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			ids = append(ids, current)

			for _, ei := range adjacency[current] {
				clusterEdges[ei] = true
				e := edges[ei]
				neighbor := e.FromID
				if neighbor == current {
					neighbor = e.ToID
				}
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}

		var avg float64
		if len(clusterEdges) > 0 {
			var sum float64
			for ei := range clusterEdges {
				sum += edges[ei].Strength
			}
			avg = sum / float64(len(clusterEdges))
		}
		clusters = append(clusters, Cluster{StudentIDs: ids, AvgStrength: avg})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].StudentIDs) > len(clusters[j].StudentIDs)
	})
	return clusters
}

func Report(edges []Edge, clusters []Cluster, timestamp string) string {
	counts := make(map[ConnectionType]int, len(connectionNames))
	for _, e := range edges {
		counts[e.Type]++
	}

	var b strings.Builder
	b.WriteString("# 👻 GHOST LATTICE: SOCIAL CONNECTION ANALYSIS\n")
	fmt.Fprintf(&b, "**Connections:** %d\n", len(edges))
	fmt.Fprintf(&b, "**Clusters:** %d\n", len(clusters))
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", timestamp)
	b.WriteString("---\n\n")
	b.WriteString("## [CONNECTION TYPES]\n")
	for _, ct := range []ConnectionType{Collaboration, Friction, Neutral} {
		fmt.Fprintf(&b, "- %s: %d\n", ct, counts[ct])
	}
	b.WriteString("\n## [CLUSTERS]\n")
	for i, c := range clusters {
		fmt.Fprintf(&b, "- Cluster %d: %d student(s), avg strength %.2f\n", i+1, len(c.StudentIDs), c.AvgStrength)
	}
	b.WriteString("\n---\n*Generated by Ghost Lattice Analysis Bridge v1.0 (Experimental)*")
	return b.String()
}
