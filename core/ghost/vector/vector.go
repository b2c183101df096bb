// Package vector sums lattice attraction and repulsion into a net "social force" per student.
package vector

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/trezcool/seatplan/core/ghost/lattice"
)

type Status string

const (
	Nominal        Status = "NOMINAL"
	HighTurbulence Status = "HIGH_TURBULENCE"
	Isolated       Status = "ISOLATED"
	ActiveSynergy  Status = "ACTIVE_SYNERGY"

	CohesionStable  = "STABLE"
	CohesionDynamic = "DYNAMIC"
)

type (
	Vector struct {
		StudentID string  `json:"student_id"`
		DX        float64 `json:"dx"`
		DY        float64 `json:"dy"`
		Magnitude float64 `json:"magnitude"`
		Angle     float64 `json:"angle"` // radians
		Status    Status  `json:"status"`
	}

	Analysis struct {
		CohesionIndex float64 `json:"cohesion_index"`
		GlobalStatus  string  `json:"global_status"`
	}
)

func force(e lattice.Edge) float64 {
	switch e.Type {
	case lattice.Collaboration:
		return e.Strength * 60
	case lattice.Friction:
		return -e.Strength * 100
	default:
		return e.Strength * 15
	}
}

func statusOf(mag float64) Status {
	switch {
	case mag > 85:
		return HighTurbulence
	case mag < 5:
		return Isolated
	case mag > 40:
		return ActiveSynergy
	default:
		return Nominal
	}
}

// Calculate returns one vector per node, in node order.
func Calculate(nodes []lattice.Node, edges []lattice.Edge) []Vector {
	byID := make(map[string]lattice.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	byStudent := make(map[string][]lattice.Edge)
	for _, e := range edges {
		byStudent[e.FromID] = append(byStudent[e.FromID], e)
		byStudent[e.ToID] = append(byStudent[e.ToID], e)
	}

	vectors := make([]Vector, 0, len(nodes))
	for _, n := range nodes {
		var netDX, netDY float64
		for _, e := range byStudent[n.ID] {
			otherID := e.FromID
			if otherID == n.ID {
				otherID = e.ToID
			}
			other, ok := byID[otherID]
			if !ok {
				continue
			}
			dx := other.X - n.X
			dy := other.Y - n.Y
			dist := math.Max(math.Sqrt(dx*dx+dy*dy), 1)
			f := force(e)
			netDX += dx / dist * f
			netDY += dy / dist * f
		}

		mag := math.Sqrt(netDX*netDX + netDY*netDY)
		vectors = append(vectors, Vector{
			StudentID: n.ID,
			DX:        netDX,
			DY:        netDY,
			Magnitude: mag,
			Angle:     math.Atan2(netDY, netDX),
			Status:    statusOf(mag),
		})
	}
	return vectors
}

func AnalyzeCohesion(vectors []Vector) Analysis {
	var avg float64
	if len(vectors) > 0 {
		var sum float64
		for _, v := range vectors {
			sum += v.Magnitude
		}
		avg = sum / float64(len(vectors))
	}

	status := CohesionDynamic
	if avg < 50 {
		status = CohesionStable
	}
	return Analysis{CohesionIndex: avg, GlobalStatus: status}
}

// Report renders the cohesion analysis with a per-student table, strongest force first.
// Students missing from names are shown as "Student <id>".
func Report(a Analysis, vectors []Vector, names map[string]string, timestamp string) string {
	sorted := make([]Vector, len(vectors))
	copy(sorted, vectors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Magnitude > sorted[j].Magnitude })

	var b strings.Builder
	b.WriteString("# 👻 GHOST VECTOR: SOCIAL COHESION ANALYSIS\n")
	fmt.Fprintf(&b, "**Classroom Cohesion Index:** %.2f\n", a.CohesionIndex)
	fmt.Fprintf(&b, "**Global Status:** %s\n", a.GlobalStatus)
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", timestamp)
	b.WriteString("---\n\n")
	b.WriteString("## 🛰️ Neural Trajectory & Turbulence\n")
	b.WriteString("Each student's 'Net Force' represents their current social momentum within the classroom grid.\n\n")
	b.WriteString("| Student | Net Force (mG) | Social Status |\n")
	b.WriteString("| :--- | :--- | :--- |\n")
	for _, v := range sorted {
		name, ok := names[v.StudentID]
		if !ok {
			name = "Student " + v.StudentID
		}
		status := strings.ReplaceAll(string(v.Status), "_", " ")
		fmt.Fprintf(&b, "| %s | %.2f | %s |\n", name, v.Magnitude, status)
	}
	b.WriteString("\n---\n*Generated by Ghost Vector Analysis Bridge v1.0 (Experimental)*")
	return b.String()
}
