// Package ion maps recent behaviour to a per-student "charge" and an activity "density".
package ion

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/seatplan/core"
)

const (
	RecentWindow       = 5
	DefaultTemperature = 30.0
)

type (
	Student struct {
		ID   string  `json:"id"`
		Name string  `json:"name"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}

	Event struct {
		StudentID string
		Type      string
		Timestamp time.Time
	}

	Point struct {
		StudentID string  `json:"student_id"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Charge    float64 `json:"charge"`  // -1..1
		Density   float64 `json:"density"` // 0..1
	}
)

func isPositive(t string) bool {
	return core.ContainsFold(t, "positive") || core.ContainsFold(t, "participating")
}

func isNegative(t string) bool {
	return core.ContainsFold(t, "negative") || core.ContainsFold(t, "disruptive")
}

// Calculate returns one point per student from their last RecentWindow events.
// temperature raises the density of every point between 25 and 45 degrees.
func Calculate(students []Student, events []Event, temperature float64) []Point {
	byStudent := make(map[string][]Event)
	for _, e := range events {
		byStudent[e.StudentID] = append(byStudent[e.StudentID], e)
	}
	tempFactor := core.Clamp(temperature-25, 0, 20) / 20

	points := make([]Point, 0, len(students))
	for _, s := range students {
		logs := byStudent[s.ID]
		sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.Before(logs[j].Timestamp) })
		if len(logs) > RecentWindow {
			logs = logs[len(logs)-RecentWindow:]
		}

		var charge float64
		if len(logs) > 0 {
			var pos, neg int
			for _, l := range logs {
				if isPositive(l.Type) {
					pos++
				}
				if isNegative(l.Type) {
					neg++
				}
			}
			charge = float64(pos-neg) / float64(len(logs))
		}

		points = append(points, Point{
			StudentID: s.ID,
			X:         s.X,
			Y:         s.Y,
			Charge:    charge,
			Density:   core.Clamp(float64(len(logs))/RecentWindow*0.7+tempFactor*0.3, 0, 1),
		})
	}
	return points
}

// GlobalBalance is the mean charge of the classroom.
func GlobalBalance(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Charge
	}
	return sum / float64(len(points))
}

// AgitationIndex is the mean density of the classroom.
func AgitationIndex(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Density
	}
	return sum / float64(len(points))
}

func Report(points []Point, names map[string]string, timestamp string) string {
	var b strings.Builder
	b.WriteString("# 👻 GHOST ION: NEURAL IONIZATION ANALYSIS\n")
	fmt.Fprintf(&b, "**Global Charge:** %.2f\n", GlobalBalance(points))
	fmt.Fprintf(&b, "**Agitation Index:** %.2f\n", AgitationIndex(points))
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", timestamp)
	b.WriteString("---\n\n")
	b.WriteString("## [IONIC HOTSPOTS]\n")
	for _, p := range points {
		name, ok := names[p.StudentID]
		if !ok {
			name = "Student " + p.StudentID
		}
		fmt.Fprintf(&b, "- %s: Charge=%.2f, Density=%.2f\n", name, p.Charge, p.Density)
	}
	b.WriteString("\n---\n*Generated by Ghost Ion Analysis Bridge v1.0 (Experimental)*")
	return b.String()
}
