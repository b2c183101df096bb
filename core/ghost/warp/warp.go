// Package warp turns behaviour activity into "gravity wells" and a classroom curvature score.
package warp

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/seatplan/core"
)

const (
	DefaultMaxPoints = 10
	hotspotsInReport = 5
)

type Status string

const (
	Flat           Status = "FLAT"
	NominalWarp    Status = "NOMINAL"
	HighDistortion Status = "HIGH_DISTORTION"
)

var statusTexts = map[Status]string{
	HighDistortion: "HIGH DISTORTION - Significant behavioral energy detected.",
	NominalWarp:    "NOMINAL - Stable data-plane.",
	Flat:           "FLAT - Low activity levels.",
}

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

	GravityPoint struct {
		StudentID string  `json:"student_id"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Mass      float64 `json:"mass"`
		Radius    float64 `json:"radius"`
	}

	Hotspot struct {
		StudentID string  `json:"student_id"`
		Name      string  `json:"name"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Mass      float64 `json:"mass"`
		Curvature float64 `json:"curvature"`
	}

	Analysis struct {
		GlobalCurvature float64   `json:"global_curvature"`
		Status          Status    `json:"status"`
		Hotspots        []Hotspot `json:"hotspots"`
	}
)

func typeWeight(t string) float64 {
	if core.ContainsFold(t, "negative") {
		return 1.5
	}
	return 1
}

// GravityPoints returns the strongest wells, heaviest first. Events within the hour before now weigh double.
func GravityPoints(students []Student, events []Event, now time.Time, maxPoints int) []GravityPoint {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}

	activity := make(map[string]float64)
	for _, e := range events {
		recency := 1.0
		if now.Sub(e.Timestamp) < time.Hour {
			recency = 2
		}
		activity[e.StudentID] += recency * typeWeight(e.Type)
	}

	points := make([]GravityPoint, 0)
	for _, s := range students {
		a, ok := activity[s.ID]
		if !ok || a < 1 {
			continue
		}
		points = append(points, GravityPoint{
			StudentID: s.ID,
			X:         s.X,
			Y:         s.Y,
			Mass:      math.Min(a*0.1, 2),
			Radius:    300 + math.Min(a*50, 500),
		})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Mass > points[j].Mass })
	if len(points) > maxPoints {
		points = points[:maxPoints]
	}
	return points
}

// AnalyzeCurvature weighs every event of the listed students and ranks them by curvature.
// Events of students not in the list are ignored.
func AnalyzeCurvature(students []Student, events []Event) Analysis {
	mass := make(map[string]float64, len(students))
	known := make(map[string]bool, len(students))
	for _, s := range students {
		known[s.ID] = true
	}
	var total float64
	for _, e := range events {
		if !known[e.StudentID] {
			continue
		}
		w := typeWeight(e.Type)
		mass[e.StudentID] += w
		total += w
	}

	hotspots := make([]Hotspot, 0)
	for _, s := range students {
		m := mass[s.ID]
		if m == 0 {
			continue
		}
		hotspots = append(hotspots, Hotspot{
			StudentID: s.ID,
			Name:      s.Name,
			X:         s.X,
			Y:         s.Y,
			Mass:      m,
			Curvature: math.Round(m/10*100) / 100,
		})
	}
	sort.SliceStable(hotspots, func(i, j int) bool { return hotspots[i].Curvature > hotspots[j].Curvature })

	var global float64
	if len(students) > 0 {
		global = total / float64(len(students))
	}

	status := Flat
	switch {
	case global > 5:
		status = HighDistortion
	case global > 2:
		status = NominalWarp
	}
	return Analysis{GlobalCurvature: global, Status: status, Hotspots: hotspots}
}

func Report(a Analysis, timestamp string) string {
	var b strings.Builder
	b.WriteString("# 👻 GHOST WARP ANALYSIS: CLASSROOM CURVATURE\n")
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", timestamp)
	fmt.Fprintf(&b, "**Global Classroom Curvature:** %.2f\n", a.GlobalCurvature)
	fmt.Fprintf(&b, "**Status:** %s\n\n", statusTexts[a.Status])
	b.WriteString("## [GRAVITATIONAL HOTSPOTS]\n")
	fmt.Fprintf(&b, "Detected %d Gravitational Hotspots:\n", len(a.Hotspots))
	for i, h := range a.Hotspots {
		if i == hotspotsInReport {
			break
		}
		name := h.Name
		if name == "" {
			name = "Student " + h.StudentID
		}
		fmt.Fprintf(&b, "- %s: Curvature %.2f at (%.0f, %.0f)\n", name, h.Curvature, h.X, h.Y)
	}
	b.WriteString("\n[Recommendation]: Increase spacing near high-curvature nodes to prevent social collision.\n")
	b.WriteString("\n---\n*Generated by Ghost Warp Analysis Bridge v1.0 (Experimental)*")
	return b.String()
}
