// Package entanglement scores pairwise "coherence" between students from proximity,
// behaviour tempo and academic parity.
package entanglement

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/seatplan/core"
)

const (
	spatialSigma    = 600.0
	linkThreshold   = 0.6
	groupMultiplier = 1.5

	// neutral value used when a student has no data to derive a metric from
	neutral = 0.5
)

type State string

const (
	Decohered     State = "DECOHERED"
	Stable        State = "STABLE"
	Superposition State = "SUPERPOSITION"
	Entangled     State = "ENTANGLED"
)

type (
	Node struct {
		ID             string  `json:"id"`
		X              float64 `json:"x"`
		Y              float64 `json:"y"`
		BehaviorSync   float64 `json:"behavior_sync"`   // 0..1
		AcademicParity float64 `json:"academic_parity"` // 0..1
		GroupID        string  `json:"group_id,omitempty"`
	}

	Link struct {
		StudentA  string  `json:"student_a"`
		StudentB  string  `json:"student_b"`
		Coherence float64 `json:"coherence"`
	}

	Analysis struct {
		State        State   `json:"state"`
		AvgCoherence float64 `json:"avg_coherence"`
		MaxCoherence float64 `json:"max_coherence"`
		ActiveLinks  int     `json:"active_links"`
	}
)

func sameGroup(a, b Node) bool {
	return a.GroupID != "" && a.GroupID == b.GroupID
}

// Coherence returns the entanglement strength of two students in [0, 1].
func Coherence(a, b Node, sharingGroup bool) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	distSq := dx*dx + dy*dy
	spatial := math.Exp(-distSq / (2 * spatialSigma * spatialSigma))

	sync := (a.BehaviorSync + b.BehaviorSync) / 2
	parity := 1 - math.Abs(a.AcademicParity-b.AcademicParity)

	multiplier := 1.0
	if sharingGroup {
		multiplier = groupMultiplier
	}
	return core.Clamp((spatial*0.4+sync*0.3+parity*0.3)*multiplier, 0, 1)
}

// Links returns every pair whose coherence is above the active link threshold.
func Links(nodes []Node) []Link {
	links := make([]Link, 0)
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			if c := Coherence(a, b, sameGroup(a, b)); c > linkThreshold {
				links = append(links, Link{StudentA: a.ID, StudentB: b.ID, Coherence: c})
			}
		}
	}
	return links
}

func Analyze(nodes []Node) Analysis {
	if len(nodes) < 2 {
		return Analysis{State: Decohered}
	}

	var total, maxC float64
	links := Links(nodes)
	for _, l := range links {
		total += l.Coherence
		if l.Coherence > maxC {
			maxC = l.Coherence
		}
	}

	var avg float64
	if len(links) > 0 {
		avg = total / float64(len(links))
	}

	var state State
	switch {
	case avg > 0.8:
		state = Entangled
	case avg > 0.5:
		state = Superposition
	case avg > 0.2:
		state = Stable
	default:
		state = Decohered
	}
	return Analysis{State: state, AvgCoherence: avg, MaxCoherence: maxC, ActiveLinks: len(links)}
}

// NodeMetrics derives a student's behaviour sync and academic parity from their logs.
// Sync is high when behaviour events are evenly spaced in time.
func NodeMetrics(behaviorTimes []time.Time, quizRatios []float64, homeworkStatuses []string) (sync, parity float64) {
	return BehaviorSync(behaviorTimes), AcademicParity(quizRatios, homeworkStatuses)
}

func BehaviorSync(times []time.Time) float64 {
	if len(times) < 2 {
		return neutral
	}
	ms := make([]int64, 0, len(times))
	for _, t := range times {
		ms = append(ms, t.UnixMilli())
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i] < ms[j] })

	intervals := make([]float64, 0, len(ms)-1)
	var sum float64
	for i := 0; i < len(ms)-1; i++ {
		iv := float64(ms[i+1] - ms[i])
		intervals = append(intervals, iv)
		sum += iv
	}
	mean := sum / float64(len(intervals))

	var variance float64
	for _, iv := range intervals {
		variance += (iv - mean) * (iv - mean)
	}
	variance /= float64(len(intervals))

	return core.Clamp(math.Exp(-variance/(1000*1000*60)), 0, 1)
}

// AcademicParity averages the quiz score ratio and the share of homework marked done.
// Missing sides fall back to 0.5.
func AcademicParity(quizRatios []float64, homeworkStatuses []string) float64 {
	if len(quizRatios) == 0 && len(homeworkStatuses) == 0 {
		return neutral
	}

	qAvg := neutral
	if len(quizRatios) > 0 {
		var sum float64
		for _, r := range quizRatios {
			sum += r
		}
		qAvg = sum / float64(len(quizRatios))
	}

	hAvg := neutral
	if len(homeworkStatuses) > 0 {
		var done int
		for _, s := range homeworkStatuses {
			if core.ContainsFold(s, "done") {
				done++
			}
		}
		hAvg = float64(done) / float64(len(homeworkStatuses))
	}
	return (qAvg + hAvg) / 2
}

var interpretations = map[State]string{
	Entangled:     "Maximum synchronicity achieved. The classroom is operating as a single unified quantum system.",
	Superposition: "High probability of social contagion. Behavioral events in one node will rapidly propagate to entangled partners.",
	Stable:        "Coherence is nominal. Social interactions are predictable and localized.",
	Decohered:     "Low social synchronicity detected. Students are operating as isolated observers.",
}

func Report(a Analysis, timestamp string) string {
	var b strings.Builder
	b.WriteString("# 👻 GHOST ENTANGLEMENT: QUANTUM SOCIAL ANALYSIS\n")
	fmt.Fprintf(&b, "**Classroom Coherence State:** %s\n", a.State)
	fmt.Fprintf(&b, "**Avg Coherence Score:** %.1f%%\n", a.AvgCoherence*100)
	fmt.Fprintf(&b, "**Active Quantum Links:** %d\n", a.ActiveLinks)
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", timestamp)
	b.WriteString("---\n\n")
	b.WriteString("## [INTERPRETATION]\n")
	b.WriteString(interpretations[a.State] + "\n")
	b.WriteString("\n---\n*Generated by Ghost Entanglement Engine v1.0 (Experimental)*")
	return b.String()
}
