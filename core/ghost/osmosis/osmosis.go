// Package osmosis models knowledge and behaviour "diffusing" between nearby students.
package osmosis

import (
	"fmt"
	"math"
	"strings"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/ghost/entanglement"
)

const (
	CanvasSize      = 4000.0
	DiffusionRadius = 1000.0
	DefaultGridSize = 20
	MaxGridSize     = 200

	sigma = 400.0
)

type Status string

const (
	Void         Status = "VOID"
	Stable       Status = "STABLE"
	Equilibrium  Status = "EQUILIBRIUM"
	HighGradient Status = "HIGH_GRADIENT"
)

type (
	Node struct {
		ID                    string  `json:"id"`
		X                     float64 `json:"x"`
		Y                     float64 `json:"y"`
		KnowledgePotential    float64 `json:"knowledge_potential"`    // 0..1
		BehaviorConcentration float64 `json:"behavior_concentration"` // -1..1
	}

	// Color is an RGB triple with components in [0, 1].
	Color [3]float64

	Gradient struct {
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Potential float64 `json:"potential"`
		Color     Color   `json:"color"`
	}

	Analysis struct {
		Status            Status  `json:"status"`
		BalanceScore      float64 `json:"balance_score"`
		TotalInteractions int     `json:"total_interactions"`
		AvgDiffusionDelta float64 `json:"avg_diffusion_delta"`
	}
)

func gaussian(distSq float64) float64 {
	return math.Exp(-distSq / (2 * sigma * sigma))
}

// Calculate samples the diffusion field at the centre of every grid cell.
// Cells out of reach of every student are omitted.
func Calculate(nodes []Node, gridSize int) []Gradient {
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}
	step := CanvasSize / float64(gridSize)
	gradients := make([]Gradient, 0)

	for iy := 0; iy < gridSize; iy++ {
		for ix := 0; ix < gridSize; ix++ {
			gx := float64(ix)*step + step/2
			gy := float64(iy)*step + step/2

			var totalK, totalB, totalW float64
			for _, n := range nodes {
				dx := gx - n.X
				dy := gy - n.Y
				distSq := dx*dx + dy*dy
				if math.Sqrt(distSq) < DiffusionRadius {
					w := gaussian(distSq)
					totalK += n.KnowledgePotential * w
					totalB += n.BehaviorConcentration * w
					totalW += w
				}
			}
			if totalW <= 0 {
				continue
			}

			avgK := core.Clamp(totalK/totalW, 0, 1)
			avgB := core.Clamp(totalB/totalW, -1, 1)
			var color Color
			if avgB < 0 {
				color[0] = -avgB
			} else if avgB > 0 {
				color[1] = avgB
			}
			color[2] = avgK

			gradients = append(gradients, Gradient{
				X:         gx,
				Y:         gy,
				Potential: (avgK + math.Abs(avgB)) / 2,
				Color:     color,
			})
		}
	}
	return gradients
}

// AnalyzeBalance sums proximity weighted potential differences between students within radius.
func AnalyzeBalance(nodes []Node, radius float64) Analysis {
	if len(nodes) == 0 {
		return Analysis{Status: Void}
	}
	if radius <= 0 {
		radius = DiffusionRadius
	}

	var total float64
	var interactions int
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			dx := a.X - b.X
			dy := a.Y - b.Y
			distSq := dx*dx + dy*dy
			if math.Sqrt(distSq) >= radius {
				continue
			}
			kDiff := math.Abs(a.KnowledgePotential - b.KnowledgePotential)
			bDiff := math.Abs(a.BehaviorConcentration - b.BehaviorConcentration)
			total += (kDiff + bDiff) * gaussian(distSq)
			interactions++
		}
	}

	var avg float64
	if interactions > 0 {
		avg = total / float64(interactions)
	}
	balance := math.Max(0, 1-avg*2)

	status := Stable
	switch {
	case balance > 0.8:
		status = Equilibrium
	case balance < 0.4:
		status = HighGradient
	}
	return Analysis{Status: status, BalanceScore: balance, TotalInteractions: interactions, AvgDiffusionDelta: avg}
}

// Potentials derives a student's knowledge potential and behaviour concentration from their logs.
func Potentials(behaviorTypes []string, quizRatios []float64, homeworkStatuses []string) (knowledge, behavior float64) {
	knowledge = entanglement.AcademicParity(quizRatios, homeworkStatuses)

	if len(behaviorTypes) > 0 {
		var pos, neg int
		for _, t := range behaviorTypes {
			if core.ContainsFold(t, "negative") {
				neg++
			} else {
				pos++
			}
		}
		behavior = float64(pos-neg) / float64(len(behaviorTypes))
	}
	return core.Clamp(knowledge, 0, 1), core.Clamp(behavior, -1, 1)
}

var interpretations = map[Status]string{
	Equilibrium:  "The classroom has reached a state of neural equilibrium. Knowledge and behavior are evenly distributed.",
	HighGradient: "Warning: High potential gradients detected. Significant disparity in academic or behavioral states between adjacent nodes.",
	Stable:       "Classroom diffusion is stable. Organic knowledge exchange is occurring at nominal rates.",
	Void:         "No student nodes detected for analysis.",
}

func Report(a Analysis, timestamp string) string {
	var b strings.Builder
	b.WriteString("# 👻 GHOST OSMOSIS: NEURAL DIFFUSION ANALYSIS\n")
	fmt.Fprintf(&b, "**Classroom Status:** %s\n", a.Status)
	fmt.Fprintf(&b, "**Osmotic Balance Score:** %.1f%%\n", a.BalanceScore*100)
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", timestamp)
	b.WriteString("---\n\n")
	b.WriteString("## [OSMOTIC METRICS]\n")
	fmt.Fprintf(&b, "- Active Diffusion Zones: %d\n", a.TotalInteractions)
	fmt.Fprintf(&b, "- Avg Diffusion Delta:   %.3f\n\n", a.AvgDiffusionDelta)
	b.WriteString("## [INTERPRETATION]\n")
	b.WriteString(interpretations[a.Status] + "\n")
	b.WriteString("\n---\n*Generated by Ghost Osmosis Analysis Bridge v1.0 (Experimental)*")
	return b.String()
}
