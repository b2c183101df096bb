// Package ghost runs the experimental analysis engines over the current classroom.
package ghost

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/ghost/entanglement"
	"github.com/trezcool/seatplan/core/ghost/ion"
	"github.com/trezcool/seatplan/core/ghost/lattice"
	"github.com/trezcool/seatplan/core/ghost/osmosis"
	"github.com/trezcool/seatplan/core/ghost/vector"
	"github.com/trezcool/seatplan/core/ghost/warp"
)

const (
	EngineEntanglement = "entanglement"
	EngineOsmosis      = "osmosis"
	EngineLattice      = "lattice"
	EngineVector       = "vector"
	EngineIon          = "ion"
	EngineWarp         = "warp"

	reportTimeLayout = "2006-01-02 15:04:05"
)

// Engines lists the engine names, in report order.
var Engines = []string{EngineEntanglement, EngineOsmosis, EngineLattice, EngineVector, EngineIon, EngineWarp}

var (
	// errors
	ErrDisabled      = errors.New("ghost engine disabled")
	ErrUnknownEngine = core.NewNotFoundError("unknown ghost engine")
)

type (
	// Recorder is told about every engine run.
	Recorder interface {
		ObserveGhost(engine string, took time.Duration, err error)
	}

	EntanglementResult struct {
		Analysis entanglement.Analysis `json:"analysis"`
		Nodes    []entanglement.Node   `json:"nodes"`
		Links    []entanglement.Link   `json:"links"`
	}

	OsmosisResult struct {
		Analysis  osmosis.Analysis   `json:"analysis"`
		Gradients []osmosis.Gradient `json:"gradients"`
	}

	LatticeResult struct {
		Edges    []lattice.Edge    `json:"edges"`
		Clusters []lattice.Cluster `json:"clusters"`
	}

	VectorResult struct {
		Analysis vector.Analysis `json:"analysis"`
		Vectors  []vector.Vector `json:"vectors"`
	}

	IonResult struct {
		GlobalBalance  float64     `json:"global_balance"`
		AgitationIndex float64     `json:"agitation_index"`
		Temperature    float64     `json:"temperature"`
		Points         []ion.Point `json:"points"`
	}

	WarpResult struct {
		Analysis      warp.Analysis       `json:"analysis"`
		GravityPoints []warp.GravityPoint `json:"gravity_points"`
	}

	Service interface {
		Entanglement(ctx context.Context) (EntanglementResult, error)
		// Osmosis samples the diffusion field on a gridSize x gridSize grid; 0 uses the configured size.
		Osmosis(ctx context.Context, gridSize int) (OsmosisResult, error)
		Lattice(ctx context.Context) (LatticeResult, error)
		Vectors(ctx context.Context) (VectorResult, error)
		// Ionization uses the configured temperature when temperature is nil.
		Ionization(ctx context.Context, temperature *float64) (IonResult, error)
		Warp(ctx context.Context) (WarpResult, error)
		// Report renders the Markdown report of an engine.
		Report(ctx context.Context, engine string) (string, error)
	}

	service struct {
		conf         core.GhostConfig
		classroomSvc classroom.Service
		activitySvc  activity.Service
		recorder     Recorder
		nowFunc      func() time.Time
	}

	nopRecorder struct{}
)

func (nopRecorder) ObserveGhost(string, time.Duration, error) {}

func NewService(conf core.GhostConfig, classroomSvc classroom.Service, activitySvc activity.Service, recorder Recorder) Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &service{
		conf:         conf,
		classroomSvc: classroomSvc,
		activitySvc:  activitySvc,
		recorder:     recorder,
		nowFunc:      core.Now,
	}
}

func (svc *service) enabled(engine string) bool {
	if !svc.conf.Enabled {
		return false
	}
	switch engine {
	case EngineEntanglement:
		return svc.conf.Entanglement
	case EngineOsmosis:
		return svc.conf.Osmosis
	case EngineLattice:
		return svc.conf.Lattice
	case EngineVector:
		return svc.conf.Vector
	case EngineIon:
		return svc.conf.Ion
	case EngineWarp:
		return svc.conf.Warp
	}
	return false
}

// run checks the toggle of engine and records the run.
func (svc *service) run(engine string, fn func() error) error {
	if !svc.enabled(engine) {
		return ErrDisabled
	}
	start := time.Now()
	err := fn()
	svc.recorder.ObserveGhost(engine, time.Since(start), err)
	return err
}

func (svc *service) students(ctx context.Context) ([]classroom.Student, error) {
	students, err := svc.classroomSvc.QueryStudents(ctx, nil, nil)
	return students, errors.Wrap(err, "querying students")
}

func (svc *service) summaries(ctx context.Context) (map[string]*activity.StudentSummary, error) {
	summaries, err := svc.activitySvc.Summaries(ctx, nil)
	return summaries, errors.Wrap(err, "summarizing logs")
}

func (svc *service) behaviorEvents(ctx context.Context) ([]activity.BehaviorEvent, error) {
	events, err := svc.activitySvc.QueryBehaviorEvents(ctx, nil, []core.DBOrdering{{Field: "timestamp", Ascending: true}})
	return events, errors.Wrap(err, "querying behavior events")
}

func summaryOf(summaries map[string]*activity.StudentSummary, id string) activity.StudentSummary {
	if s, ok := summaries[id]; ok && s != nil {
		return *s
	}
	return activity.StudentSummary{}
}

func names(students []classroom.Student) map[string]string {
	res := make(map[string]string, len(students))
	for _, s := range students {
		res[s.ID] = s.DisplayName()
	}
	return res
}

func latticeNodes(students []classroom.Student) []lattice.Node {
	nodes := make([]lattice.Node, 0, len(students))
	for _, s := range students {
		nodes = append(nodes, lattice.Node{ID: s.ID, X: s.X, Y: s.Y})
	}
	return nodes
}

func (svc *service) entanglement(ctx context.Context) (EntanglementResult, error) {
	students, err := svc.students(ctx)
	if err != nil {
		return EntanglementResult{}, err
	}
	summaries, err := svc.summaries(ctx)
	if err != nil {
		return EntanglementResult{}, err
	}

	nodes := make([]entanglement.Node, 0, len(students))
	for _, s := range students {
		sum := summaryOf(summaries, s.ID)
		sync, parity := entanglement.NodeMetrics(sum.BehaviorTimes, sum.QuizRatios, sum.HomeworkStatuses)
		nodes = append(nodes, entanglement.Node{
			ID:             s.ID,
			X:              s.X,
			Y:              s.Y,
			BehaviorSync:   sync,
			AcademicParity: parity,
			GroupID:        s.GroupID,
		})
	}
	return EntanglementResult{
		Analysis: entanglement.Analyze(nodes),
		Nodes:    nodes,
		Links:    entanglement.Links(nodes),
	}, nil
}

func (svc *service) Entanglement(ctx context.Context) (res EntanglementResult, err error) {
	err = svc.run(EngineEntanglement, func() error {
		res, err = svc.entanglement(ctx)
		return err
	})
	return res, err
}

func (svc *service) osmosis(ctx context.Context, gridSize int) (OsmosisResult, error) {
	students, err := svc.students(ctx)
	if err != nil {
		return OsmosisResult{}, err
	}
	summaries, err := svc.summaries(ctx)
	if err != nil {
		return OsmosisResult{}, err
	}

	nodes := make([]osmosis.Node, 0, len(students))
	for _, s := range students {
		sum := summaryOf(summaries, s.ID)
		knowledge, behavior := osmosis.Potentials(sum.BehaviorTypes, sum.QuizRatios, sum.HomeworkStatuses)
		nodes = append(nodes, osmosis.Node{
			ID:                    s.ID,
			X:                     s.X,
			Y:                     s.Y,
			KnowledgePotential:    knowledge,
			BehaviorConcentration: behavior,
		})
	}

	if gridSize <= 0 {
		gridSize = svc.conf.GridSize
	}
	return OsmosisResult{
		Analysis:  osmosis.AnalyzeBalance(nodes, osmosis.DiffusionRadius),
		Gradients: osmosis.Calculate(nodes, gridSize),
	}, nil
}

func (svc *service) Osmosis(ctx context.Context, gridSize int) (res OsmosisResult, err error) {
	err = svc.run(EngineOsmosis, func() error {
		res, err = svc.osmosis(ctx, gridSize)
		return err
	})
	return res, err
}

func (svc *service) lattice(ctx context.Context) (LatticeResult, []lattice.Node, error) {
	students, err := svc.students(ctx)
	if err != nil {
		return LatticeResult{}, nil, err
	}
	nodes := latticeNodes(students)
	edges := lattice.Compute(nodes)
	return LatticeResult{Edges: edges, Clusters: lattice.Clusters(nodes, edges)}, nodes, nil
}

func (svc *service) Lattice(ctx context.Context) (res LatticeResult, err error) {
	err = svc.run(EngineLattice, func() error {
		res, _, err = svc.lattice(ctx)
		return err
	})
	return res, err
}

func (svc *service) vectors(ctx context.Context) (VectorResult, error) {
	lr, nodes, err := svc.lattice(ctx)
	if err != nil {
		return VectorResult{}, err
	}
	vectors := vector.Calculate(nodes, lr.Edges)
	return VectorResult{Analysis: vector.AnalyzeCohesion(vectors), Vectors: vectors}, nil
}

func (svc *service) Vectors(ctx context.Context) (res VectorResult, err error) {
	err = svc.run(EngineVector, func() error {
		res, err = svc.vectors(ctx)
		return err
	})
	return res, err
}

func (svc *service) ionization(ctx context.Context, temperature *float64) (IonResult, error) {
	students, err := svc.students(ctx)
	if err != nil {
		return IonResult{}, err
	}
	events, err := svc.behaviorEvents(ctx)
	if err != nil {
		return IonResult{}, err
	}

	ionStudents := make([]ion.Student, 0, len(students))
	for _, s := range students {
		ionStudents = append(ionStudents, ion.Student{ID: s.ID, Name: s.DisplayName(), X: s.X, Y: s.Y})
	}
	ionEvents := make([]ion.Event, 0, len(events))
	for _, e := range events {
		ionEvents = append(ionEvents, ion.Event{StudentID: e.StudentID, Type: e.Type, Timestamp: e.Timestamp})
	}

	temp := svc.conf.Temperature
	if temperature != nil {
		temp = *temperature
	}
	points := ion.Calculate(ionStudents, ionEvents, temp)
	return IonResult{
		GlobalBalance:  ion.GlobalBalance(points),
		AgitationIndex: ion.AgitationIndex(points),
		Temperature:    temp,
		Points:         points,
	}, nil
}

func (svc *service) Ionization(ctx context.Context, temperature *float64) (res IonResult, err error) {
	err = svc.run(EngineIon, func() error {
		res, err = svc.ionization(ctx, temperature)
		return err
	})
	return res, err
}

func (svc *service) warp(ctx context.Context) (WarpResult, error) {
	students, err := svc.students(ctx)
	if err != nil {
		return WarpResult{}, err
	}
	events, err := svc.behaviorEvents(ctx)
	if err != nil {
		return WarpResult{}, err
	}

	warpStudents := make([]warp.Student, 0, len(students))
	for _, s := range students {
		warpStudents = append(warpStudents, warp.Student{ID: s.ID, Name: s.DisplayName(), X: s.X, Y: s.Y})
	}
	warpEvents := make([]warp.Event, 0, len(events))
	for _, e := range events {
		warpEvents = append(warpEvents, warp.Event{StudentID: e.StudentID, Type: e.Type, Timestamp: e.Timestamp})
	}

	maxPoints := svc.conf.MaxGravityPoints
	if maxPoints <= 0 {
		maxPoints = warp.DefaultMaxPoints
	}
	return WarpResult{
		Analysis:      warp.AnalyzeCurvature(warpStudents, warpEvents),
		GravityPoints: warp.GravityPoints(warpStudents, warpEvents, svc.nowFunc(), maxPoints),
	}, nil
}

func (svc *service) Warp(ctx context.Context) (res WarpResult, err error) {
	err = svc.run(EngineWarp, func() error {
		res, err = svc.warp(ctx)
		return err
	})
	return res, err
}

func (svc *service) Report(ctx context.Context, engine string) (string, error) {
	ts := svc.nowFunc().Format(reportTimeLayout)

	switch engine {
	case EngineEntanglement:
		res, err := svc.Entanglement(ctx)
		if err != nil {
			return "", err
		}
		return entanglement.Report(res.Analysis, ts), nil

	case EngineOsmosis:
		res, err := svc.Osmosis(ctx, 0)
		if err != nil {
			return "", err
		}
		return osmosis.Report(res.Analysis, ts), nil

	case EngineLattice:
		res, err := svc.Lattice(ctx)
		if err != nil {
			return "", err
		}
		return lattice.Report(res.Edges, res.Clusters, ts), nil

	case EngineVector:
		res, err := svc.Vectors(ctx)
		if err != nil {
			return "", err
		}
		students, err := svc.students(ctx)
		if err != nil {
			return "", err
		}
		return vector.Report(res.Analysis, res.Vectors, names(students), ts), nil

	case EngineIon:
		res, err := svc.Ionization(ctx, nil)
		if err != nil {
			return "", err
		}
		students, err := svc.students(ctx)
		if err != nil {
			return "", err
		}
		return ion.Report(res.Points, names(students), ts), nil

	case EngineWarp:
		res, err := svc.Warp(ctx)
		if err != nil {
			return "", err
		}
		return warp.Report(res.Analysis, ts), nil
	}
	return "", ErrUnknownEngine
}
