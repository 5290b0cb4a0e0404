// Package automltest provides an in-memory experiment.Backend that records
// every call, for tests of code that drives the AutoML service.
package automltest

import (
	"context"
	"sync"

	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// Call is one recorded operation.
type Call struct {
	Variant experiment.ProblemType
	Op      string
	Args    []any
}

// Recorder is a scripted Backend. The exported fields may be changed before
// the first call; they are read under the recorder's lock afterwards.
type Recorder struct {
	mu sync.Mutex

	// Candidates are the models CompareModels ranks, best first.
	Candidates []experiment.Model

	// ArtifactContent is returned by SaveModel.
	ArtifactContent []byte

	failures map[string]error
	setups   []experiment.SetupParams
	calls    []Call
	nextID   int
}

// New returns a recorder with five candidate models.
func New() *Recorder {
	return &Recorder{
		Candidates: []experiment.Model{
			{ID: "lightgbm", Name: "Light Gradient Boosting Machine"},
			{ID: "rf", Name: "Random Forest"},
			{ID: "et", Name: "Extra Trees"},
			{ID: "lr", Name: "Linear Model"},
			{ID: "dt", Name: "Decision Tree"},
		},
		ArtifactContent: []byte("serialized pipeline"),
		failures:        make(map[string]error),
	}
}

// Fail makes every later call of op ("setup", "compare", ...) return err.
func (r *Recorder) Fail(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
}

// Setups returns the parameters of every Setup call, in order.
func (r *Recorder) Setups() []experiment.SetupParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]experiment.SetupParams(nil), r.setups...)
}

// Calls returns every recorded call, in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the operation names of every recorded call.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.calls))
	for i, c := range r.calls {
		ops[i] = c.Op
	}
	return ops
}

// Classification implements experiment.Backend.
func (r *Recorder) Classification() experiment.Experiment {
	return r.newExperiment(experiment.Classification)
}

// Regression implements experiment.Backend.
func (r *Recorder) Regression() experiment.Experiment {
	return r.newExperiment(experiment.Regression)
}

func (r *Recorder) newExperiment(v experiment.ProblemType) *Experiment {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return &Experiment{rec: r, variant: v, id: r.nextID}
}

func (r *Recorder) record(v experiment.ProblemType, op string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Variant: v, Op: op, Args: args})
	return r.failures[op]
}

// Experiment is the handle returned by Recorder.
type Experiment struct {
	rec     *Recorder
	variant experiment.ProblemType
	id      int

	mu     sync.Mutex
	ready  bool
	params experiment.SetupParams
	last   *experiment.ResultTable
	models []experiment.Model
}

// ID distinguishes handles created by the same recorder.
func (e *Experiment) ID() int { return e.id }

// Variant implements experiment.Experiment.
func (e *Experiment) Variant() experiment.ProblemType { return e.variant }

// Params returns what Setup received.
func (e *Experiment) Params() experiment.SetupParams {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Setup implements experiment.Experiment.
func (e *Experiment) Setup(_ context.Context, params experiment.SetupParams) error {
	if err := e.rec.record(e.variant, "setup", params); err != nil {
		return err
	}
	e.rec.mu.Lock()
	e.rec.setups = append(e.rec.setups, params)
	e.rec.mu.Unlock()

	rows, cols := params.Data.Shape()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = true
	e.params = params
	e.last = &experiment.ResultTable{
		Columns: []string{"Description", "Value"},
		Rows: [][]any{
			{"Target", params.Target},
			{"Target type", string(e.variant)},
			{"Original data shape", [2]int{rows, cols}},
			{"Numeric imputation", params.NumericImputation.String()},
			{"Categorical imputation", params.CategoricalImputation.String()},
			{"Remove outliers", params.RemoveOutliers},
		},
	}
	return nil
}

func (e *Experiment) check(op string, args ...any) error {
	if err := e.rec.record(e.variant, op, args...); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return errors.NewCollaboratorError(op, 400, "experiment is not set up")
	}
	return nil
}

// Pull implements experiment.Experiment.
func (e *Experiment) Pull(context.Context) (*experiment.ResultTable, error) {
	if err := e.check("pull"); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, nil
}

// CompareModels implements experiment.Experiment.
func (e *Experiment) CompareModels(_ context.Context, nSelect int) ([]experiment.Model, error) {
	if err := e.check("compare", nSelect); err != nil {
		return nil, err
	}
	e.rec.mu.Lock()
	candidates := append([]experiment.Model(nil), e.rec.Candidates...)
	e.rec.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = leaderboard(e.variant, candidates)
	if nSelect < len(candidates) {
		candidates = candidates[:nSelect]
	}
	e.models = append(e.models, candidates...)
	return candidates, nil
}

// TuneModel implements experiment.Experiment.
func (e *Experiment) TuneModel(_ context.Context, m experiment.Model) (experiment.Model, error) {
	if err := e.check("tune", m); err != nil {
		return experiment.Model{}, err
	}
	return e.remember(experiment.Model{ID: "tuned_" + m.ID, Name: m.Name}), nil
}

// BlendModels implements experiment.Experiment.
func (e *Experiment) BlendModels(_ context.Context, models []experiment.Model) (experiment.Model, error) {
	if err := e.check("blend", models); err != nil {
		return experiment.Model{}, err
	}
	name := "Voting Classifier"
	if e.variant == experiment.Regression {
		name = "Voting Regressor"
	}
	return e.remember(experiment.Model{ID: "blend", Name: name}), nil
}

// StackModels implements experiment.Experiment.
func (e *Experiment) StackModels(_ context.Context, models []experiment.Model) (experiment.Model, error) {
	if err := e.check("stack", models); err != nil {
		return experiment.Model{}, err
	}
	name := "Stacking Classifier"
	if e.variant == experiment.Regression {
		name = "Stacking Regressor"
	}
	return e.remember(experiment.Model{ID: "stack", Name: name}), nil
}

// AutoML implements experiment.Experiment. It picks the first model trained
// in this experiment.
func (e *Experiment) AutoML(_ context.Context, optimize experiment.Metric) (experiment.Model, error) {
	if err := e.check("automl", optimize); err != nil {
		return experiment.Model{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.models) == 0 {
		return experiment.Model{}, errors.NewCollaboratorError("automl", 400, "no models trained")
	}
	return e.models[0], nil
}

// SaveModel implements experiment.Experiment.
func (e *Experiment) SaveModel(_ context.Context, m experiment.Model, name string) (*experiment.Artifact, error) {
	if err := e.check("save", m, name); err != nil {
		return nil, err
	}
	e.rec.mu.Lock()
	content := append([]byte(nil), e.rec.ArtifactContent...)
	e.rec.mu.Unlock()
	return &experiment.Artifact{Name: name + ".pkl", Model: m, Content: content}, nil
}

func (e *Experiment) remember(m experiment.Model) experiment.Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.models = append(e.models, m)
	return m
}

// leaderboard builds a scoring grid with decreasing scores, shaped like the
// service's compare_models output.
func leaderboard(v experiment.ProblemType, models []experiment.Model) *experiment.ResultTable {
	t := &experiment.ResultTable{}
	if v == experiment.Classification {
		t.Columns = []string{"Model", "Accuracy", "AUC", "Recall", "Prec.", "F1", "Kappa", "MCC", "TT (Sec)"}
	} else {
		t.Columns = []string{"Model", "MAE", "MSE", "RMSE", "R2", "RMSLE", "MAPE", "TT (Sec)"}
	}
	for i, m := range models {
		score := 0.9 - 0.05*float64(i)
		loss := 0.1 + 0.05*float64(i)
		row := []any{m.Name}
		if v == experiment.Classification {
			row = append(row, score, score, score, score, score, score-0.1, score-0.1, 0.05)
		} else {
			row = append(row, loss, loss*loss, loss, score, loss/10, loss/5, 0.05)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
