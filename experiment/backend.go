package experiment

import (
	"context"
	"strconv"

	"github.com/YuminosukeSato/caretstudio/dataset"
)

// Backend is the AutoML service. It hands out one unconfigured experiment
// per call; Setup decides which variant to ask for.
type Backend interface {
	Classification() Experiment
	Regression() Experiment
}

// Experiment is the handle of one configured pipeline bound to a dataset,
// target and problem type. Every method is a call into the AutoML service.
type Experiment interface {
	// Variant reports which constructor produced the handle.
	Variant() ProblemType

	// Setup initializes the pipeline. It is called exactly once per handle.
	Setup(ctx context.Context, params SetupParams) error

	// Pull returns the result table of the last operation.
	Pull(ctx context.Context) (*ResultTable, error)

	// CompareModels cross-validates candidate models and returns the best nSelect.
	CompareModels(ctx context.Context, nSelect int) ([]Model, error)

	// TuneModel searches hyperparameters of m.
	TuneModel(ctx context.Context, m Model) (Model, error)

	// BlendModels builds a voting ensemble of models.
	BlendModels(ctx context.Context, models []Model) (Model, error)

	// StackModels builds a stacking ensemble of models.
	StackModels(ctx context.Context, models []Model) (Model, error)

	// AutoML returns the best model trained so far by metric.
	AutoML(ctx context.Context, optimize Metric) (Model, error)

	// SaveModel persists m under name and returns the serialized artifact.
	SaveModel(ctx context.Context, m Model, name string) (*Artifact, error)
}

// SetupParams is exactly what reaches the service's setup call.
type SetupParams struct {
	Data   *dataset.Table `json:"data"`
	Target string         `json:"target"`
	Config
}

// Model references a trained model held by the service.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (m Model) String() string {
	if m.Name == "" {
		return m.ID
	}
	return m.Name
}

// ResultTable is a scoring grid or settings table as returned by Pull.
type ResultTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnIndex returns the position of name, or -1.
func (r *ResultTable) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Float reads cell (row, col) as a number. JSON numbers and numeric strings
// are accepted.
func (r *ResultTable) Float(row, col int) (float64, bool) {
	if row < 0 || row >= len(r.Rows) || col < 0 || col >= len(r.Rows[row]) {
		return 0, false
	}
	switch v := r.Rows[row][col].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Artifact is a persisted model as produced by SaveModel.
type Artifact struct {
	Name    string `json:"name"`
	Model   Model  `json:"model"`
	Content []byte `json:"-"`
}
