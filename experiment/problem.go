package experiment

import (
	"strings"

	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// ProblemType selects the experiment variant.
type ProblemType string

const (
	Classification ProblemType = "Classification"
	Regression     ProblemType = "Regression"
)

// ParseProblemType accepts "Classification" or "Regression", ignoring case.
func ParseProblemType(s string) (ProblemType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classification":
		return Classification, nil
	case "regression":
		return Regression, nil
	default:
		return "", errors.NewValidationError("problem_type", "must be Classification or Regression", s)
	}
}

// ProblemTypeFor derives the problem type from the target column's dtype:
// a non-numeric target is Classification, a numeric one Regression.
func ProblemTypeFor(data *dataset.Table, target string) (ProblemType, error) {
	col, ok := data.Column(target)
	if !ok {
		return "", errors.NewColumnNotFoundError("ProblemTypeFor", target)
	}
	if col.DType.IsNumeric() {
		return Regression, nil
	}
	return Classification, nil
}
