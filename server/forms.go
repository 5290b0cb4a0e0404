package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/wizard"
)

// Form choice that switches an imputation select to its literal input.
const literalChoice = "value"

// parseSetupForm reads the options form. Strategy names are passed through
// unchecked; only literals that cannot be parsed are rejected here.
func parseSetupForm(r *http.Request, data *dataset.Table) (wizard.SetupRequest, error) {
	if err := r.ParseForm(); err != nil {
		return wizard.SetupRequest{}, errors.NewValidationError("form", err.Error(), nil)
	}
	req := wizard.SetupRequest{
		Target: r.PostFormValue("target"),
		Config: experiment.DefaultConfig(),
	}
	if req.Target == "" {
		return req, errors.NewValidationError("target", "choose a target column", "")
	}

	if p := r.PostFormValue("problem_type"); p != "" {
		problem, err := experiment.ParseProblemType(p)
		if err != nil {
			return req, err
		}
		req.Problem = problem
	}

	cfg := &req.Config
	switch v := r.PostFormValue("numeric_imputation"); v {
	case "":
	case literalChoice:
		raw := strings.TrimSpace(r.PostFormValue("numeric_imputation_value"))
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, errors.NewValidationError("numeric_imputation_value", "must be a number", raw)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return req, errors.NewValidationError("numeric_imputation_value", "must be a finite number", raw)
		}
		cfg.NumericImputation = experiment.NumericValue(f)
	default:
		cfg.NumericImputation = experiment.ImputeNumeric(experiment.NumericStrategy(v))
	}

	switch v := r.PostFormValue("categorical_imputation"); v {
	case "":
	case literalChoice:
		cfg.CategoricalImputation = experiment.CategoricalValue(r.PostFormValue("categorical_imputation_value"))
	default:
		cfg.CategoricalImputation = experiment.ImputeCategorical(experiment.CategoricalStrategy(v))
	}

	cfg.NumericFeatures = list(r, "numeric_features")
	cfg.CategoricalFeatures = list(r, "categorical_features")
	cfg.DateFeatures = list(r, "date_features")
	cfg.IgnoreFeatures = list(r, "ignore_features")
	cfg.KeepFeatures = list(r, "keep_features")

	for _, col := range list(r, "ordinal_features") {
		order := splitOrder(r.PostFormValue("ordinal_order_" + col))
		if len(order) == 0 {
			order = categories(data, col)
		}
		cfg.OrdinalFeatures[col] = order
	}

	if v := strings.TrimSpace(r.PostFormValue("max_encoding_ohe")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.NewValidationError("max_encoding_ohe", "must be an integer", v)
		}
		cfg.MaxEncodingOHE = n
	}

	cfg.RemoveOutliers = r.PostFormValue("remove_outliers") != ""
	if v := r.PostFormValue("outliers_method"); v != "" {
		cfg.OutliersMethod = experiment.OutlierMethod(v)
	}
	if v := strings.TrimSpace(r.PostFormValue("outliers_threshold")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, errors.NewValidationError("outliers_threshold", "must be a number", v)
		}
		cfg.OutliersThreshold = f
	}
	return req, nil
}

// list returns the non-empty values of a multi-select, never nil.
func list(r *http.Request, key string) []string {
	out := []string{}
	for _, v := range r.PostForm[key] {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func splitOrder(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// categories lists the distinct non-null values of col in order of first
// appearance.
func categories(data *dataset.Table, col string) []string {
	c, ok := data.Column(col)
	if !ok {
		return []string{}
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		s := v.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func intValue(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.PostFormValue(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewValidationError(key, "must be an integer", v)
	}
	return n, nil
}
