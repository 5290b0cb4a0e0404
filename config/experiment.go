package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// ExperimentFile describes a headless run of the wizard.
//
//	dataset: data/churn.csv
//	target: churned
//	problem_type: Classification   # optional, derived from the target otherwise
//	setup:
//	  numeric_imputation: median
//	  ignore_features: [customer_id]
//	top_n: 3
//	optimize: AUC
//	save_name: churn_model
type ExperimentFile struct {
	Dataset     string            `yaml:"dataset"`
	Target      string            `yaml:"target"`
	ProblemType string            `yaml:"problem_type"`
	Setup       experiment.Config `yaml:"setup"`
	TopN        int               `yaml:"top_n"`
	Optimize    string            `yaml:"optimize"`
	SaveName    string            `yaml:"save_name"`
}

// LoadExperiment reads an experiment file. Setup options missing from the
// file keep their defaults; a relative dataset path is resolved against the
// file's directory.
func LoadExperiment(path string) (*ExperimentFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	f := &ExperimentFile{Setup: experiment.DefaultConfig()}
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}

	if f.Dataset == "" {
		return nil, errors.NewValidationError("dataset", "must not be empty", f.Dataset)
	}
	if f.Target == "" {
		return nil, errors.NewValidationError("target", "must not be empty", f.Target)
	}
	if !filepath.IsAbs(f.Dataset) {
		f.Dataset = filepath.Join(filepath.Dir(path), f.Dataset)
	}
	if _, err := f.Problem(); err != nil {
		return nil, err
	}
	if _, err := f.Metric(); err != nil {
		return nil, err
	}
	return f, nil
}

// Problem returns the configured problem type, or "" when it should be
// derived from the target column.
func (f *ExperimentFile) Problem() (experiment.ProblemType, error) {
	if f.ProblemType == "" {
		return "", nil
	}
	return experiment.ParseProblemType(f.ProblemType)
}

// Metric returns the optimize metric, or "" for the problem type's default.
func (f *ExperimentFile) Metric() (experiment.Metric, error) {
	if f.Optimize == "" {
		return "", nil
	}
	return experiment.ParseMetric(f.Optimize)
}
