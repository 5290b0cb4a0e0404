// Package experiment configures AutoML experiments.
//
// Everything statistical (imputation, encoding, outlier removal, model
// search, tuning, ensembling, persistence) happens inside the AutoML service
// behind Backend. This package picks the experiment variant and forwards the
// configuration to it unchanged.
package experiment

import (
	"context"

	"github.com/YuminosukeSato/caretstudio/dataset"
)

// Setup creates the experiment variant for problem (classification when
// problem is Classification, regression otherwise) and initializes it once
// with data, target and the configuration built from DefaultConfig and opts.
//
// Nothing is validated here. An unknown strategy, a missing target column or
// a bad outlier method fail inside the service, and that error is returned
// as is.
func Setup(
	ctx context.Context,
	backend Backend,
	data *dataset.Table,
	target string,
	problem ProblemType,
	opts ...Option,
) (Experiment, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var exp Experiment
	if problem == Classification {
		exp = backend.Classification()
	} else {
		exp = backend.Regression()
	}

	params := SetupParams{
		Data:   data,
		Target: target,
		Config: cfg,
	}
	if err := exp.Setup(ctx, params); err != nil {
		return nil, err
	}
	return exp, nil
}
