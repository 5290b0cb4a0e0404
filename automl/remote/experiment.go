package remote

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"sync"

	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

type createRequest struct {
	Variant experiment.ProblemType `json:"variant"`
	Setup   experiment.SetupParams `json:"setup"`
}

type createResponse struct {
	ID string `json:"id"`
}

type compareRequest struct {
	NSelect int `json:"n_select"`
}

type compareResponse struct {
	Models []experiment.Model `json:"models"`
}

type modelRequest struct {
	Model experiment.Model `json:"model"`
}

type modelsRequest struct {
	Models []experiment.Model `json:"models"`
}

type automlRequest struct {
	Optimize experiment.Metric `json:"optimize"`
}

type saveRequest struct {
	Model experiment.Model `json:"model"`
	Name  string           `json:"name"`
}

// remoteExperiment is one server-side experiment. The ID is assigned by Setup.
type remoteExperiment struct {
	client  *Client
	variant experiment.ProblemType

	mu sync.Mutex
	id string
}

func (e *remoteExperiment) Variant() experiment.ProblemType { return e.variant }

func (e *remoteExperiment) Setup(ctx context.Context, params experiment.SetupParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.id != "" {
		return errors.NewValueError("remote.Setup", "experiment "+e.id+" is already set up")
	}

	var resp createResponse
	req := createRequest{Variant: e.variant, Setup: params}
	if err := e.client.do(ctx, log.OperationSetup, http.MethodPost, "/v1/experiments", req, &resp); err != nil {
		return err
	}
	if resp.ID == "" {
		return errors.NewCollaboratorError(log.OperationSetup, http.StatusOK, "response carries no experiment id")
	}
	e.id = resp.ID

	e.client.logger.Info("experiment created",
		log.ExperimentIDKey, e.id,
		log.VariantKey, string(e.variant),
		log.TargetKey, params.Target,
	)
	return nil
}

// path returns the URL path of op on this experiment.
func (e *remoteExperiment) path(op string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.id == "" {
		return "", errors.NewValueError("remote."+op, "experiment is not set up")
	}
	return "/v1/experiments/" + url.PathEscape(e.id) + "/" + op, nil
}

func (e *remoteExperiment) call(ctx context.Context, op, method string, in, out any) error {
	p, err := e.path(op)
	if err != nil {
		return err
	}
	return e.client.do(ctx, op, method, p, in, out)
}

func (e *remoteExperiment) Pull(ctx context.Context) (*experiment.ResultTable, error) {
	var t experiment.ResultTable
	if err := e.call(ctx, log.OperationPull, http.MethodGet, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (e *remoteExperiment) CompareModels(ctx context.Context, nSelect int) ([]experiment.Model, error) {
	var resp compareResponse
	if err := e.call(ctx, log.OperationCompare, http.MethodPost, compareRequest{NSelect: nSelect}, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

func (e *remoteExperiment) TuneModel(ctx context.Context, m experiment.Model) (experiment.Model, error) {
	var out experiment.Model
	err := e.call(ctx, log.OperationTune, http.MethodPost, modelRequest{Model: m}, &out)
	return out, err
}

func (e *remoteExperiment) BlendModels(ctx context.Context, models []experiment.Model) (experiment.Model, error) {
	var out experiment.Model
	err := e.call(ctx, log.OperationBlend, http.MethodPost, modelsRequest{Models: models}, &out)
	return out, err
}

func (e *remoteExperiment) StackModels(ctx context.Context, models []experiment.Model) (experiment.Model, error) {
	var out experiment.Model
	err := e.call(ctx, log.OperationStack, http.MethodPost, modelsRequest{Models: models}, &out)
	return out, err
}

func (e *remoteExperiment) AutoML(ctx context.Context, optimize experiment.Metric) (experiment.Model, error) {
	var out experiment.Model
	err := e.call(ctx, log.OperationAutoML, http.MethodPost, automlRequest{Optimize: optimize}, &out)
	return out, err
}

// SaveModel returns the pipeline file the service wrote. The artifact name
// comes from Content-Disposition, or name + ".pkl" as PyCaret writes it.
func (e *remoteExperiment) SaveModel(ctx context.Context, m experiment.Model, name string) (*experiment.Artifact, error) {
	var raw rawResponse
	if err := e.call(ctx, log.OperationSave, http.MethodPost, saveRequest{Model: m, Name: name}, &raw); err != nil {
		return nil, err
	}
	artifact := &experiment.Artifact{
		Name:    name + ".pkl",
		Model:   m,
		Content: raw.body,
	}
	if _, params, err := mime.ParseMediaType(raw.header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		artifact.Name = params["filename"]
	}
	return artifact, nil
}
