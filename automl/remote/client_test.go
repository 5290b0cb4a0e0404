package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

type request struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeService answers the AutoML protocol with canned payloads and records
// every request.
type fakeService struct {
	mu       sync.Mutex
	requests []request
	routes   map[string]http.HandlerFunc
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{routes: map[string]http.HandlerFunc{
		"POST /v1/experiments": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"id": "exp-1"})
		},
		"GET /v1/experiments/exp-1/pull": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"columns": []string{"Model", "Accuracy"},
				"rows":    [][]any{{"Random Forest", 0.8123}},
			})
		},
		"POST /v1/experiments/exp-1/compare": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"models": []map[string]string{
				{"id": "rf", "name": "Random Forest"},
				{"id": "lr", "name": "Logistic Regression"},
			}})
		},
		"POST /v1/experiments/exp-1/tune": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"id": "rf-tuned", "name": "Random Forest"})
		},
		"POST /v1/experiments/exp-1/blend": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"id": "blend-1", "name": "Voting Classifier"})
		},
		"POST /v1/experiments/exp-1/stack": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"id": "stack-1", "name": "Stacking Classifier"})
		},
		"POST /v1/experiments/exp-1/automl": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"id": "blend-1", "name": "Voting Classifier"})
		},
		"POST /v1/experiments/exp-1/save": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Disposition", `attachment; filename="best_model.pkl"`)
			_, _ = w.Write([]byte("pickle bytes"))
		},
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := request{Method: r.Method, Path: r.URL.Path}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			assert.NoError(t, json.Unmarshal(b, &rec.Body))
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeService) route(pattern string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[pattern] = h
}

func (f *fakeService) recorded() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, url string) (*Client, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	c, err := New(url, WithLogger(logger))
	require.NoError(t, err)
	return c, logger
}

func irisTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.Load("iris.csv", strings.NewReader("sepal_length,species\n5.1,setosa\n7.0,versicolor\n"))
	require.NoError(t, err)
	return table
}

func TestSetupSendsVariantAndParams(t *testing.T) {
	svc, srv := newFakeService(t)
	c, logger := newClient(t, srv.URL)
	ctx := context.Background()

	exp := c.Classification()
	assert.Equal(t, experiment.Classification, exp.Variant())

	params := experiment.SetupParams{
		Data:   irisTable(t),
		Target: "species",
		Config: experiment.DefaultConfig(),
	}
	params.NumericImputation = experiment.NumericValue(0)
	require.NoError(t, exp.Setup(ctx, params))

	reqs := svc.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/v1/experiments", reqs[0].Path)
	assert.Equal(t, "Classification", reqs[0].Body["variant"])

	setup := reqs[0].Body["setup"].(map[string]any)
	assert.Equal(t, "species", setup["target"])
	assert.Equal(t, 0.0, setup["numeric_imputation"])
	assert.Equal(t, "mode", setup["categorical_imputation"])
	assert.Equal(t, []any{}, setup["ignore_features"])
	assert.Equal(t, 25.0, setup["max_encoding_ohe"])
	assert.Equal(t, false, setup["remove_outliers"])
	assert.Equal(t, "iforest", setup["outliers_method"])
	assert.Equal(t, 0.05, setup["outliers_threshold"])

	data := setup["data"].(map[string]any)
	assert.Equal(t, []any{"sepal_length", "species"}, data["columns"])
	assert.Equal(t, []any{"float64", "object"}, data["dtypes"])

	assert.True(t, logger.ContainsMessage("experiment created"))
	assert.True(t, logger.ContainsField(log.ExperimentIDKey, "exp-1"))
}

func TestSetupSendsNonFiniteValues(t *testing.T) {
	svc, srv := newFakeService(t)
	c, _ := newClient(t, srv.URL)

	table, err := dataset.Load("d.csv", strings.NewReader("x,y\n1.5,a\ninf,b\n"))
	require.NoError(t, err)
	params := experiment.SetupParams{Data: table, Target: "y", Config: experiment.DefaultConfig()}
	params.NumericImputation = experiment.ParseNumericImputation("nan")
	require.NoError(t, c.Classification().Setup(context.Background(), params))

	reqs := svc.recorded()
	require.Len(t, reqs, 1)
	setup := reqs[0].Body["setup"].(map[string]any)
	assert.Equal(t, "nan", setup["numeric_imputation"])
	data := setup["data"].(map[string]any)
	assert.Equal(t, []any{[]any{1.5, "a"}, []any{nil, "b"}}, data["data"])
}

func TestFullRound(t *testing.T) {
	svc, srv := newFakeService(t)
	c, _ := newClient(t, srv.URL)
	ctx := context.Background()

	exp := c.Classification()
	require.NoError(t, exp.Setup(ctx, experiment.SetupParams{Data: irisTable(t), Target: "species", Config: experiment.DefaultConfig()}))

	top, err := exp.CompareModels(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []experiment.Model{{ID: "rf", Name: "Random Forest"}, {ID: "lr", Name: "Logistic Regression"}}, top)

	grid, err := exp.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Model", "Accuracy"}, grid.Columns)
	v, ok := grid.Float(0, grid.ColumnIndex("Accuracy"))
	assert.True(t, ok)
	assert.InDelta(t, 0.8123, v, 1e-9)

	tuned, err := exp.TuneModel(ctx, top[0])
	require.NoError(t, err)
	assert.Equal(t, "rf-tuned", tuned.ID)

	blend, err := exp.BlendModels(ctx, top)
	require.NoError(t, err)
	assert.Equal(t, "blend-1", blend.ID)

	stack, err := exp.StackModels(ctx, top)
	require.NoError(t, err)
	assert.Equal(t, "stack-1", stack.ID)

	best, err := exp.AutoML(ctx, experiment.AUC)
	require.NoError(t, err)
	assert.Equal(t, blend, best)

	art, err := exp.SaveModel(ctx, best, "best_model")
	require.NoError(t, err)
	assert.Equal(t, "best_model.pkl", art.Name)
	assert.Equal(t, []byte("pickle bytes"), art.Content)
	assert.Equal(t, best, art.Model)

	reqs := svc.recorded()
	require.Len(t, reqs, 8)
	assert.Equal(t, 2.0, reqs[1].Body["n_select"])
	assert.Equal(t, "AUC", reqs[6].Body["optimize"])
	assert.Equal(t, "best_model", reqs[7].Body["name"])
}

func TestServiceErrorIsCollaboratorError(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.route("POST /v1/experiments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		writeJSON(w, map[string]string{"detail": "Target column 'nope' not found"})
	})
	c, _ := newClient(t, srv.URL)

	err := c.Regression().Setup(context.Background(), experiment.SetupParams{Data: irisTable(t), Target: "nope", Config: experiment.DefaultConfig()})
	require.Error(t, err)

	var ce *errors.CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "setup", ce.Op)
	assert.Equal(t, http.StatusUnprocessableEntity, ce.Status)
	assert.Equal(t, "Target column 'nope' not found", ce.Message)
	assert.False(t, errors.Is(err, errors.ErrUnavailable))
}

func TestServiceErrorPlainText(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.route("POST /v1/experiments/exp-1/compare", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ValueError: n_select must be positive", http.StatusInternalServerError)
	})
	c, _ := newClient(t, srv.URL)
	exp := c.Classification()
	require.NoError(t, exp.Setup(context.Background(), experiment.SetupParams{Data: irisTable(t), Target: "species", Config: experiment.DefaultConfig()}))

	_, err := exp.CompareModels(context.Background(), 0)
	var ce *errors.CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "ValueError: n_select must be positive", ce.Message)
}

func TestUnreachableServiceIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, logger := newClient(t, url)
	err := c.Classification().Setup(context.Background(), experiment.SetupParams{Data: irisTable(t), Target: "species", Config: experiment.DefaultConfig()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
	assert.True(t, logger.ContainsMessage("automl request failed"))
}

func TestOperationsNeedSetup(t *testing.T) {
	svc, srv := newFakeService(t)
	c, _ := newClient(t, srv.URL)

	_, err := c.Classification().CompareModels(context.Background(), 3)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
	assert.Empty(t, svc.recorded())
}

func TestSetupTwiceIsRejected(t *testing.T) {
	_, srv := newFakeService(t)
	c, _ := newClient(t, srv.URL)
	exp := c.Classification()
	params := experiment.SetupParams{Data: irisTable(t), Target: "species", Config: experiment.DefaultConfig()}

	require.NoError(t, exp.Setup(context.Background(), params))
	assert.Error(t, exp.Setup(context.Background(), params))
}

func TestSaveDefaultsToPickleName(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.route("POST /v1/experiments/exp-1/save", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("bytes"))
	})
	c, _ := newClient(t, srv.URL)
	exp := c.Regression()
	require.NoError(t, exp.Setup(context.Background(), experiment.SetupParams{Data: irisTable(t), Target: "sepal_length", Config: experiment.DefaultConfig()}))

	art, err := exp.SaveModel(context.Background(), experiment.Model{ID: "lr"}, "my_model")
	require.NoError(t, err)
	assert.Equal(t, "my_model.pkl", art.Name)
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New("ftp://automl.local")
	assert.Error(t, err)

	c, err := New("http://automl.local:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://automl.local:8000", c.base.String())
}

func TestPing(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.route("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newClient(t, srv.URL)
	assert.NoError(t, c.Ping(context.Background()))
}
