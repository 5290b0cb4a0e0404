package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/caretstudio/artifact"
	"github.com/YuminosukeSato/caretstudio/automl/automltest"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

const housesCSV = `rooms,area,city,price,sold
3,72.5,Oslo,420000,yes
4,95.0,Bergen,510000,no
2,48.2,Oslo,310000,yes
5,120.3,Trondheim,640000,no
`

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func newServer(t *testing.T, backend experiment.Backend, store *artifact.Store, opts Options) *Server {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts.Logger = logger
	srv, err := New(backend, store, opts)
	require.NoError(t, err)
	return srv
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("dataset", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func post(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(srv, req)
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	return serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
}

// upload posts housesCSV and returns the session page path.
func upload(t *testing.T, srv *Server) string {
	t.Helper()
	w := serve(srv, uploadRequest(t, "houses.csv", housesCSV))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/sessions/"), loc)
	return loc
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{})
	w := get(srv, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIndex(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{})
	w := get(srv, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="dataset"`)
	assert.Contains(t, w.Body.String(), ".csv")

	assert.Equal(t, http.StatusNotFound, get(srv, "/nothing-here").Code)
}

func TestUploadShowsDataset(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{})
	page := upload(t, srv)
	assert.Len(t, srv.Sessions().IDs(), 1)

	w := get(srv, page)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "houses.csv")
	assert.Contains(t, body, "Trondheim")
	assert.Contains(t, body, "(4, 5)")
	assert.Contains(t, body, "Idle")
	assert.Contains(t, body, "Non-Null Count")
}

func TestFullRound(t *testing.T) {
	rec := automltest.New()
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	srv := newServer(t, rec, store, Options{TopN: 2})
	page := upload(t, srv)

	w := post(srv, page+"/setup", url.Values{
		"target":             {"sold"},
		"numeric_imputation": {"median"},
		"ordinal_features":   {"city"},
		"remove_outliers":    {"on"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, page, w.Header().Get("Location"))

	setups := rec.Setups()
	require.Len(t, setups, 1)
	assert.Equal(t, "sold", setups[0].Target)
	assert.True(t, setups[0].RemoveOutliers)
	assert.Equal(t, []string{"Oslo", "Bergen", "Trondheim"}, setups[0].OrdinalFeatures["city"])

	require.Equal(t, http.StatusSeeOther, post(srv, page+"/compare", nil).Code)
	w = get(srv, page+"/charts/leaderboard.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))

	require.Equal(t, http.StatusSeeOther, post(srv, page+"/optimize", url.Values{"optimize": {"F1"}}).Code)
	require.Equal(t, http.StatusSeeOther, post(srv, page+"/save", url.Values{"name": {"houses"}}).Code)

	assert.Equal(t, []string{
		"setup", "pull",
		"compare", "pull",
		"tune", "tune", "blend", "stack", "automl",
		"save",
	}, rec.Ops())

	w = get(srv, page)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Saved")
	assert.Contains(t, w.Body.String(), "houses.pkl")

	w = get(srv, page+"/artifact")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "serialized pipeline", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=houses.pkl`)
}

func TestDownloadFromMemory(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{})
	page := upload(t, srv)

	require.Equal(t, http.StatusSeeOther, post(srv, page+"/setup", url.Values{"target": {"price"}}).Code)
	require.Equal(t, http.StatusSeeOther, post(srv, page+"/compare", url.Values{"n_select": {"1"}}).Code)
	require.Equal(t, http.StatusSeeOther, post(srv, page+"/optimize", nil).Code)
	require.Equal(t, http.StatusSeeOther, post(srv, page+"/save", nil).Code)

	w := get(srv, page+"/artifact")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "serialized pipeline", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "best_model.pkl")
}

func TestUnknownSession(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{})

	assert.Equal(t, http.StatusNotFound, get(srv, "/sessions/not-a-session").Code)
	assert.Equal(t, http.StatusNotFound, get(srv, "/sessions/6f1c1c0e-7d43-4a7c-9a43-3c1f2e0a9b11").Code)
	assert.Equal(t, http.StatusNotFound, post(srv, "/sessions/6f1c1c0e-7d43-4a7c-9a43-3c1f2e0a9b11/compare", nil).Code)
}

func TestStepOutOfOrder(t *testing.T) {
	rec := automltest.New()
	srv := newServer(t, rec, nil, Options{})
	page := upload(t, srv)

	w := post(srv, page+"/compare", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "class=\"error\"")
	assert.Empty(t, rec.Ops())

	assert.Equal(t, http.StatusConflict, get(srv, page+"/artifact").Code)
}

func TestUnsupportedUpload(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{})

	w := serve(srv, uploadRequest(t, "notes.txt", "hello"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `name="dataset"`)
	assert.Empty(t, srv.Sessions().IDs())
}

func TestUploadTooLarge(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{MaxUploadBytes: 64})

	w := serve(srv, uploadRequest(t, "houses.csv", strings.Repeat(housesCSV, 10)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, srv.Sessions().IDs())
}

func TestSetupValidation(t *testing.T) {
	rec := automltest.New()
	srv := newServer(t, rec, nil, Options{})
	page := upload(t, srv)

	w := post(srv, page+"/setup", url.Values{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "target")

	w = post(srv, page+"/setup", url.Values{
		"target":                   {"sold"},
		"numeric_imputation":       {"value"},
		"numeric_imputation_value": {"lots"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	for _, raw := range []string{"inf", "NaN", "-Infinity"} {
		w = post(srv, page+"/setup", url.Values{
			"target":                   {"sold"},
			"numeric_imputation":       {"value"},
			"numeric_imputation_value": {raw},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, raw)
		assert.Contains(t, w.Body.String(), "finite", raw)
	}

	w = post(srv, page+"/setup", url.Values{"target": {"missing"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, rec.Ops())
}

func TestCollaboratorErrors(t *testing.T) {
	rec := automltest.New()
	srv := newServer(t, rec, nil, Options{})
	page := upload(t, srv)

	rec.Fail("setup", errors.Mark(errors.New("dial tcp: connection refused"), errors.ErrUnavailable))
	w := post(srv, page+"/setup", url.Values{"target": {"sold"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	rec.Fail("setup", errors.NewCollaboratorError("setup", http.StatusBadRequest, "target has a single class"))
	w = post(srv, page+"/setup", url.Values{"target": {"sold"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "single class")

	sess, err := srv.Sessions().Get(strings.TrimPrefix(page, "/sessions/"))
	require.NoError(t, err)
	assert.Equal(t, "Idle", sess.State().String())
}

func TestColumnChart(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{})
	page := upload(t, srv)

	w := get(srv, page+"/charts/column.png?name=price")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))

	assert.Equal(t, http.StatusUnprocessableEntity, get(srv, page+"/charts/column.png?name=city").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(srv, page+"/charts/column.png?name=nope").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(srv, page+"/charts/leaderboard.png").Code)
}

func TestReset(t *testing.T) {
	rec := automltest.New()
	srv := newServer(t, rec, nil, Options{})
	page := upload(t, srv)

	require.Equal(t, http.StatusSeeOther, post(srv, page+"/setup", url.Values{"target": {"sold"}}).Code)
	require.Equal(t, http.StatusSeeOther, post(srv, page+"/reset", nil).Code)
	assert.Equal(t, http.StatusConflict, post(srv, page+"/compare", nil).Code)
}

type panickingBackend struct{ experiment.Backend }

func (panickingBackend) Classification() experiment.Experiment { panic("backend exploded") }

func TestPanicIsInternalError(t *testing.T) {
	srv := newServer(t, panickingBackend{automltest.New()}, nil, Options{})
	page := upload(t, srv)

	w := post(srv, page+"/setup", url.Values{"target": {"sold"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "exploded")

	// the session is still usable
	w = post(srv, page+"/setup", url.Values{"target": {"sold"}, "problem_type": {"Regression"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestListenAndServeStops(t *testing.T) {
	srv := newServer(t, automltest.New(), nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.ListenAndServe(ctx, "127.0.0.1:0"))
}
