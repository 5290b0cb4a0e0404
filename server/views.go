package server

import (
	"bytes"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"github.com/YuminosukeSato/caretstudio/artifact"
	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/report"
	"github.com/YuminosukeSato/caretstudio/wizard"
)

var templateFuncs = template.FuncMap{
	"has": func(list []string, s string) bool {
		for _, v := range list {
			if v == s {
				return true
			}
		}
		return false
	},
	"join": strings.Join,
}

type indexView struct {
	Error   string
	Formats string
}

func formats() string {
	return strings.Join(dataset.Extensions, ", ")
}

type sessionView struct {
	ID       string
	Filename string
	Error    string
	Rows     int
	Cols     int

	Preview  report.Grid
	Info     report.Grid
	Describe report.Grid

	Columns        []string
	NumericColumns []string

	State       string
	CanCompare  bool
	CanOptimize bool
	CanSave     bool
	CanDownload bool

	Form       setupFormView
	ShowSetup  bool
	Target     string
	Problem    experiment.ProblemType
	Summary    report.Grid
	Board      report.Grid
	Top        []experiment.Model
	Tuned      []experiment.Model
	Blend      experiment.Model
	Stack      experiment.Model
	Best       experiment.Model
	Metric     experiment.Metric
	TopN       int
	Artifact   *artifact.Manifest
	Metrics    []experiment.Metric
	MetricPick experiment.Metric
}

// setupFormView prefills the options form from the last configuration.
type setupFormView struct {
	Target                string
	Problem               string
	Numeric               string
	NumericValue          string
	Categorical           string
	CategoricalValue      string
	Config                experiment.Config
	OrdinalColumns        []string
	NumericStrategies     []experiment.NumericStrategy
	CategoricalStrategies []experiment.CategoricalStrategy
	OutlierMethods        []experiment.OutlierMethod
}

func (s *Server) sessionView(sess *wizard.Session, msg string) sessionView {
	st, res := sess.Snapshot()
	rows, cols := sess.Data.Shape()

	v := sessionView{
		ID:          sess.ID,
		Filename:    sess.Filename,
		Error:       msg,
		Rows:        rows,
		Cols:        cols,
		Preview:     report.Preview(sess.Data, s.opts.PreviewRows),
		Info:        report.ColumnInfo(sess.Data),
		Describe:    report.Describe(sess.Data.Describe()),
		Columns:     sess.Data.Columns(),
		State:       st.String(),
		CanCompare:  wizard.Allowed(st, wizard.TriggerCompare),
		CanOptimize: wizard.Allowed(st, wizard.TriggerOptimize),
		CanSave:     wizard.Allowed(st, wizard.TriggerSave),
		CanDownload: st == wizard.Saved,
		ShowSetup:   st != wizard.Idle,
		Target:      res.Target,
		Problem:     res.Problem,
		Summary:     report.FromResult(res.SetupSummary),
		Board:       report.Leaderboard(res.Leaderboard),
		Top:         res.Top,
		Tuned:       res.Tuned,
		Blend:       res.Blend,
		Stack:       res.Stack,
		Best:        res.Best,
		Metric:      res.Metric,
		TopN:        s.opts.TopN,
		Artifact:    res.Artifact,
		Metrics:     experiment.Metrics,
		MetricPick:  res.Metric,
	}
	if v.TopN <= 0 {
		v.TopN = wizard.DefaultTopN
	}
	if v.MetricPick == "" {
		v.MetricPick = experiment.DefaultMetric(res.Problem)
	}
	for _, c := range sess.Data.ColumnInfo() {
		if c.DType.IsNumeric() {
			v.NumericColumns = append(v.NumericColumns, c.Column)
		}
	}

	cfg := res.Config
	if st == wizard.Idle {
		cfg = experiment.DefaultConfig()
	}
	v.Form = setupFormView{
		Target:                res.Target,
		Problem:               string(res.Problem),
		Config:                cfg,
		NumericStrategies:     experiment.NumericStrategies,
		CategoricalStrategies: experiment.CategoricalStrategies,
		OutlierMethods:        experiment.OutlierMethods,
	}
	if n, ok := cfg.NumericImputation.Value(); ok {
		v.Form.Numeric = literalChoice
		v.Form.NumericValue = report.FormatCell(n)
	} else {
		v.Form.Numeric = cfg.NumericImputation.String()
	}
	if c, ok := cfg.CategoricalImputation.Value(); ok {
		v.Form.Categorical = literalChoice
		v.Form.CategoricalValue = c
	} else {
		v.Form.Categorical = cfg.CategoricalImputation.String()
		v.Form.CategoricalValue = "missing"
	}
	for col := range cfg.OrdinalFeatures {
		v.Form.OrdinalColumns = append(v.Form.OrdinalColumns, col)
	}
	sort.Strings(v.Form.OrdinalColumns)
	return v
}

// render executes a template into a buffer and writes status and page only
// when execution succeeded.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "server: render %s", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
