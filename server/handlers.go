package server

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
	"github.com/YuminosukeSato/caretstudio/report"
	"github.com/YuminosukeSato/caretstudio/wizard"
)

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	_, err := io.WriteString(w, `{"status":"ok"}`)
	return err
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) error {
	return s.render(w, http.StatusOK, "index.html", indexView{Formats: formats()})
}

// upload loads the posted dataset and starts a session for it.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) error {
	if r.ContentLength > s.opts.MaxUploadBytes {
		return errors.WithStack(&http.MaxBytesError{Limit: s.opts.MaxUploadBytes})
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.WithStack(err)
		}
		return errors.NewValidationError("dataset", "upload a file", err.Error())
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("dataset")
	if err != nil {
		return errors.NewValidationError("dataset", "upload a file", err.Error())
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	data, err := dataset.Load(name, file)
	if err != nil {
		return err
	}

	id := NewID()
	logger := s.logger.With(log.SessionIDKey, id)
	sess := wizard.NewSession(id, name, data, s.backend,
		wizard.WithStore(s.store),
		wizard.WithTopN(s.opts.TopN),
		wizard.WithLogger(s.opts.Logger),
	)
	for _, old := range s.sessions.Add(sess) {
		s.logger.Info("session evicted", log.SessionIDKey, old)
	}

	rows, cols := data.Shape()
	logger.Info("dataset uploaded",
		log.FilenameKey, name,
		log.SizeKey, header.Size,
		log.RowsKey, rows,
		log.ColumnsKey, cols,
	)
	http.Redirect(w, r, "/sessions/"+id, http.StatusSeeOther)
	return nil
}

func (s *Server) session(r *http.Request) (*wizard.Session, error) {
	return s.sessions.Get(r.PathValue("id"))
}

func (s *Server) show(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	return s.render(w, http.StatusOK, "session.html", s.sessionView(sess, ""))
}

// step runs one wizard trigger and redirects back to the session page.
func (s *Server) step(w http.ResponseWriter, r *http.Request, fn func(*wizard.Session) error) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	if err := fn(sess); err != nil {
		return err
	}
	http.Redirect(w, r, "/sessions/"+sess.ID, http.StatusSeeOther)
	return nil
}

func (s *Server) setup(w http.ResponseWriter, r *http.Request) error {
	return s.step(w, r, func(sess *wizard.Session) error {
		req, err := parseSetupForm(r, sess.Data)
		if err != nil {
			return err
		}
		return sess.Setup(r.Context(), req)
	})
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) error {
	return s.step(w, r, func(sess *wizard.Session) error {
		n, err := intValue(r, "n_select")
		if err != nil {
			return err
		}
		return sess.Compare(r.Context(), n)
	})
}

func (s *Server) optimize(w http.ResponseWriter, r *http.Request) error {
	return s.step(w, r, func(sess *wizard.Session) error {
		var metric experiment.Metric
		if v := r.PostFormValue("optimize"); v != "" {
			m, err := experiment.ParseMetric(v)
			if err != nil {
				return err
			}
			metric = m
		}
		return sess.Optimize(r.Context(), metric)
	})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) error {
	return s.step(w, r, func(sess *wizard.Session) error {
		name := r.PostFormValue("name")
		if name != "" && filepath.Base(name) != name {
			return errors.NewValidationError("name", "must be a plain file name", name)
		}
		return sess.Save(r.Context(), name)
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) error {
	return s.step(w, r, func(sess *wizard.Session) error {
		return sess.Reset()
	})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	rc, m, err := sess.Artifact()
	if err != nil {
		return err
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": m.Name}))
	_, err = io.Copy(w, rc)
	return err
}

func (s *Server) leaderboardChart(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	_, res := sess.Snapshot()
	if res.Leaderboard == nil {
		return errors.WithStack(errors.ErrNoModels)
	}

	metric := res.Metric
	if v := r.URL.Query().Get("metric"); v != "" {
		if metric, err = experiment.ParseMetric(v); err != nil {
			return err
		}
	}
	if metric == "" {
		metric = experiment.DefaultMetric(res.Problem)
	}

	var buf bytes.Buffer
	if err := report.LeaderboardChart(&buf, res.Leaderboard, metric); err != nil {
		return err
	}
	return writePNG(w, &buf)
}

func (s *Server) columnChart(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	name := r.URL.Query().Get("name")
	col, ok := sess.Data.Column(name)
	if !ok {
		return errors.NewColumnNotFoundError("column chart", name)
	}

	var buf bytes.Buffer
	if err := report.HistogramChart(&buf, col); err != nil {
		return err
	}
	return writePNG(w, &buf)
}

func writePNG(w http.ResponseWriter, buf *bytes.Buffer) error {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, err := buf.WriteTo(w)
	return err
}
