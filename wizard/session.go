// Package wizard drives one dataset through the AutoML steps
// setup, compare, optimize and save.
//
// A Session pairs an uploaded dataset with a Machine. Each step is a trigger;
// a step that fails leaves the session exactly as it was. Re-running setup
// discards everything computed after it.
package wizard

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/YuminosukeSato/caretstudio/artifact"
	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

// DefaultTopN is how many models compare keeps.
const DefaultTopN = 3

// DefaultModelName is the name the best model is saved under.
const DefaultModelName = "best_model"

// SetupRequest is what the options form submits.
type SetupRequest struct {
	Target string
	// Problem may be empty; it is then derived from the target's dtype.
	Problem experiment.ProblemType
	Config  experiment.Config
}

// Results is everything the wizard has produced so far. Fields past the
// current state are zero.
type Results struct {
	Target       string
	Problem      experiment.ProblemType
	Config       experiment.Config
	SetupSummary *experiment.ResultTable

	Top         []experiment.Model
	Leaderboard *experiment.ResultTable

	Metric experiment.Metric
	Tuned  []experiment.Model
	Blend  experiment.Model
	Stack  experiment.Model
	Best   experiment.Model

	Artifact *artifact.Manifest
}

// Session is one user's dataset and wizard.
type Session struct {
	ID       string
	Filename string
	Data     *dataset.Table
	Created  time.Time

	backend experiment.Backend
	store   *artifact.Store
	logger  log.Logger
	topN    int

	machine *Machine

	// guarded by machine
	exp     experiment.Experiment
	res     Results
	content []byte
}

// Option configures a Session.
type Option func(*Session)

// WithStore persists saved artifacts in store under the session ID.
func WithStore(store *artifact.Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithTopN sets how many models Compare keeps when called with n <= 0.
func WithTopN(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.topN = n
		}
	}
}

// NewSession starts a session in Idle.
func NewSession(id, filename string, data *dataset.Table, backend experiment.Backend, opts ...Option) *Session {
	s := &Session{
		ID:       id,
		Filename: filename,
		Data:     data,
		Created:  time.Now(),
		backend:  backend,
		logger:   log.GetLoggerWithName("wizard"),
		topN:     DefaultTopN,
		machine:  NewMachine(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(log.SessionIDKey, id)
	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.machine.State()
}

// Snapshot returns the state together with a copy of the results.
func (s *Session) Snapshot() (State, Results) {
	var (
		st  State
		res Results
	)
	s.machine.View(func(cur State) {
		st = cur
		res = s.res
		res.Top = append([]experiment.Model(nil), s.res.Top...)
		res.Tuned = append([]experiment.Model(nil), s.res.Tuned...)
	})
	return st, res
}

// Setup configures a new experiment. It is allowed in every state and
// discards earlier results.
func (s *Session) Setup(ctx context.Context, req SetupRequest) error {
	return s.fire(TriggerSetup, func(State) error {
		problem := req.Problem
		if problem == "" {
			p, err := experiment.ProblemTypeFor(s.Data, req.Target)
			if err != nil {
				return err
			}
			problem = p
		}

		exp, err := experiment.Setup(ctx, s.backend, s.Data, req.Target, problem, experiment.WithConfig(req.Config))
		if err != nil {
			return err
		}
		summary, err := exp.Pull(ctx)
		if err != nil {
			return err
		}

		s.exp = exp
		s.content = nil
		s.res = Results{
			Target:       req.Target,
			Problem:      problem,
			Config:       req.Config,
			SetupSummary: summary,
		}
		s.logger.Info("experiment configured",
			log.VariantKey, string(problem),
			log.TargetKey, req.Target,
		)
		return nil
	})
}

// Compare ranks candidate models and keeps the best n (the session's top-N
// when n <= 0).
func (s *Session) Compare(ctx context.Context, n int) error {
	if n <= 0 {
		n = s.topN
	}
	return s.fire(TriggerCompare, func(State) error {
		top, err := s.exp.CompareModels(ctx, n)
		if err != nil {
			return err
		}
		if len(top) == 0 {
			return errors.WithStack(errors.ErrNoModels)
		}
		board, err := s.exp.Pull(ctx)
		if err != nil {
			return err
		}

		s.clearFrom(Compared)
		s.res.Top = top
		s.res.Leaderboard = board
		s.logger.Info("models compared", log.ModelCountKey, len(top))
		return nil
	})
}

// Optimize tunes every compared model, blends and stacks the tuned set and
// lets the service pick the best model by metric. An empty metric uses the
// problem type's default.
func (s *Session) Optimize(ctx context.Context, metric experiment.Metric) error {
	return s.fire(TriggerOptimize, func(State) error {
		if metric == "" {
			metric = experiment.DefaultMetric(s.res.Problem)
		}

		tuned := make([]experiment.Model, 0, len(s.res.Top))
		for _, m := range s.res.Top {
			t, err := s.exp.TuneModel(ctx, m)
			if err != nil {
				return err
			}
			tuned = append(tuned, t)
		}
		blend, err := s.exp.BlendModels(ctx, tuned)
		if err != nil {
			return err
		}
		stack, err := s.exp.StackModels(ctx, tuned)
		if err != nil {
			return err
		}
		best, err := s.exp.AutoML(ctx, metric)
		if err != nil {
			return err
		}

		s.clearFrom(Optimized)
		s.res.Metric = metric
		s.res.Tuned = tuned
		s.res.Blend = blend
		s.res.Stack = stack
		s.res.Best = best
		s.logger.Info("best model selected",
			log.MetricKey, string(metric),
			log.ModelIDKey, best.ID,
			log.ModelNameKey, best.Name,
		)
		return nil
	})
}

// Save persists the best model under name (DefaultModelName when empty).
func (s *Session) Save(ctx context.Context, name string) error {
	if name == "" {
		name = DefaultModelName
	}
	return s.fire(TriggerSave, func(State) error {
		art, err := s.exp.SaveModel(ctx, s.res.Best, name)
		if err != nil {
			return err
		}

		manifest := &artifact.Manifest{
			Key:       s.ID,
			Name:      art.Name,
			Variant:   s.res.Problem,
			ModelID:   art.Model.ID,
			ModelName: art.Model.Name,
			Metric:    s.res.Metric,
			Size:      int64(len(art.Content)),
			Created:   time.Now().UTC(),
		}
		if s.store != nil {
			manifest, err = s.store.Save(s.ID, s.res.Problem, s.res.Metric, art)
			if err != nil {
				return err
			}
			s.content = nil
		} else {
			s.content = art.Content
		}

		s.res.Artifact = manifest
		s.logger.Info("model saved",
			log.ArtifactKey, manifest.Name,
			log.SizeKey, manifest.Size,
		)
		return nil
	})
}

// Reset returns to Idle, drops the experiment and removes a stored
// artifact.
func (s *Session) Reset() error {
	return s.fire(TriggerReset, func(State) error {
		// A re-run setup clears the results but not the file a previous
		// Save left in the store.
		if s.store != nil {
			if err := s.store.Delete(s.ID); err != nil {
				return err
			}
		}
		s.exp = nil
		s.content = nil
		s.res = Results{}
		return nil
	})
}

// Artifact opens the saved model. It fails unless the session is Saved.
func (s *Session) Artifact() (io.ReadCloser, *artifact.Manifest, error) {
	var (
		rc  io.ReadCloser
		m   *artifact.Manifest
		err error
	)
	s.machine.View(func(st State) {
		if st != Saved {
			err = errors.NewInvalidTransitionError(st.String(), "download")
			return
		}
		if s.store != nil {
			rc, m, err = s.store.Open(s.ID)
			return
		}
		rc, m = io.NopCloser(bytes.NewReader(s.content)), s.res.Artifact
	})
	return rc, m, err
}

// clearFrom zeroes the results produced by st and every later state.
func (s *Session) clearFrom(st State) {
	if st <= Compared {
		s.res.Top = nil
		s.res.Leaderboard = nil
	}
	if st <= Optimized {
		s.res.Metric = ""
		s.res.Tuned = nil
		s.res.Blend = experiment.Model{}
		s.res.Stack = experiment.Model{}
		s.res.Best = experiment.Model{}
	}
	s.res.Artifact = nil
	s.content = nil
}

func (s *Session) fire(t Trigger, fn func(State) error) error {
	start := time.Now()
	if err := s.machine.Fire(t, fn); err != nil {
		s.logger.Warn("wizard step failed", err,
			log.TriggerKey, string(t),
			log.StateKey, s.machine.State().String(),
		)
		return err
	}
	s.logger.Debug("wizard transition",
		log.TriggerKey, string(t),
		log.StateKey, transitions[t].to.String(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}
