// Package artifact keeps saved model artifacts on disk.
//
// Each key (a session ID, or the experiment name for headless runs) owns one
// directory holding the artifact bytes under their fixed name and a
// gob-encoded Manifest. Saving again replaces both.
package artifact

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

const manifestFile = "manifest.gob"

// Manifest describes a stored artifact.
type Manifest struct {
	Key       string
	Name      string
	Variant   experiment.ProblemType
	ModelID   string
	ModelName string
	Metric    experiment.Metric
	Size      int64
	Created   time.Time
}

// Store is a directory of artifacts.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "artifact: create store %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Save writes a under key and returns its manifest.
func (s *Store) Save(key string, variant experiment.ProblemType, metric experiment.Metric, a *experiment.Artifact) (*Manifest, error) {
	if err := checkName("key", key); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errors.NewValueError("artifact.Save", "nil artifact")
	}
	name := filepath.Base(a.Name)
	if err := checkName("name", name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dir, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "artifact: create %s", dir)
	}

	m := &Manifest{
		Key:       key,
		Name:      name,
		Variant:   variant,
		ModelID:   a.Model.ID,
		ModelName: a.Model.Name,
		Metric:    metric,
		Size:      int64(len(a.Content)),
		Created:   time.Now().UTC(),
	}

	if prev, err := s.load(key); err == nil && prev.Name != name {
		_ = os.Remove(filepath.Join(dir, prev.Name))
	}
	if err := writeFile(filepath.Join(dir, name), func(w io.Writer) error {
		_, err := w.Write(a.Content)
		return err
	}); err != nil {
		return nil, err
	}
	if err := writeFile(filepath.Join(dir, manifestFile), func(w io.Writer) error {
		return WriteManifest(m, w)
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// Load returns the manifest stored under key. A missing key yields an error
// matching fs.ErrNotExist.
func (s *Store) Load(key string) (*Manifest, error) {
	if err := checkName("key", key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(key)
}

func (s *Store) load(key string) (*Manifest, error) {
	f, err := os.Open(filepath.Join(s.dir, key, manifestFile))
	if err != nil {
		return nil, errors.Wrapf(err, "artifact: load %s", key)
	}
	defer f.Close()
	return ReadManifest(f)
}

// Open returns the artifact bytes stored under key with their manifest.
// The caller closes the reader.
func (s *Store) Open(key string) (io.ReadCloser, *Manifest, error) {
	m, err := s.Load(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, key, m.Name))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "artifact: open %s/%s", key, m.Name)
	}
	return f, m, nil
}

// Delete removes everything stored under key.
func (s *Store) Delete(key string) error {
	if err := checkName("key", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrapf(os.RemoveAll(filepath.Join(s.dir, key)), "artifact: delete %s", key)
}

// WriteManifest gob-encodes m to w.
func WriteManifest(m *Manifest, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "artifact: encode manifest")
	}
	return nil
}

// ReadManifest decodes a manifest written by WriteManifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "artifact: decode manifest")
	}
	return &m, nil
}

// writeFile writes through a temporary file and renames it into place.
func writeFile(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "artifact: create %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "artifact: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "artifact: write %s", path)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "artifact: rename %s", path)
}

func checkName(param, s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || s == manifestFile {
		return errors.NewValidationError(param, "must be a plain file name", s)
	}
	return nil
}
