package artifact

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

func bestModel() *experiment.Artifact {
	return &experiment.Artifact{
		Name:    "best_model.pkl",
		Model:   experiment.Model{ID: "blend", Name: "Voting Classifier"},
		Content: []byte("pipeline"),
	}
}

func TestSaveAndOpen(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)

	m, err := store.Save("session-1", experiment.Classification, experiment.AUC, bestModel())
	require.NoError(t, err)
	assert.Equal(t, "best_model.pkl", m.Name)
	assert.Equal(t, int64(8), m.Size)
	assert.Equal(t, "blend", m.ModelID)
	assert.False(t, m.Created.IsZero())

	loaded, err := store.Load("session-1")
	require.NoError(t, err)
	assert.Equal(t, m.Name, loaded.Name)
	assert.Equal(t, experiment.Classification, loaded.Variant)
	assert.Equal(t, experiment.AUC, loaded.Metric)
	assert.True(t, m.Created.Equal(loaded.Created))

	rc, om, err := store.Open("session-1")
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("pipeline"), content)
	assert.Equal(t, "Voting Classifier", om.ModelName)
}

func TestSaveReplacesPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Save("s", experiment.Regression, experiment.R2, bestModel())
	require.NoError(t, err)

	second := bestModel()
	second.Name = "final.pkl"
	second.Content = []byte("v2")
	_, err = store.Save("s", experiment.Regression, experiment.R2, second)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "s", "best_model.pkl"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	rc, m, err := store.Open("s")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "final.pkl", m.Name)
	assert.Equal(t, []byte("v2"), b)
}

func TestLoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nobody")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRejectsPathNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		_, err := store.Save(key, experiment.Regression, experiment.R2, bestModel())
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "key %q", key)
	}

	a := bestModel()
	a.Name = "../../etc/passwd"
	m, err := store.Save("ok", experiment.Regression, experiment.R2, a)
	require.NoError(t, err)
	assert.Equal(t, "passwd", m.Name)
}

func TestDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("s", experiment.Classification, experiment.Accuracy, bestModel())
	require.NoError(t, err)

	require.NoError(t, store.Delete("s"))
	_, err = store.Load("s")
	assert.Error(t, err)
}

func TestManifestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	m := &Manifest{Key: "k", Name: "n.pkl", Variant: experiment.Regression, Size: 3}
	require.NoError(t, WriteManifest(m, &buf))

	got, err := ReadManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = ReadManifest(bytes.NewReader([]byte("garbage")))
	assert.Error(t, err)
}
