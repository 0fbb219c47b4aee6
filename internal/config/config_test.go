package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Match, cfg.Match)
	assert.Equal(t, 1, cfg.Index.Workers)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromadna.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /data/ref.sqlite3
match:
  models: [hsv]
  bins: 32
  weights:
    hsv: 2
segment:
  threshold: 0.8
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/ref.sqlite3", cfg.DBPath)
	assert.Equal(t, []string{"hsv"}, cfg.Match.Models)
	assert.Equal(t, 32, cfg.Match.Bins)
	assert.Equal(t, "chisquare", cfg.Match.Metric)
	assert.Equal(t, 2.0, cfg.Match.Weights["hsv"])
	assert.Equal(t, 0.8, cfg.Segment.Threshold)
	assert.Equal(t, "hsv", cfg.Segment.Model)
}

func TestLoad_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromadna.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: from-file.db\n"), 0644))

	t.Setenv("CHROMA_DB_PATH", "from-env.db")
	t.Setenv("CHROMA_WORKERS", "4")
	t.Setenv("CHROMA_POSTGRES_URL", "postgres://localhost/chroma")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DBPath)
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.Equal(t, "postgres://localhost/chroma", cfg.PostgresURL)
}

func TestLoad_BadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromadna.yaml")
	require.NoError(t, os.WriteFile(path, []byte("match: [not, a, map"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	t.Setenv("CHROMA_WORKERS", "many")
	_, err = Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Segment.Threshold = 1.25
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.25, loaded.Segment.Threshold)
}

func TestModelWeights(t *testing.T) {
	m := MatchConfig{Weights: map[string]float64{"HSV": 2, "gray": 0.5}}
	w, err := m.ModelWeights()
	require.NoError(t, err)
	assert.Equal(t, map[models.ColorModel]float64{models.HSV: 2, models.Grayscale: 0.5}, w)

	m.Weights["cmyk"] = 1
	_, err = m.ModelWeights()
	assert.ErrorIs(t, err, models.ErrUnknownColorModel)
}
