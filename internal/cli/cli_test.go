package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(c color.Color, n int) []image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = img
	}
	return frames
}

type env struct {
	dir string
	db  string
}

// setup writes placeholder video files, points the opener at synthetic frames
// and returns paths for a fresh database.
func setup(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()

	green := solid(color.RGBA{G: 255, A: 255}, 8)
	orange := solid(color.RGBA{R: 255, G: 165, A: 255}, 8)
	cuts := append(solid(color.RGBA{R: 255, A: 255}, 4), solid(color.RGBA{B: 255, A: 255}, 4)...)

	frames := map[string][]image.Image{
		filepath.Join(dir, "refs", "green.mp4"):  green,
		filepath.Join(dir, "refs", "orange.mp4"): orange,
		filepath.Join(dir, "clip.mp4"):           green[:5],
		filepath.Join(dir, "cuts.mp4"):           cuts,
	}
	for p := range frames {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}
	videoOpener = video.MemoryOpener(frames, 10)
	t.Cleanup(func() { videoOpener = nil })

	return env{dir: dir, db: filepath.Join(dir, "chroma.sqlite3")}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	base := []string{"--config", filepath.Join(e.dir, "none.yaml"), "--db", e.db}
	rootCmd.SetArgs(append(base, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestTrainMatchListDelete(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "train", filepath.Join(e.dir, "refs"))
	require.NoError(t, err)
	assert.Contains(t, out, "green")
	assert.Contains(t, out, "orange")

	out, err = e.run(t, "test", filepath.Join(e.dir, "clip.mp4"))
	require.NoError(t, err)
	assert.Contains(t, out, "Best match: green")
	assert.Contains(t, out, "100.0%")

	out, err = e.run(t, "list", "--signatures")
	require.NoError(t, err)
	assert.Contains(t, out, "2 indexed videos")
	assert.Contains(t, out, "hsv")

	out, err = e.run(t, "delete", "green")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted green")

	out, err = e.run(t, "match", filepath.Join(e.dir, "clip.mp4"))
	require.NoError(t, err)
	assert.Contains(t, out, "Best match: orange")
}

func TestMatchJSON(t *testing.T) {
	e := setup(t)
	_, err := e.run(t, "train", "-m", "rgb,hsv", filepath.Join(e.dir, "refs", "green.mp4"), filepath.Join(e.dir, "refs", "orange.mp4"))
	require.NoError(t, err)

	out, err := e.run(t, "test", "--json", "-m", "rgb,hsv", "--start", "1", "--end", "4", filepath.Join(e.dir, "clip.mp4"))
	require.NoError(t, err)

	var got matchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "green", got.VideoID)
	assert.Equal(t, 1.0, got.Accuracy)
	assert.Equal(t, 6.0, got.TotalVotes)
	assert.Equal(t, 1, got.StartFrame)
	assert.Equal(t, 4, got.EndFrame)
	assert.Equal(t, []string{"green"}, got.Ranking)
	require.Len(t, got.Models, 2)
	assert.Equal(t, "rgb", got.Models[0].Model)
}

func TestMatchEmptyDatabase(t *testing.T) {
	e := setup(t)

	_, err := e.run(t, "test", filepath.Join(e.dir, "clip.mp4"))
	assert.ErrorIs(t, err, chromadna.ErrNoCandidates)

	_, err = e.run(t, "test", "--skip-empty", filepath.Join(e.dir, "clip.mp4"))
	assert.ErrorIs(t, err, chromadna.ErrNoCandidates)
}

func TestSegmentJSON(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "segment", "--json", "-m", "rgb", filepath.Join(e.dir, "cuts.mp4"))
	require.NoError(t, err)

	var shots []shotOutput
	require.NoError(t, json.Unmarshal([]byte(out), &shots))
	require.Len(t, shots, 2)
	assert.Equal(t, 4, shots[1].StartFrame)
	assert.InDelta(t, 0.4, shots[1].StartSec, 1e-9)
}

type closeRecorder struct {
	chromadna.Storage
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.Storage.Close()
}

func TestPostgresStoreClosedWhenServiceFails(t *testing.T) {
	e := setup(t)
	store := &closeRecorder{Storage: chromadna.NewMemoryStorage()}
	openPostgres = func(context.Context, string) (chromadna.Storage, error) { return store, nil }
	t.Cleanup(func() { openPostgres = chromadna.NewPostgresStorage })

	_, err := e.run(t, "--postgres", "postgres://localhost/chroma", "--bins", "1000", "list")
	assert.ErrorIs(t, err, chromadna.ErrInvalidBins)
	assert.True(t, store.closed)

	store.closed = false
	_, err = e.run(t, "--postgres", "postgres://localhost/chroma", "list")
	require.NoError(t, err)
	assert.True(t, store.closed, "closed by the command once done")
}

func TestSegmentZeroThreshold(t *testing.T) {
	e := setup(t)

	speck := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			speck.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	speck.Set(0, 0, color.RGBA{R: 255, A: 255})
	frames := append(solid(color.RGBA{G: 255, A: 255}, 3), speck, speck)
	path := filepath.Join(e.dir, "speck.mp4")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	videoOpener = video.MemoryOpener(map[string][]image.Image{path: frames}, 10)

	out, err := e.run(t, "segment", "--json", "-m", "rgb", "-t", "0", path)
	require.NoError(t, err)
	var shots []shotOutput
	require.NoError(t, json.Unmarshal([]byte(out), &shots))
	require.Len(t, shots, 2)
	assert.Equal(t, 3, shots[1].StartFrame)

	out, err = e.run(t, "segment", "--json", "-m", "rgb", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &shots))
	assert.Len(t, shots, 1)
}

func TestTrainFailuresAreReported(t *testing.T) {
	e := setup(t)
	out, err := e.run(t, "train", filepath.Join(e.dir, "refs", "green.mp4"), filepath.Join(e.dir, "nope.mp4"))
	assert.Error(t, err)
	assert.Contains(t, out, "nope.mp4")

	out, err = e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1 indexed videos")
}

func TestArgumentErrors(t *testing.T) {
	e := setup(t)

	_, err := e.run(t, "train", "--name", "x", "a.mp4", "b.mp4")
	assert.Error(t, err)

	_, err = e.run(t, "test", "-m", "cmyk", filepath.Join(e.dir, "clip.mp4"))
	assert.ErrorIs(t, err, models.ErrUnknownColorModel)

	_, err = e.run(t, "test")
	assert.Error(t, err)

	_, err = e.run(t, "add-youtube", "https://example.com/watch?v=abc")
	assert.Error(t, err)
}

func TestFrameRangeFlag(t *testing.T) {
	rng, err := frameRangeFlag(-1, -1)
	require.NoError(t, err)
	assert.Nil(t, rng)

	rng, err = frameRangeFlag(-1, 20)
	require.NoError(t, err)
	assert.Equal(t, &models.FrameRange{Start: 0, End: 20}, rng)

	_, err = frameRangeFlag(5, -1)
	assert.Error(t, err)
}

func TestPick(t *testing.T) {
	assert.Equal(t, "flag", pick("flag", "cfg"))
	assert.Equal(t, "cfg", pick("", "cfg"))
	assert.Equal(t, 32, pick(0, 32))
}
