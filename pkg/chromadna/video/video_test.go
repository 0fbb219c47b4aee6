package video

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blankFrames(n int) []image.Image {
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = image.NewRGBA(image.Rect(0, 0, 2, 2))
	}
	return frames
}

func TestMemoryReader_ReadFrames(t *testing.T) {
	r := NewMemoryReader(blankFrames(5), 25)
	assert.Equal(t, 5, r.FrameCount())
	assert.Equal(t, 25.0, r.FPS())

	var seen []int
	err := r.ReadFrames(1, 4, func(i int, _ image.Image) error {
		seen = append(seen, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)

	// end beyond the stream stops at the last frame
	seen = nil
	require.NoError(t, r.ReadFrames(3, 99, func(i int, _ image.Image) error {
		seen = append(seen, i)
		return nil
	}))
	assert.Equal(t, []int{3, 4}, seen)

	stop := errors.New("stop")
	err = r.ReadFrames(0, 5, func(i int, _ image.Image) error { return stop })
	assert.ErrorIs(t, err, stop)

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.ReadFrames(0, 1, func(int, image.Image) error { return nil }), ErrClosed)
}

func TestMemoryOpener(t *testing.T) {
	open := MemoryOpener(map[string][]image.Image{"a.mp4": blankFrames(3)}, 0)

	r, err := open("a.mp4")
	require.NoError(t, err)
	assert.Equal(t, 3, r.FrameCount())
	assert.Equal(t, 30.0, r.FPS())

	_, err = open("missing.mp4")
	assert.Error(t, err)
}

func TestSelectors(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryReader(blankFrames(100), 10)

	rng, err := WholeVideo{}.SelectRange(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, models.FrameRange{Start: 0, End: 100}, rng)

	rng, err = FixedRange{Start: 5, End: 9}.SelectRange(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, models.FrameRange{Start: 5, End: 9}, rng)

	rng, err = SecondsRange{From: 2 * time.Second, To: 3500 * time.Millisecond}.SelectRange(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, models.FrameRange{Start: 20, End: 35}, rng)

	rng, err = SecondsRange{From: time.Second}.SelectRange(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, models.FrameRange{Start: 10, End: 100}, rng)

	calls := 0
	sel := SelectorFunc(func(context.Context, Reader) (models.FrameRange, error) {
		calls++
		return models.FrameRange{Start: 1, End: 2}, nil
	})
	rng, err = sel.SelectRange(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rng.Len())
}

func TestFFmpegStabilizer_ReusesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	s := NewFFmpegStabilizer(dir)
	// a missing binary proves ffmpeg is never invoked
	s.FFmpegPath = filepath.Join(dir, "no-such-ffmpeg")

	out := s.OutputPath("/recordings/recording1.mp4")
	assert.Equal(t, filepath.Join(dir, "recording1_stable.mp4"), out)
	require.NoError(t, os.WriteFile(out, []byte("stable"), 0o644))

	got, err := s.Stabilize(context.Background(), "/recordings/recording1.mp4")
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestFFmpegStabilizer_CustomExistenceQuery(t *testing.T) {
	dir := t.TempDir()
	s := NewFFmpegStabilizer(dir)
	s.FFmpegPath = filepath.Join(dir, "no-such-ffmpeg")

	var asked []string
	s.Exists = func(path string) bool {
		asked = append(asked, path)
		return false
	}

	_, err := s.Stabilize(context.Background(), "clip.mp4")
	assert.Error(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "clip_stable.mp4")}, asked)
}
