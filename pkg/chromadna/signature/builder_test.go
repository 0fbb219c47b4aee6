package signature

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

var (
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
)

func redBlueReader() *video.MemoryReader {
	frames := []image.Image{solid(red), solid(red), solid(blue), solid(blue)}
	return video.NewMemoryReader(frames, 30)
}

func TestBuild_Sequence(t *testing.T) {
	b := NewBuilder(8)
	r := redBlueReader()

	sig, err := b.Build(r, "q", models.RGB, models.FrameRange{Start: 1, End: 3}, ModeSequence)
	require.NoError(t, err)

	assert.Equal(t, "q", sig.VideoID)
	assert.Equal(t, models.RGB, sig.Model)
	assert.Equal(t, 8, sig.Bins)
	assert.Equal(t, models.FrameRange{Start: 1, End: 3}, sig.Range)
	assert.Nil(t, sig.Average)
	require.Len(t, sig.Frames, 2)

	wantRed, err := histogram.Extract(solid(red), models.RGB, 8)
	require.NoError(t, err)
	wantBlue, err := histogram.Extract(solid(blue), models.RGB, 8)
	require.NoError(t, err)
	assert.Equal(t, wantRed, sig.Frames[0])
	assert.Equal(t, wantBlue, sig.Frames[1])
}

func TestBuild_Average(t *testing.T) {
	b := NewBuilder(8)
	r := redBlueReader()

	sig, err := b.Build(r, "v", models.Grayscale, models.FrameRange{Start: 0, End: 4}, ModeAverage)
	require.NoError(t, err)
	assert.Nil(t, sig.Frames)
	require.Len(t, sig.Average, 8)
	assert.InDelta(t, 1.0, sig.Average.Sum(), 1e-9)

	redDesc, err := histogram.Extract(solid(red), models.Grayscale, 8)
	require.NoError(t, err)
	blueDesc, err := histogram.Extract(solid(blue), models.Grayscale, 8)
	require.NoError(t, err)
	for i := range sig.Average {
		assert.InDelta(t, (redDesc[i]+blueDesc[i])/2, sig.Average[i], 1e-12)
	}
}

func TestBuild_EmptyRange(t *testing.T) {
	b := NewBuilder(8)
	r := redBlueReader()

	ranges := []models.FrameRange{
		{Start: 2, End: 2},
		{Start: 3, End: 1},
		{Start: -1, End: 2},
		{Start: 0, End: 5},
	}
	for _, rng := range ranges {
		_, err := b.Build(r, "v", models.RGB, rng, ModeAverage)
		assert.ErrorIs(t, err, ErrEmptyRange, "range %v", rng)
	}
}

// truncatedReader claims more frames than it can decode.
type truncatedReader struct {
	*video.MemoryReader
	claimed int
}

func (t truncatedReader) FrameCount() int { return t.claimed }

func TestBuild_StreamEndsEarly(t *testing.T) {
	b := NewBuilder(4)

	short := truncatedReader{MemoryReader: redBlueReader(), claimed: 10}
	sig, err := b.Build(short, "v", models.HSV, models.FrameRange{Start: 2, End: 10}, ModeSequence)
	require.NoError(t, err)
	assert.Equal(t, models.FrameRange{Start: 2, End: 4}, sig.Range)
	assert.Len(t, sig.Frames, 2)

	_, err = b.Build(short, "v", models.HSV, models.FrameRange{Start: 6, End: 10}, ModeSequence)
	assert.ErrorIs(t, err, ErrEmptyRange)
}

func TestBuild_InvalidFrame(t *testing.T) {
	b := NewBuilder(4)
	frames := []image.Image{solid(red), image.NewRGBA(image.Rect(0, 0, 0, 0))}
	r := video.NewMemoryReader(frames, 30)

	_, err := b.Build(r, "v", models.RGB, models.FrameRange{Start: 0, End: 2}, ModeAverage)
	assert.ErrorIs(t, err, histogram.ErrInvalidFrame)
}

func TestResolveRange(t *testing.T) {
	ctx := context.Background()
	r := redBlueReader()

	rng, err := ResolveRange(ctx, r, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.FrameRange{Start: 0, End: 4}, rng)

	explicit := models.FrameRange{Start: 1, End: 2}
	calls := 0
	sel := video.SelectorFunc(func(context.Context, video.Reader) (models.FrameRange, error) {
		calls++
		return models.FrameRange{Start: 0, End: 3}, nil
	})

	rng, err = ResolveRange(ctx, r, &explicit, sel)
	require.NoError(t, err)
	assert.Equal(t, explicit, rng)
	assert.Zero(t, calls, "selector must not run when a range is supplied")

	rng, err = ResolveRange(ctx, r, nil, sel)
	require.NoError(t, err)
	assert.Equal(t, models.FrameRange{Start: 0, End: 3}, rng)
	assert.Equal(t, 1, calls)

	_, err = ResolveRange(ctx, r, &models.FrameRange{Start: 3, End: 3}, nil)
	assert.ErrorIs(t, err, ErrEmptyRange)

	boom := errors.New("cancelled by user")
	_, err = ResolveRange(ctx, r, nil, video.SelectorFunc(func(context.Context, video.Reader) (models.FrameRange, error) {
		return models.FrameRange{}, boom
	}))
	assert.ErrorIs(t, err, boom)
}

func TestResolvedRangeAlignsColorModels(t *testing.T) {
	b := NewBuilder(8)
	r := video.NewMemoryReader([]image.Image{solid(green), solid(red), solid(blue), solid(green), solid(red)}, 30)

	rng, err := ResolveRange(context.Background(), r, nil, video.FixedRange{Start: 1, End: 4})
	require.NoError(t, err)

	for _, m := range models.AllColorModels {
		sig, err := b.Build(r, "q", m, rng, ModeSequence)
		require.NoError(t, err)
		assert.Equal(t, rng, sig.Range, "model %s", m)
		assert.Len(t, sig.Frames, 3, "model %s", m)
	}
}
