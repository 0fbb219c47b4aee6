package shots

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func sequence(colors ...color.Color) *video.MemoryReader {
	frames := make([]image.Image, len(colors))
	for i, c := range colors {
		frames[i] = solid(c)
	}
	return video.NewMemoryReader(frames, 10)
}

var (
	red    = color.RGBA{R: 255, A: 255}
	blue   = color.RGBA{B: 255, A: 255}
	yellow = color.RGBA{R: 255, G: 255, A: 255}
)

func TestDetect_RedThenBlue(t *testing.T) {
	r := sequence(red, red, red, red, red, blue, blue, blue, blue, blue)

	// red vs blue chi-square: 2 in gray, 4/3 in rgb, 2/3 in hsv
	for _, m := range models.AllColorModels {
		got, err := Detect(r, m, 16, histogram.ChiSquare, 0.5)
		require.NoError(t, err)
		assert.Equal(t, []int{5}, got, "model %s", m)
	}
}

func TestDetect_NoCuts(t *testing.T) {
	r := sequence(red, red, red)
	got, err := Detect(r, models.RGB, 16, histogram.ChiSquare, 0.1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_ThresholdControlsSensitivity(t *testing.T) {
	r := sequence(red, blue, red, red)

	got, err := Detect(r, models.HSV, 16, histogram.ChiSquare, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)

	got, err = Detect(r, models.HSV, 16, histogram.ChiSquare, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_Monotonic(t *testing.T) {
	colors := []color.Color{red, blue, yellow, yellow, red, red, blue, yellow, red, blue, blue}
	r := sequence(colors...)

	got, err := Detector{Model: models.RGB, Metric: histogram.Bhattacharyya, Threshold: 0.2}.Detect(r)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	for i, b := range got {
		assert.GreaterOrEqual(t, b, 1)
		assert.LessOrEqual(t, b, len(colors)-1)
		if i > 0 {
			assert.Greater(t, b, got[i-1])
		}
	}
}

func TestDetect_InvalidFrame(t *testing.T) {
	r := video.NewMemoryReader([]image.Image{solid(red), nil}, 10)
	_, err := Detect(r, models.RGB, 16, histogram.ChiSquare, 0.5)
	assert.ErrorIs(t, err, histogram.ErrInvalidFrame)
}

func TestSplit(t *testing.T) {
	shots := Split([]int{5}, 10, 10)
	require.Len(t, shots, 2)
	assert.Equal(t, models.Shot{Index: 0, StartFrame: 0, EndFrame: 5, Start: 0, End: 500 * time.Millisecond}, shots[0])
	assert.Equal(t, models.Shot{Index: 1, StartFrame: 5, EndFrame: 10, Start: 500 * time.Millisecond, End: time.Second}, shots[1])

	shots = Split(nil, 3, 0)
	require.Len(t, shots, 1)
	assert.Equal(t, 3, shots[0].EndFrame)
	assert.Zero(t, shots[0].End)

	assert.Nil(t, Split([]int{1}, 0, 30))
}
