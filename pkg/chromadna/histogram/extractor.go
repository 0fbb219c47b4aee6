package histogram

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultBins = 16
	MaxBins     = 256
)

var (
	// ErrInvalidFrame is returned for a nil or zero-area frame, or a frame whose
	// channel layout the decoder could not map to a color image.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrInvalidBins is returned when the bin count is outside [1, MaxBins].
	ErrInvalidBins = errors.New("invalid bin count")
)

// Extract computes the normalized color histogram of frame under model.
//
// Every channel is binned independently into bins buckets and the channel
// histograms are concatenated in channel order (R,G,B or H,S,V). The result is
// divided by the total number of samples so it sums to 1 regardless of frame
// size or channel count.
func Extract(frame image.Image, model models.ColorModel, bins int) (models.Descriptor, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if bins < 1 || bins > MaxBins {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBins, bins)
	}
	channels := model.Channels()
	if channels == 0 {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownColorModel, model)
	}

	bounds := frame.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrInvalidFrame, bounds)
	}

	counts := make([]uint64, channels*bins)
	var values [3]float64

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			channelValues(frame.At(x, y), model, &values)
			for ch := 0; ch < channels; ch++ {
				counts[ch*bins+binIndex(values[ch], bins)]++
			}
		}
	}

	total := float64(bounds.Dx() * bounds.Dy() * channels)
	desc := make(models.Descriptor, len(counts))
	for i, c := range counts {
		desc[i] = float64(c) / total
	}
	return desc, nil
}

// channelValues writes the channel values of c in [0,1) into out.
func channelValues(c color.Color, model models.ColorModel, out *[3]float64) {
	switch model {
	case models.Grayscale:
		g := color.GrayModel.Convert(c).(color.Gray)
		out[0] = float64(g.Y) / 256.0
	case models.RGB:
		r, g, b, _ := c.RGBA()
		out[0] = float64(r>>8) / 256.0
		out[1] = float64(g>>8) / 256.0
		out[2] = float64(b>>8) / 256.0
	case models.HSV:
		r, g, b, _ := c.RGBA()
		cf := colorful.Color{
			R: float64(r) / 65535.0,
			G: float64(g) / 65535.0,
			B: float64(b) / 65535.0,
		}
		h, s, v := cf.Hsv()
		out[0] = h / 360.0
		out[1] = s
		out[2] = v
	}
}

func binIndex(v float64, bins int) int {
	idx := int(v * float64(bins))
	if idx < 0 {
		return 0
	}
	if idx >= bins {
		return bins - 1
	}
	return idx
}

// Mean averages descriptors element-wise. All descriptors must have the same length.
func Mean(descs []models.Descriptor) (models.Descriptor, error) {
	if len(descs) == 0 {
		return nil, errors.New("no descriptors to average")
	}
	n := len(descs[0])
	out := make(models.Descriptor, n)
	for i, d := range descs {
		if len(d) != n {
			return nil, fmt.Errorf("descriptor %d has length %d, want %d", i, len(d), n)
		}
		for j, v := range d {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(descs))
	}
	return out, nil
}
