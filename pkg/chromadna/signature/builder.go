// Package signature turns the frames of a video into averaged or per-frame
// color histogram signatures.
package signature

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

// ErrEmptyRange is returned for a degenerate frame range or a video with fewer
// frames than the range requires.
var ErrEmptyRange = errors.New("empty frame range")

// Mode selects what Build returns.
type Mode int

const (
	// ModeAverage collapses the range into one mean descriptor (indexing side).
	ModeAverage Mode = iota
	// ModeSequence keeps one descriptor per frame (query side).
	ModeSequence
)

func (m Mode) String() string {
	switch m {
	case ModeAverage:
		return "average"
	case ModeSequence:
		return "sequence"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Builder computes signatures with a fixed bin count.
type Builder struct {
	Bins int
}

// NewBuilder returns a Builder; bins <= 0 uses histogram.DefaultBins.
func NewBuilder(bins int) *Builder {
	if bins <= 0 {
		bins = histogram.DefaultBins
	}
	return &Builder{Bins: bins}
}

// ValidateRange checks rng against a video of frameCount frames.
func ValidateRange(rng models.FrameRange, frameCount int) error {
	if rng.Start < 0 || rng.Start >= rng.End {
		return fmt.Errorf("%w: %v", ErrEmptyRange, rng)
	}
	if rng.End > frameCount {
		return fmt.Errorf("%w: %v exceeds %d frames", ErrEmptyRange, rng, frameCount)
	}
	return nil
}

// ResolveRange fixes the reference points of a video once. An explicit range
// wins; otherwise the selector decides; with neither the whole video is used.
// The returned range is validated and must be passed unchanged to every Build
// call for the same query so all color models cover the same frames.
func ResolveRange(ctx context.Context, r video.Reader, explicit *models.FrameRange, sel video.RangeSelector) (models.FrameRange, error) {
	var (
		rng models.FrameRange
		err error
	)
	switch {
	case explicit != nil:
		rng = *explicit
	case sel != nil:
		rng, err = sel.SelectRange(ctx, r)
		if err != nil {
			return models.FrameRange{}, fmt.Errorf("selecting frame range: %w", err)
		}
	default:
		rng = models.FrameRange{Start: 0, End: r.FrameCount()}
	}

	if err := ValidateRange(rng, r.FrameCount()); err != nil {
		return models.FrameRange{}, err
	}
	return rng, nil
}

// Build extracts a descriptor for every frame of rng under model.
//
// In ModeAverage the returned Signature carries the element-wise mean in
// Average; in ModeSequence it carries the ordered per-frame descriptors in
// Frames. Range is set to the frames actually decoded, which is shorter than
// rng only when the stream ends early.
func (b *Builder) Build(r video.Reader, videoID string, model models.ColorModel, rng models.FrameRange, mode Mode) (models.Signature, error) {
	if err := ValidateRange(rng, r.FrameCount()); err != nil {
		return models.Signature{}, err
	}

	descs := make([]models.Descriptor, 0, rng.Len())
	last := rng.Start - 1
	err := r.ReadFrames(rng.Start, rng.End, func(i int, frame image.Image) error {
		d, err := histogram.Extract(frame, model, b.Bins)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		descs = append(descs, d)
		last = i
		return nil
	})
	if err != nil {
		return models.Signature{}, err
	}
	if len(descs) == 0 {
		return models.Signature{}, fmt.Errorf("%w: no frames decoded in %v", ErrEmptyRange, rng)
	}

	sig := models.Signature{
		VideoID: videoID,
		Model:   model,
		Bins:    b.Bins,
		Range:   models.FrameRange{Start: rng.Start, End: last + 1},
	}

	switch mode {
	case ModeAverage:
		avg, err := histogram.Mean(descs)
		if err != nil {
			return models.Signature{}, err
		}
		sig.Average = avg
	case ModeSequence:
		sig.Frames = descs
	default:
		return models.Signature{}, fmt.Errorf("unknown signature mode %v", mode)
	}
	return sig, nil
}
