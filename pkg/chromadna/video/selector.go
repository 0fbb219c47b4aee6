package video

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

// RangeSelector chooses the reference points of a query. It is called at most
// once per query; the result is reused for every color model.
type RangeSelector interface {
	SelectRange(ctx context.Context, r Reader) (models.FrameRange, error)
}

// WholeVideo selects every frame.
type WholeVideo struct{}

func (WholeVideo) SelectRange(_ context.Context, r Reader) (models.FrameRange, error) {
	return models.FrameRange{Start: 0, End: r.FrameCount()}, nil
}

// FixedRange always returns the same frame range.
type FixedRange models.FrameRange

func (f FixedRange) SelectRange(context.Context, Reader) (models.FrameRange, error) {
	return models.FrameRange(f), nil
}

// SecondsRange crops by time; the bounds are converted with the reader's FPS.
// A zero To means "until the end of the video".
type SecondsRange struct {
	From time.Duration
	To   time.Duration
}

func (s SecondsRange) SelectRange(_ context.Context, r Reader) (models.FrameRange, error) {
	fps := r.FPS()
	if fps <= 0 {
		return models.FrameRange{}, fmt.Errorf("cannot crop by time: fps is %v", fps)
	}
	rng := models.FrameRange{
		Start: int(math.Floor(s.From.Seconds() * fps)),
		End:   r.FrameCount(),
	}
	if s.To > 0 {
		end := int(math.Ceil(s.To.Seconds() * fps))
		if end < rng.End {
			rng.End = end
		}
	}
	return rng, nil
}

// SelectorFunc adapts a function to RangeSelector.
type SelectorFunc func(ctx context.Context, r Reader) (models.FrameRange, error)

func (f SelectorFunc) SelectRange(ctx context.Context, r Reader) (models.FrameRange, error) {
	return f(ctx, r)
}
