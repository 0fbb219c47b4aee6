// Package shots finds scene cuts by comparing the color histograms of
// consecutive frames.
package shots

import (
	"fmt"
	"image"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

// Detector holds the tunables of a segmentation run. There is no universally
// right Threshold; callers calibrate it for their footage.
type Detector struct {
	Model     models.ColorModel
	Bins      int
	Metric    histogram.Metric
	Threshold float64
}

// Detect walks every frame of r and returns the indices at which a new shot
// starts: frame i is a boundary when the distance between the histograms of
// frames i-1 and i exceeds Threshold. Frame 0 is never a boundary and the
// result is strictly increasing.
func (d Detector) Detect(r video.Reader) ([]int, error) {
	bins := d.Bins
	if bins <= 0 {
		bins = histogram.DefaultBins
	}

	var (
		prev       models.Descriptor
		boundaries []int
	)
	err := r.ReadFrames(0, r.FrameCount(), func(i int, frame image.Image) error {
		cur, err := histogram.Extract(frame, d.Model, bins)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if prev != nil {
			dist, err := histogram.Distance(d.Metric, prev, cur)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			if dist > d.Threshold {
				boundaries = append(boundaries, i)
			}
		}
		prev = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return boundaries, nil
}

// Detect is a convenience wrapper around Detector.Detect.
func Detect(r video.Reader, model models.ColorModel, bins int, metric histogram.Metric, threshold float64) ([]int, error) {
	return Detector{Model: model, Bins: bins, Metric: metric, Threshold: threshold}.Detect(r)
}

// Split turns boundaries into shots covering [0, frameCount). Timestamps are
// derived from fps and left zero when fps is not positive.
func Split(boundaries []int, frameCount int, fps float64) []models.Shot {
	if frameCount <= 0 {
		return nil
	}

	toTime := func(frame int) time.Duration {
		if fps <= 0 {
			return 0
		}
		return time.Duration(float64(frame) / fps * float64(time.Second))
	}

	shots := make([]models.Shot, 0, len(boundaries)+1)
	start := 0
	for _, b := range boundaries {
		if b <= start || b >= frameCount {
			continue
		}
		shots = append(shots, models.Shot{
			Index:      len(shots),
			StartFrame: start,
			EndFrame:   b,
			Start:      toTime(start),
			End:        toTime(b),
		})
		start = b
	}
	shots = append(shots, models.Shot{
		Index:      len(shots),
		StartFrame: start,
		EndFrame:   frameCount,
		Start:      toTime(start),
		End:        toTime(frameCount),
	})
	return shots
}
