package chromadna

import (
	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

// IndexOptions tunes one indexing call.
type IndexOptions struct {
	// Models to index; empty means all color models.
	Models []models.ColorModel
	// Name overrides the video id derived from the file name. Ignored by
	// IndexDirectory.
	Name string
	// Range restricts the averaged frames; nil averages the whole video.
	Range *models.FrameRange
}

// IndexFailure records a file IndexDirectory could not index.
type IndexFailure struct {
	Path string
	Err  error
}

// IndexReport is the outcome of IndexDirectory. Files are reported in sorted
// path order.
type IndexReport struct {
	Indexed []models.Video
	Failed  []IndexFailure
}

type IdentifyOptions struct {
	// Models to vote with; empty means all color models.
	Models []models.ColorModel
	// Range fixes the query reference points; nil defers to the configured
	// RangeSelector, then to the whole clip.
	Range     *models.FrameRange
	Stabilize bool
}

// ModelResult is the vote of a single color model.
type ModelResult struct {
	Model    models.ColorModel
	Tally    models.VoteTally
	Winner   string
	Accuracy float64
}

type IdentifyResult struct {
	// Range is the resolved query reference points shared by every model.
	Range    models.FrameRange
	PerModel []ModelResult
	Ensemble models.EnsembleResult
	// Video is the metadata of the ensemble winner when it is registered.
	Video   *models.Video
	Skipped []models.ColorModel
}

type SegmentOptions struct {
	// Model defaults to HSV.
	Model models.ColorModel
	// Threshold on the frame-to-frame distance. Nil or negative uses
	// DefaultShotThreshold; 0 cuts on any change.
	Threshold *float64
}

type SegmentResult struct {
	FrameCount int
	FPS        float64
	Boundaries []int
	Shots      []models.Shot
}
