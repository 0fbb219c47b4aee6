package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownColorModel is returned when a color model name is not one of gray, rgb or hsv.
var ErrUnknownColorModel = errors.New("unknown color model")

// ColorModel selects the color space a Descriptor is computed in.
type ColorModel string

const (
	Grayscale ColorModel = "gray"
	RGB       ColorModel = "rgb"
	HSV       ColorModel = "hsv"
)

// AllColorModels lists every supported model in the order the ensemble visits them.
var AllColorModels = []ColorModel{Grayscale, RGB, HSV}

// ParseColorModel accepts the CLI spellings of a color model.
func ParseColorModel(s string) (ColorModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gray", "grey", "grayscale", "greyscale":
		return Grayscale, nil
	case "rgb", "bgr":
		return RGB, nil
	case "hsv":
		return HSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColorModel, s)
}

// ParseColorModels parses a comma separated list; "all" or "" selects every model.
func ParseColorModels(s string) ([]ColorModel, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		out := make([]ColorModel, len(AllColorModels))
		copy(out, AllColorModels)
		return out, nil
	}

	var out []ColorModel
	seen := make(map[ColorModel]bool)
	for _, part := range strings.Split(s, ",") {
		m, err := ParseColorModel(part)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// Channels is the number of histograms concatenated into one Descriptor.
func (m ColorModel) Channels() int {
	switch m {
	case Grayscale:
		return 1
	case RGB, HSV:
		return 3
	default:
		return 0
	}
}

func (m ColorModel) Valid() bool {
	return m.Channels() > 0
}

func (m ColorModel) String() string {
	return string(m)
}

// Descriptor is a normalized color histogram of one frame. Components are
// non-negative and sum to 1.
type Descriptor []float64

// Clone returns a copy that does not share the backing array.
func (d Descriptor) Clone() Descriptor {
	out := make(Descriptor, len(d))
	copy(out, d)
	return out
}

// Sum adds up all components.
func (d Descriptor) Sum() float64 {
	var s float64
	for _, v := range d {
		s += v
	}
	return s
}

// FrameRange is a half-open [Start, End) interval of frame indices.
type FrameRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len is the number of frames covered.
func (r FrameRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r FrameRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Signature represents a video (or query) under one color model. Average is set
// for indexed videos; Frames is set for queries.
type Signature struct {
	VideoID string
	Model   ColorModel
	Bins    int
	Range   FrameRange
	Average Descriptor
	Frames  []Descriptor
}

// VoteTally maps a candidate video id to the number of query frames that voted for it.
type VoteTally map[string]int

// Total is the number of votes cast.
func (t VoteTally) Total() int {
	var n int
	for _, c := range t {
		n += c
	}
	return n
}

// ModelTally is the tally produced by one color model.
type ModelTally struct {
	Model ColorModel
	Tally VoteTally
}

// EnsembleResult is the merged decision across color models.
type EnsembleResult struct {
	VideoID    string             `json:"video_id"`
	Votes      float64            `json:"votes"`
	TotalVotes float64            `json:"total_votes"`
	Accuracy   float64            `json:"accuracy"`
	Combined   map[string]float64 `json:"combined"`
}

// Shot is a contiguous run of frames between two boundaries.
type Shot struct {
	Index      int           `json:"index"`
	StartFrame int           `json:"start_frame"`
	EndFrame   int           `json:"end_frame"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
}

// Video is an indexed reference video.
type Video struct {
	ID         string    // UUID
	Name       string    // identifier used in vote tallies (file name)
	Path       string    // source path at indexing time
	FrameCount int       // frames reported by the decoder
	FPS        float64   // frames per second
	DurationMs int       // FrameCount / FPS in milliseconds
	YouTubeID  string    // set when indexed from YouTube
	CreatedAt  time.Time // first indexing time
}
