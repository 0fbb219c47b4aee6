// Package video holds the collaborators the signature engine consumes: frame
// readers, reference-range selectors, the stabilizer and the YouTube fetcher.
package video

import (
	"errors"
	"fmt"
	"image"
)

// ErrClosed is returned by readers used after Close.
var ErrClosed = errors.New("video reader closed")

// Reader gives bounded access to the decoded frames of one video.
type Reader interface {
	// FrameCount is the number of frames the decoder reports.
	FrameCount() int
	// FPS is the nominal frame rate.
	FPS() float64
	// ReadFrames calls fn for every frame in [start, end) in order. Reading stops
	// at the first error returned by fn, or early if the stream ends.
	ReadFrames(start, end int, fn func(index int, frame image.Image) error) error
	Close() error
}

// Opener opens a video file for reading.
type Opener func(path string) (Reader, error)

// MemoryReader serves frames that are already decoded. It is used for tests and
// for callers that decode frames themselves.
type MemoryReader struct {
	frames []image.Image
	fps    float64
	closed bool
}

// NewMemoryReader wraps frames; fps <= 0 defaults to 30.
func NewMemoryReader(frames []image.Image, fps float64) *MemoryReader {
	if fps <= 0 {
		fps = 30
	}
	return &MemoryReader{frames: frames, fps: fps}
}

func (m *MemoryReader) FrameCount() int { return len(m.frames) }

func (m *MemoryReader) FPS() float64 { return m.fps }

func (m *MemoryReader) ReadFrames(start, end int, fn func(int, image.Image) error) error {
	if m.closed {
		return ErrClosed
	}
	if start < 0 {
		return fmt.Errorf("start frame %d out of range", start)
	}
	if end > len(m.frames) {
		end = len(m.frames)
	}
	for i := start; i < end; i++ {
		if err := fn(i, m.frames[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryReader) Close() error {
	m.closed = true
	return nil
}

// MemoryOpener returns an Opener that serves pre-registered readers by path.
// Each Open returns a fresh reader over the same frames.
func MemoryOpener(videos map[string][]image.Image, fps float64) Opener {
	return func(path string) (Reader, error) {
		frames, ok := videos[path]
		if !ok {
			return nil, fmt.Errorf("open %s: no such video", path)
		}
		return NewMemoryReader(frames, fps), nil
	}
}
