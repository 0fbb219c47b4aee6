// Package opencv decodes video files with OpenCV through gocv.
package opencv

import (
	"fmt"
	"image"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"gocv.io/x/gocv"
)

// Capture is a video.Reader backed by gocv.VideoCapture.
type Capture struct {
	path       string
	vc         *gocv.VideoCapture
	frameCount int
	fps        float64
}

// Open opens path for decoding. It satisfies video.Opener.
func Open(path string) (video.Reader, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("opening video %s: capture not opened", path)
	}

	return &Capture{
		path:       path,
		vc:         vc,
		frameCount: int(vc.Get(gocv.VideoCaptureFrameCount)),
		fps:        vc.Get(gocv.VideoCaptureFPS),
	}, nil
}

func (c *Capture) FrameCount() int { return c.frameCount }

func (c *Capture) FPS() float64 { return c.fps }

// ReadFrames seeks to start and decodes sequentially until end or the end of the stream.
func (c *Capture) ReadFrames(start, end int, fn func(int, image.Image) error) error {
	if c.vc == nil {
		return video.ErrClosed
	}
	if start < 0 {
		return fmt.Errorf("start frame %d out of range", start)
	}
	c.vc.Set(gocv.VideoCapturePosFrames, float64(start))

	mat := gocv.NewMat()
	defer mat.Close()

	for i := start; i < end; i++ {
		if ok := c.vc.Read(&mat); !ok || mat.Empty() {
			return nil
		}
		img, err := toImage(mat)
		if err != nil {
			return fmt.Errorf("frame %d of %s: %w", i, c.path, err)
		}
		if err := fn(i, img); err != nil {
			return err
		}
	}
	return nil
}

func (c *Capture) Close() error {
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}

// toImage converts a decoded BGR, BGRA or gray Mat to an image.Image.
func toImage(mat gocv.Mat) (image.Image, error) {
	switch mat.Channels() {
	case 1, 3, 4:
	default:
		return nil, fmt.Errorf("%w: %d channels", histogram.ErrInvalidFrame, mat.Channels())
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", histogram.ErrInvalidFrame, err)
	}
	return img, nil
}
