package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/utils"
)

// Stabilizer produces a stabilized copy of a video and returns its path.
type Stabilizer interface {
	Stabilize(ctx context.Context, path string) (string, error)
}

// FFmpegStabilizer runs the two vid.stab passes of ffmpeg. Output lands in
// OutputDir as <name>_stable.mp4 and is reused when it already exists.
type FFmpegStabilizer struct {
	OutputDir  string
	FFmpegPath string
	Timeout    time.Duration
	// Exists reports whether a stabilized artifact is already present.
	// Defaults to utils.FileExists.
	Exists func(path string) bool
}

// NewFFmpegStabilizer writes stabilized videos to outputDir.
func NewFFmpegStabilizer(outputDir string) *FFmpegStabilizer {
	return &FFmpegStabilizer{
		OutputDir:  outputDir,
		FFmpegPath: "ffmpeg",
		Timeout:    10 * time.Minute,
		Exists:     utils.FileExists,
	}
}

// OutputPath is where the stabilized version of path is written.
func (s *FFmpegStabilizer) OutputPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.OutputDir, name+"_stable.mp4")
}

func (s *FFmpegStabilizer) Stabilize(ctx context.Context, path string) (string, error) {
	outputPath := s.OutputPath(path)

	exists := s.Exists
	if exists == nil {
		exists = utils.FileExists
	}
	if exists(outputPath) {
		return outputPath, nil
	}

	if _, ok := ctx.Deadline(); !ok && s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(s.OutputDir); err != nil {
		return "", err
	}

	ffmpeg := s.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	transforms := outputPath + ".trf"
	tmpPath := outputPath + ".tmp.mp4"
	defer os.Remove(transforms)
	defer os.Remove(tmpPath)

	detect := exec.CommandContext(ctx, ffmpeg,
		"-y",
		"-v", "error",
		"-i", path,
		"-vf", fmt.Sprintf("vidstabdetect=shakiness=5:accuracy=15:result=%s", transforms),
		"-f", "null",
		"-",
	)
	if out, err := detect.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("vidstabdetect failed: %v (%s)", err, out)
	}

	transform := exec.CommandContext(ctx, ffmpeg,
		"-y",
		"-v", "error",
		"-i", path,
		"-vf", fmt.Sprintf("vidstabtransform=input=%s:smoothing=30,unsharp=5:5:0.8:3:3:0.4", transforms),
		"-an",
		tmpPath,
	)
	if out, err := transform.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("vidstabtransform failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}
