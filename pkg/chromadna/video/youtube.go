package video

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/utils"
	"github.com/lrstanley/go-ytdlp"
)

// DownloadYouTube fetches the best video-only stream of youtubeURL into
// outputDir as <youtube id>.<ext> and returns the file path and the id.
// An already downloaded file is reused.
func DownloadYouTube(ctx context.Context, youtubeURL, outputDir string) (string, string, error) {
	id, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return "", "", err
	}

	if existing := findDownloaded(outputDir, id); existing != "" {
		return existing, id, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	dl := ytdlp.New().
		Format("bv*[ext=mp4]/bv*/b").
		NoPlaylist().
		NoWarnings().
		Output(filepath.Join(outputDir, id+".%(ext)s"))

	if _, err := dl.Run(ctx, youtubeURL); err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", fmt.Errorf("yt-dlp download failed: %w", err)
	}

	path := findDownloaded(outputDir, id)
	if path == "" {
		return "", "", fmt.Errorf("downloaded video not found for %s in %s", id, outputDir)
	}
	return path, id, nil
}

func findDownloaded(dir, id string) string {
	for _, ext := range utils.VideoExtensions {
		candidate := filepath.Join(dir, id+ext)
		if utils.FileExists(candidate) {
			return candidate
		}
	}
	return ""
}
