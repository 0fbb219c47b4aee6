package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ExtractYouTubeID returns the video id of a youtube.com or youtu.be URL.
func ExtractYouTubeID(youtubeURL string) (string, error) {
	u, err := url.Parse(youtubeURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	host := strings.ToLower(u.Host)

	var id string
	switch {
	case strings.Contains(host, "youtu.be"):
		id = strings.TrimPrefix(u.Path, "/")
	case strings.Contains(host, "youtube.com"):
		switch {
		case strings.HasPrefix(u.Path, "/watch"):
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		case strings.HasPrefix(u.Path, "/v/"):
			id = strings.TrimPrefix(u.Path, "/v/")
		}
	default:
		return "", fmt.Errorf("not a YouTube URL: %s", youtubeURL)
	}

	id = strings.Trim(id, "/")
	if id == "" {
		return "", fmt.Errorf("unable to extract video ID from URL: %s", youtubeURL)
	}
	return id, nil
}

// IsYouTubeURL reports whether urlStr points at youtube.com or youtu.be.
func IsYouTubeURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	return strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be")
}
