package server

import (
	"fmt"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/himanishpuri/ChromaDNA/pkg/utils"
)

// AddVideoYouTubeRequest is the request body for POST /api/videos/youtube
type AddVideoYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url"`
	// Name overrides the stored video id (defaults to the YouTube id)
	Name string `json:"name,omitempty"`
	// Models is a comma separated list or "all"
	Models string `json:"models,omitempty"`
}

// Validate checks if the request is valid
func (r *AddVideoYouTubeRequest) Validate() error {
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required")
	}
	if !utils.IsYouTubeURL(r.YouTubeURL) {
		return fmt.Errorf("not a YouTube URL: %s", r.YouTubeURL)
	}
	return nil
}

// VideoDTO represents an indexed video in API responses
type VideoDTO struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	FrameCount int            `json:"frame_count"`
	FPS        float64        `json:"fps"`
	DurationMs int            `json:"duration_ms"`
	YouTubeID  string         `json:"youtube_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Signatures []SignatureDTO `json:"signatures,omitempty"`
}

type SignatureDTO struct {
	Model      string    `json:"model"`
	Bins       int       `json:"bins"`
	StartFrame int       `json:"start_frame"`
	EndFrame   int       `json:"end_frame"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toVideoDTO(v models.Video) VideoDTO {
	return VideoDTO{
		ID:         v.ID,
		Name:       v.Name,
		FrameCount: v.FrameCount,
		FPS:        v.FPS,
		DurationMs: v.DurationMs,
		YouTubeID:  v.YouTubeID,
		CreatedAt:  v.CreatedAt,
	}
}

// ListVideosResponse is the response for GET /api/videos
type ListVideosResponse struct {
	Videos []VideoDTO `json:"videos"`
	Count  int        `json:"count"`
}

// AddVideoResponse is the response for successful indexing
type AddVideoResponse struct {
	Message string   `json:"message"`
	Video   VideoDTO `json:"video"`
}

// DeleteVideoResponse is the response for DELETE /api/videos/{name}
type DeleteVideoResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// ModelResultDTO is the vote of one color model
type ModelResultDTO struct {
	Model    string         `json:"model"`
	Winner   string         `json:"winner"`
	Accuracy float64        `json:"accuracy"`
	Votes    map[string]int `json:"votes"`
}

// MatchResponse is the response for POST /api/match
type MatchResponse struct {
	VideoID    string             `json:"video_id"`
	Accuracy   float64            `json:"accuracy"`
	Votes      float64            `json:"votes"`
	TotalVotes float64            `json:"total_votes"`
	Combined   map[string]float64 `json:"combined"`
	StartFrame int                `json:"start_frame"`
	EndFrame   int                `json:"end_frame"`
	Models     []ModelResultDTO   `json:"models"`
	Skipped    []string           `json:"skipped,omitempty"`
	Video      *VideoDTO          `json:"video,omitempty"`
}

func toMatchResponse(res *chromadna.IdentifyResult) MatchResponse {
	out := MatchResponse{
		VideoID:    res.Ensemble.VideoID,
		Accuracy:   res.Ensemble.Accuracy,
		Votes:      res.Ensemble.Votes,
		TotalVotes: res.Ensemble.TotalVotes,
		Combined:   res.Ensemble.Combined,
		StartFrame: res.Range.Start,
		EndFrame:   res.Range.End,
		Models:     make([]ModelResultDTO, len(res.PerModel)),
	}
	for i, pm := range res.PerModel {
		out.Models[i] = ModelResultDTO{
			Model:    string(pm.Model),
			Winner:   pm.Winner,
			Accuracy: pm.Accuracy,
			Votes:    pm.Tally,
		}
	}
	for _, m := range res.Skipped {
		out.Skipped = append(out.Skipped, string(m))
	}
	if res.Video != nil {
		v := toVideoDTO(*res.Video)
		out.Video = &v
	}
	return out
}

// ShotDTO is one shot of a segmented video
type ShotDTO struct {
	Index      int     `json:"index"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
}

// SegmentResponse is the response for POST /api/segment
type SegmentResponse struct {
	FrameCount int       `json:"frame_count"`
	FPS        float64   `json:"fps"`
	Boundaries []int     `json:"boundaries"`
	Shots      []ShotDTO `json:"shots"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	VideoCount   int    `json:"video_count"`
	Bins         int    `json:"bins"`
	Metric       string `json:"metric"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
