// Package server exposes the chromadna service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/himanishpuri/ChromaDNA/pkg/logger"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/himanishpuri/ChromaDNA/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service chromadna.Service
	config  *Config
	log     chromadna.Logger
}

// Config holds server configuration
type Config struct {
	Port           string
	DBPath         string
	UploadDir      string
	MaxUploadBytes int64
	Bins           int
	Metric         string
	AllowedOrigins []string
}

// New creates a new server instance
func New(service chromadna.Service, config *Config) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 512 << 20
	}
	if config.UploadDir == "" {
		config.UploadDir = os.TempDir()
	}
	return &Server{
		service: service,
		config:  config,
		log:     logger.WithComponent("server"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chromadna.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, chromadna.ErrNoCandidates):
		return http.StatusConflict
	case errors.Is(err, chromadna.ErrEmptyRange),
		errors.Is(err, chromadna.ErrEmptyVideoName),
		errors.Is(err, chromadna.ErrInvalidFrame),
		errors.Is(err, chromadna.ErrUnknownColorModel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "ChromaDNA API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"metrics":         "GET /api/health/metrics",
			"videos":          "GET /api/videos",
			"addVideoFile":    "POST /api/videos",
			"addVideoYouTube": "POST /api/videos/youtube",
			"getVideo":        "GET /api/videos/{name}",
			"deleteVideo":     "DELETE /api/videos/{name}",
			"match":           "POST /api/match",
			"segment":         "POST /api/segment",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	videos, err := s.service.ListVideos()
	if err != nil {
		s.log.Errorf("Failed to get video count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		VideoCount:   len(videos),
		Bins:         s.config.Bins,
		Metric:       s.config.Metric,
	})
}

// handleListVideos handles GET /api/videos
func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.service.ListVideos()
	if err != nil {
		s.log.Errorf("Failed to list videos: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve videos")
		return
	}

	dtos := make([]VideoDTO, len(videos))
	for i, v := range videos {
		dtos[i] = toVideoDTO(v)
	}
	s.respondJSON(w, http.StatusOK, ListVideosResponse{Videos: dtos, Count: len(dtos)})
}

// handleGetVideo handles GET /api/videos/{name}
func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request, name string) {
	v, err := s.service.GetVideo(name)
	if err != nil {
		s.respondError(w, statusFor(err), fmt.Sprintf("Video %s not found", name))
		return
	}

	sigs, err := s.service.ListSignatures(v.Name)
	if err != nil {
		s.log.Errorf("Failed to list signatures of %s: %v", v.Name, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve signatures")
		return
	}

	dto := toVideoDTO(*v)
	for _, sig := range sigs {
		dto.Signatures = append(dto.Signatures, SignatureDTO{
			Model:      string(sig.Model),
			Bins:       sig.Bins,
			StartFrame: sig.Range.Start,
			EndFrame:   sig.Range.End,
			UpdatedAt:  sig.UpdatedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, dto)
}

// handleDeleteVideo handles DELETE /api/videos/{name}; {name} may also be the video id.
func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request, name string) {
	if utils.IsUUID(name) {
		v, err := s.service.GetVideo(name)
		if err != nil {
			s.respondError(w, statusFor(err), fmt.Sprintf("Video %s not found", name))
			return
		}
		name = v.Name
	}

	if err := s.service.DeleteVideo(name); err != nil {
		if statusFor(err) == http.StatusNotFound {
			s.respondError(w, http.StatusNotFound, fmt.Sprintf("Video %s not found", name))
			return
		}
		s.log.Errorf("Failed to delete video %s: %v", name, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete video")
		return
	}

	s.log.Infof("Deleted video: %s", name)
	s.respondJSON(w, http.StatusOK, DeleteVideoResponse{Message: "Video deleted successfully", Name: name})
}

// saveUpload stores the "video" form file under UploadDir keeping its
// extension. The caller removes the returned path.
func (s *Server) saveUpload(r *http.Request) (string, string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", "", fmt.Errorf("failed to parse form data: %w", err)
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		return "", "", errors.New("video file is required")
	}
	defer file.Close()

	if err := utils.MakeDir(s.config.UploadDir); err != nil {
		return "", "", err
	}
	name := filepath.Base(header.Filename)
	tempFile := filepath.Join(s.config.UploadDir, fmt.Sprintf("upload_%d_%s", time.Now().UnixNano(), name))
	out, err := os.Create(tempFile)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(tempFile)
		return "", "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(tempFile)
		return "", "", err
	}
	return tempFile, name, nil
}

func formModels(r *http.Request, key string) ([]models.ColorModel, error) {
	return models.ParseColorModels(r.FormValue(key))
}

func formInt(r *http.Request, key string) (int, bool, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, true, nil
}

// handleAddVideoFile handles POST /api/videos (multipart upload)
func (s *Server) handleAddVideoFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	tempFile, original, err := s.saveUpload(r)
	if err != nil {
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	ms, err := formModels(r, "models")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := r.FormValue("name")
	if name == "" {
		name = utils.VideoName(original)
	}

	s.log.Infof("Indexing uploaded video: %s", name)
	v, err := s.service.IndexVideo(ctx, tempFile, chromadna.IndexOptions{Models: ms, Name: name})
	if err != nil {
		s.log.Errorf("Failed to index video: %v", err)
		s.respondError(w, statusFor(err), fmt.Sprintf("Failed to index video: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, AddVideoResponse{Message: "Video indexed successfully", Video: toVideoDTO(*v)})
}

// handleAddVideoYouTube handles POST /api/videos/youtube
func (s *Server) handleAddVideoYouTube(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Minute)
	defer cancel()

	var req AddVideoYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ms, err := models.ParseColorModels(req.Models)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Indexing video from YouTube URL: %s", req.YouTubeURL)
	v, err := s.service.IndexYouTube(ctx, req.YouTubeURL, chromadna.IndexOptions{Models: ms, Name: req.Name})
	if err != nil {
		s.log.Errorf("Failed to index YouTube video: %v", err)
		s.respondError(w, statusFor(err), fmt.Sprintf("Failed to index YouTube video: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, AddVideoResponse{Message: "Video indexed successfully from YouTube", Video: toVideoDTO(*v)})
}

// handleMatchFile handles POST /api/match (multipart upload)
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	tempFile, original, err := s.saveUpload(r)
	if err != nil {
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	opts := chromadna.IdentifyOptions{Stabilize: r.FormValue("stabilize") == "true"}
	if opts.Models, err = formModels(r, "models"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, hasStart, err := formInt(r, "start")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, hasEnd, err := formInt(r, "end")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hasStart || hasEnd {
		if !hasEnd {
			s.respondError(w, http.StatusBadRequest, "end is required with start")
			return
		}
		opts.Range = &models.FrameRange{Start: start, End: end}
	}

	s.log.Infof("Matching uploaded clip: %s", original)
	res, err := s.service.Identify(ctx, tempFile, opts)
	if err != nil {
		s.log.Errorf("Failed to match clip: %v", err)
		s.respondError(w, statusFor(err), fmt.Sprintf("Failed to match clip: %v", err))
		return
	}

	s.log.Infof("Match complete: %s (%.1f%%)", res.Ensemble.VideoID, res.Ensemble.Accuracy*100)
	s.respondJSON(w, http.StatusOK, toMatchResponse(res))
}

// handleSegmentFile handles POST /api/segment (multipart upload)
func (s *Server) handleSegmentFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	tempFile, _, err := s.saveUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	opts := chromadna.SegmentOptions{}
	if m := r.FormValue("model"); m != "" {
		if opts.Model, err = models.ParseColorModel(m); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if t := r.FormValue("threshold"); t != "" {
		threshold, err := strconv.ParseFloat(t, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid threshold: %q", t))
			return
		}
		opts.Threshold = &threshold
	}

	res, err := s.service.Segment(ctx, tempFile, opts)
	if err != nil {
		s.log.Errorf("Failed to segment video: %v", err)
		s.respondError(w, statusFor(err), fmt.Sprintf("Failed to segment video: %v", err))
		return
	}

	out := SegmentResponse{
		FrameCount: res.FrameCount,
		FPS:        res.FPS,
		Boundaries: append([]int{}, res.Boundaries...),
		Shots:      make([]ShotDTO, len(res.Shots)),
	}
	for i, sh := range res.Shots {
		out.Shots[i] = ShotDTO{
			Index:      sh.Index,
			StartFrame: sh.StartFrame,
			EndFrame:   sh.EndFrame,
			StartSec:   sh.Start.Seconds(),
			EndSec:     sh.End.Seconds(),
		}
	}
	s.respondJSON(w, http.StatusOK, out)
}

// handleVideos routes requests to /api/videos
func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListVideos(w, r)
	case http.MethodPost:
		s.handleAddVideoFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleVideo routes requests to /api/videos/{name}
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "Video name required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetVideo(w, r, name)
	case http.MethodDelete:
		s.handleDeleteVideo(w, r, name)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
