package chromadna

import (
	"context"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

type Service interface {
	IndexVideo(ctx context.Context, path string, opts IndexOptions) (*models.Video, error)
	IndexDirectory(ctx context.Context, dir string, opts IndexOptions) (*IndexReport, error)
	IndexYouTube(ctx context.Context, youtubeURL string, opts IndexOptions) (*models.Video, error)
	Identify(ctx context.Context, path string, opts IdentifyOptions) (*IdentifyResult, error)
	Segment(ctx context.Context, path string, opts SegmentOptions) (*SegmentResult, error)
	GetVideo(nameOrID string) (*models.Video, error)
	ListVideos() ([]models.Video, error)
	ListSignatures(name string) ([]models.SignatureInfo, error)
	DeleteVideo(name string) error
	Close() error
}

// Storage persists averaged signatures keyed by (video, color model).
type Storage interface {
	RegisterVideo(v models.Video) (string, error)
	// PutSignature overwrites any signature stored for the same video and model.
	PutSignature(sig models.Signature) error
	// GetSignatures returns an empty map, not an error, when nothing is indexed.
	GetSignatures(model models.ColorModel) (map[string]models.Signature, error)
	ListSignatures(videoName string) ([]models.SignatureInfo, error)
	GetVideo(nameOrID string) (*models.Video, error)
	ListVideos() ([]models.Video, error)
	DeleteVideo(name string) error
	SignatureCount(model models.ColorModel) (int, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
