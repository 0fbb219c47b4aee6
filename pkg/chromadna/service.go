package chromadna

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/matcher"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/shots"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/signature"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/logger"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/himanishpuri/ChromaDNA/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// DefaultShotThreshold is the chi-square cut threshold used by Segment when
// none is given.
const DefaultShotThreshold = 0.5

var errNoOpener = errors.New("no video opener configured")

// chromaService is the default implementation of the Service interface.
type chromaService struct {
	storage Storage
	log     Logger
	config  *Config
	builder *signature.Builder
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().WithComponent("chromadna")
	}
	if cfg.Bins < 1 || cfg.Bins > histogram.MaxBins {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBins, cfg.Bins)
	}
	if _, err := histogram.ParseMetric(string(cfg.Metric)); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &chromaService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
		builder: signature.NewBuilder(cfg.Bins),
	}, nil
}

func (s *chromaService) open(path string) (video.Reader, error) {
	if s.config.Opener == nil {
		return nil, errNoOpener
	}
	r, err := s.config.Opener(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	return r, nil
}

func colorModels(ms []models.ColorModel) ([]models.ColorModel, error) {
	if len(ms) == 0 {
		return models.AllColorModels, nil
	}
	for _, m := range ms {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColorModel, m)
		}
	}
	return ms, nil
}

// IndexVideo averages the frames of a reference video under every requested
// color model and stores the signatures. Nothing is written unless every
// model's signature was computed.
func (s *chromaService) IndexVideo(ctx context.Context, path string, opts IndexOptions) (*models.Video, error) {
	return s.indexVideo(ctx, path, opts, "")
}

func (s *chromaService) indexVideo(ctx context.Context, path string, opts IndexOptions, youtubeID string) (*models.Video, error) {
	ms, err := colorModels(opts.Models)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = utils.VideoName(path)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyVideoName, path)
	}
	s.log.Infof("Indexing video: %s", name)

	r, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	rng, err := signature.ResolveRange(ctx, r, opts.Range, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	sigs := make([]models.Signature, 0, len(ms))
	for _, m := range ms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		sig, err := s.builder.Build(r, name, m, rng, signature.ModeAverage)
		if err != nil {
			return nil, fmt.Errorf("%s/%s signature failed: %w", name, m, err)
		}
		s.log.Debugf("%s/%s: averaged frames %v in %s", name, m, sig.Range, time.Since(start).Round(time.Millisecond))
		sigs = append(sigs, sig)
	}

	v := models.Video{
		Name:       name,
		Path:       path,
		FrameCount: r.FrameCount(),
		FPS:        r.FPS(),
		YouTubeID:  youtubeID,
	}
	if v.FPS > 0 {
		v.DurationMs = int(float64(v.FrameCount) / v.FPS * 1000)
	}

	id, err := s.storage.RegisterVideo(v)
	if err != nil {
		return nil, fmt.Errorf("failed to register video: %w", err)
	}
	v.ID = id

	for _, sig := range sigs {
		if err := s.storage.PutSignature(sig); err != nil {
			return nil, fmt.Errorf("failed to store signature: %w", err)
		}
	}

	s.log.Infof("Indexed %s (%d frames, %d models)", name, v.FrameCount, len(sigs))
	return &v, nil
}

// IndexDirectory indexes every video file in dir. A file that fails is logged
// and reported in IndexReport.Failed; the remaining files still get indexed.
func (s *chromaService) IndexDirectory(ctx context.Context, dir string, opts IndexOptions) (*IndexReport, error) {
	files, err := utils.ListVideoFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos in %s: %w", dir, err)
	}
	s.log.Infof("Found %d videos in %s", len(files), dir)

	opts.Name = ""
	indexed := make([]*models.Video, len(files))
	failed := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	var mu sync.Mutex
	for i, f := range files {
		g.Go(func() error {
			v, err := s.indexVideo(gctx, f, opts, "")
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.log.Warnf("Skipping %s: %v", f, err)
			}
			mu.Lock()
			indexed[i], failed[i] = v, err
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &IndexReport{}
	for i, f := range files {
		if failed[i] != nil {
			report.Failed = append(report.Failed, IndexFailure{Path: f, Err: failed[i]})
			continue
		}
		report.Indexed = append(report.Indexed, *indexed[i])
	}
	s.log.Infof("Indexed %d/%d videos", len(report.Indexed), len(files))
	return report, nil
}

// IndexYouTube downloads a video into TempDir and indexes it under its
// YouTube id.
func (s *chromaService) IndexYouTube(ctx context.Context, youtubeURL string, opts IndexOptions) (*models.Video, error) {
	path, id, err := video.DownloadYouTube(ctx, youtubeURL, s.config.TempDir)
	if err != nil {
		return nil, fmt.Errorf("youtube download failed: %w", err)
	}
	s.log.Infof("Downloaded %s to %s", id, path)
	return s.indexVideo(ctx, path, opts, id)
}

// Identify votes every frame of the query clip against the indexed averages of
// each color model and merges the per-model tallies.
//
// The reference range is resolved once and shared by every model. Any core
// error aborts the query; a model with no indexed signatures follows the
// configured EmptyModelPolicy.
func (s *chromaService) Identify(ctx context.Context, path string, opts IdentifyOptions) (*IdentifyResult, error) {
	ms, err := colorModels(opts.Models)
	if err != nil {
		return nil, err
	}

	if opts.Stabilize {
		if s.config.Stabilizer == nil {
			return nil, errors.New("stabilization requested but no stabilizer configured")
		}
		stable, err := s.config.Stabilizer.Stabilize(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("stabilization failed: %w", err)
		}
		s.log.Debugf("Using stabilized query %s", stable)
		path = stable
	}

	s.log.Infof("Identifying: %s", path)
	r, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	rng, err := signature.ResolveRange(ctx, r, opts.Range, s.config.RangeSelector)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Query reference frames %v", rng)

	res := &IdentifyResult{Range: rng}
	tallies := make([]models.ModelTally, 0, len(ms))
	for _, m := range ms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stored, err := s.storage.GetSignatures(m)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s signatures: %w", m, err)
		}
		candidates := matcher.Averages(stored)
		if len(candidates) == 0 {
			if s.config.EmptyModel == EmptyModelSkip {
				s.log.Warnf("No %s signatures indexed, skipping model", m)
				res.Skipped = append(res.Skipped, m)
				continue
			}
			return nil, fmt.Errorf("%s: %w", m, ErrNoCandidates)
		}

		query, err := s.builder.Build(r, "", m, rng, signature.ModeSequence)
		if err != nil {
			return nil, fmt.Errorf("%s query signature failed: %w", m, err)
		}

		tally, err := matcher.Match(query.Frames, candidates, s.config.Metric)
		if err != nil {
			return nil, fmt.Errorf("%s matching failed: %w", m, err)
		}

		winner, acc := matcher.Winner(tally)
		s.log.Infof("%s: %s (%.1f%% of %d frames)", m, winner, acc*100, tally.Total())
		res.PerModel = append(res.PerModel, ModelResult{Model: m, Tally: tally, Winner: winner, Accuracy: acc})
		tallies = append(tallies, models.ModelTally{Model: m, Tally: tally})
	}

	if len(tallies) == 0 {
		return nil, fmt.Errorf("every color model was skipped: %w", ErrNoCandidates)
	}

	ens, err := matcher.Aggregate(tallies, s.config.Weights)
	if err != nil {
		return nil, err
	}
	res.Ensemble = ens
	s.log.Infof("Ensemble: %s (accuracy %.1f%%)", ens.VideoID, ens.Accuracy*100)

	if v, err := s.storage.GetVideo(ens.VideoID); err == nil {
		res.Video = v
	} else {
		s.log.Debugf("No metadata for %s: %v", ens.VideoID, err)
	}
	return res, nil
}

// Segment splits a video into shots at the frames where consecutive color
// histograms differ by more than the threshold.
func (s *chromaService) Segment(ctx context.Context, path string, opts SegmentOptions) (*SegmentResult, error) {
	m := opts.Model
	if m == "" {
		m = models.HSV
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColorModel, m)
	}
	threshold := DefaultShotThreshold
	if opts.Threshold != nil && *opts.Threshold >= 0 {
		threshold = *opts.Threshold
	}

	r, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	det := shots.Detector{Model: m, Bins: s.config.Bins, Metric: s.config.Metric, Threshold: threshold}
	boundaries, err := det.Detect(r)
	if err != nil {
		return nil, fmt.Errorf("shot detection failed: %w", err)
	}
	s.log.Infof("Found %d shot boundaries in %s", len(boundaries), path)

	return &SegmentResult{
		FrameCount: r.FrameCount(),
		FPS:        r.FPS(),
		Boundaries: boundaries,
		Shots:      shots.Split(boundaries, r.FrameCount(), r.FPS()),
	}, nil
}

func (s *chromaService) GetVideo(nameOrID string) (*models.Video, error) {
	return s.storage.GetVideo(nameOrID)
}

func (s *chromaService) ListVideos() ([]models.Video, error) {
	return s.storage.ListVideos()
}

func (s *chromaService) ListSignatures(name string) ([]models.SignatureInfo, error) {
	return s.storage.ListSignatures(name)
}

// DeleteVideo removes a video and all its signatures.
func (s *chromaService) DeleteVideo(name string) error {
	return s.storage.DeleteVideo(name)
}

// Close releases all resources held by the service.
func (s *chromaService) Close() error {
	return s.storage.Close()
}
