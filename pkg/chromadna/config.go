package chromadna

import (
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/matcher"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

// EmptyModelPolicy decides what Identify does when a color model has no
// indexed signatures.
type EmptyModelPolicy int

const (
	// EmptyModelFail aborts the query with ErrNoCandidates.
	EmptyModelFail EmptyModelPolicy = iota
	// EmptyModelSkip leaves the model out of the ensemble and reports it in
	// IdentifyResult.Skipped.
	EmptyModelSkip
)

func (p EmptyModelPolicy) String() string {
	if p == EmptyModelSkip {
		return "skip"
	}
	return "fail"
}

type Config struct {
	DBPath     string
	TempDir    string
	Bins       int
	Metric     histogram.Metric
	Weights    matcher.Weights
	EmptyModel EmptyModelPolicy
	Workers    int
	Logger     Logger
	Storage    Storage
	Opener     video.Opener
	Stabilizer video.Stabilizer
	// RangeSelector picks the query reference points when Identify is not given
	// an explicit range. Nil means the whole query video.
	RangeSelector video.RangeSelector
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithBins sets the histogram bins per channel. Indexing and querying must use
// the same value.
func WithBins(bins int) Option {
	return func(c *Config) {
		c.Bins = bins
	}
}

func WithMetric(m histogram.Metric) Option {
	return func(c *Config) {
		c.Metric = m
	}
}

func WithModelWeights(w map[models.ColorModel]float64) Option {
	return func(c *Config) {
		c.Weights = matcher.Weights(w)
	}
}

func WithEmptyModelPolicy(p EmptyModelPolicy) Option {
	return func(c *Config) {
		c.EmptyModel = p
	}
}

// WithWorkers bounds how many videos IndexDirectory processes at once.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithVideoOpener(open video.Opener) Option {
	return func(c *Config) {
		c.Opener = open
	}
}

func WithStabilizer(s video.Stabilizer) Option {
	return func(c *Config) {
		c.Stabilizer = s
	}
}

func WithRangeSelector(sel video.RangeSelector) Option {
	return func(c *Config) {
		c.RangeSelector = sel
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:  "chromadna.sqlite3",
		TempDir: "/tmp",
		Bins:    histogram.DefaultBins,
		Metric:  histogram.DefaultMetric,
		Workers: 1,
	}
}
