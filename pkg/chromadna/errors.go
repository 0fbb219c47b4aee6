package chromadna

import (
	"errors"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/matcher"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/signature"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/storage"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

var (
	ErrInvalidFrame      = histogram.ErrInvalidFrame
	ErrInvalidBins       = histogram.ErrInvalidBins
	ErrUnknownMetric     = histogram.ErrUnknownMetric
	ErrEmptyRange        = signature.ErrEmptyRange
	ErrNoCandidates      = matcher.ErrNoCandidates
	ErrNoVotes           = matcher.ErrNoVotes
	ErrUnknownColorModel = models.ErrUnknownColorModel
	ErrVideoNotFound     = storage.ErrVideoNotFound
)

// ErrEmptyVideoName is returned when a video would be indexed under an empty name.
var ErrEmptyVideoName = errors.New("video name is empty")
