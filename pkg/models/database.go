package models

import "time"

// SignatureInfo describes a stored signature without its descriptor values.
type SignatureInfo struct {
	VideoID   string     // video name the signature belongs to
	Model     ColorModel // color model it was computed under
	Bins      int        // bins per channel
	Range     FrameRange // frames averaged
	UpdatedAt time.Time  // last (re)indexing time
}
