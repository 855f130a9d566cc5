package tracking

import "errors"

var (
	ErrInvalidFix            = errors.New("invalid fix")
	ErrNotRecording          = errors.New("device is not recording")
	ErrInsufficientTrackData = errors.New("not enough path data to export (need at least 2 points)")
)
