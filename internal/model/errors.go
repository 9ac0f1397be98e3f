package model

import "errors"

var (
	// ErrUnsupported is returned by extractors for content they can't decode.
	ErrUnsupported = errors.New("unsupported content")
	// ErrNoDuration means a media file was decoded, but reports no duration.
	ErrNoDuration = errors.New("no duration")
	// ErrNotDir is returned when a scan root is not a directory.
	ErrNotDir = errors.New("not a directory")
	// ErrAborted means a scan finished without visiting the whole tree.
	ErrAborted = errors.New("scan aborted")
)
