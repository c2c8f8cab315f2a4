package sync

import "errors"

var (
	// ErrUnsupportedProtocol is returned when the descriptor's protocol
	// version is outside the supported range. Nothing is written.
	ErrUnsupportedProtocol = errors.New("unsupported bundle protocol version")

	// errNeedsFullSync signals that the write target has no recorded
	// category list, so an incremental sync has no baseline.
	errNeedsFullSync = errors.New("write target has no category list")
)
