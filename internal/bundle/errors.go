package bundle

import "errors"

var (
	// ErrBundleFile is returned when a bundle file is missing or cannot be
	// decoded.
	ErrBundleFile = errors.New("bundle file unavailable")

	// ErrInvalidBundle is returned when a bundle file decodes but its content
	// is not usable.
	ErrInvalidBundle = errors.New("invalid bundle content")
)
