package feed

import "errors"

var (
	ErrListingUnavailable = errors.New("listing page unavailable")
	ErrPaperNotAvailable  = errors.New("paper metadata not available")
)
