package report

import "errors"

var (
	ErrMissingSection  = errors.New("document section required for rendering is missing")
	ErrSummaryMismatch = errors.New("item summary count does not match item count")
)
