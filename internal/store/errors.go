package store

import "errors"

var (
	ErrNotFound       = errors.New("no document for date")
	ErrUnknownSection = errors.New("unknown document section")
)
