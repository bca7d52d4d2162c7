package ftl

import "errors"

var (
	ErrMissingParameter      = errors.New("missing required parameter")
	ErrCursorOutOfRange      = errors.New("sequence cursor beyond end of sequence")
	ErrLogicalPageOutOfRange = errors.New("logical page number out of range")
	ErrBlockOutOfRange       = errors.New("block number out of range")
	ErrUnknownGeneration     = errors.New("unknown generation")
	ErrInvalidGenerations    = errors.New("generation count must be between 1 and physical-logical blocks")
)
