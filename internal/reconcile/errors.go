package reconcile

import "errors"

// Input errors. They are returned before any cluster write happens.
var (
	ErrAmbiguousInput = errors.New("exactly one of pattern, indices or file must be given, got several")
	ErrMissingInput   = errors.New("one of pattern, indices or file is required")
	ErrInvalidPattern = errors.New("invalid regex pattern")
	ErrFileNotFound   = errors.New("file not found")
	ErrInvalidFormat  = errors.New(`invalid index file, expected a JSON list of index names or an object with an "indices" list`)
	ErrPolicyNotFound = errors.New("ilm policy not found")
)

// ErrSkip is returned by an ApplyFunc when the write turned out to be
// unnecessary at execution time.
var ErrSkip = errors.New("nothing to change")
