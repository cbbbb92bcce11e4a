package budget

import "errors"

// Failure classes surfaced to callers so the user-facing message can be
// specific rather than generic.
var (
	// ErrResolve means the external resolver could not locate or fetch the
	// media item (network or extraction error).
	ErrResolve = errors.New("media resolution failed")
	// ErrEncode means the transcode step itself failed.
	ErrEncode = errors.New("media encoding failed")
	// ErrSizeExceeded means the re-encode ladder was exhausted without
	// meeting the size budget.
	ErrSizeExceeded = errors.New("file exceeds size budget after final pass")
)
