package social

import "errors"

// Configuration errors carry distinct codes so callers can tell a rejected
// call from a collaborator failure. Collaborator errors pass through as
// themselves: vcs failures keep their original message, and a repository
// with no local mirror surfaces as repocache.ErrNotCached.
var (
	// ErrInvalidScope marks a scope string that neither names a built-in
	// scope nor parses as a repository identifier.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrCacheBaseRequired marks a remote-repository read with no cache
	// base configured.
	ErrCacheBaseRequired = errors.New("cache base required for remote repository scope")

	// ErrOperationFailed wraps a panic that escaped an operation. The
	// original message rides along in the error text.
	ErrOperationFailed = errors.New("operation failed")
)
