package imap

import "errors"

// Sentinel errors returned by InterlayerMap operations and its snapshot
// codec. Adapted from common/error.go's convention of package-level
// sentinel errors, split per-package here since this module has no
// single shared "common" package.
var (
	// ErrNotObject is returned by LoadSnapshot when the snapshot's top level
	// JSON value is not an object.
	ErrNotObject = errors.New("imap: snapshot top level is not a JSON object")
)
