// Package handle implements the generation-tagged slot store: a
// grow-on-demand table of typed slots that hands out stable 64-bit handles
// so that references to struct-based instances can safely outlive value
// copies and cross ownership boundaries.
package handle

import "errors"

var (
	// ErrStaleHandle is returned by Get/Release when a handle's generation
	// no longer matches its slot's current generation.
	ErrStaleHandle = errors.New("handle: stale handle")

	// ErrTypeMismatch is returned by Get/Release when a handle's stored
	// type tag does not match the requested type parameter.
	ErrTypeMismatch = errors.New("handle: type mismatch")
)
