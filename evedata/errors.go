// Package evedata reads measurement files produced by the EVE beamline
// control program and presents them through one stable, version-independent
// object model. The binary container schema and the embedded scan-description
// schema have both changed incompatibly over the years; per-version mappers
// hide those differences, the position-reconstruction pass recovers the
// integer position counts each scan module produced, and the join engine
// reconciles independently sampled device series onto a common position
// index. Device data is imported lazily on first access.
package evedata

import "errors"

// Common errors
var (
	ErrMissingInput        = errors.New("missing mapping input")
	ErrUnsupportedVersion  = errors.New("no mapper registered for version")
	ErrUnknownJoinStrategy = errors.New("unknown join strategy")
	ErrNotEveH5            = errors.New("not an EVE measurement file")
)
