package crawlcore

import "github.com/crawlcore/crawlcore/reference"

// Action is the disposition SpoilPolicy assigns to a reference that
// finalize determined is neither good nor already Deleted (reference.Error,
// reference.BadStatus, reference.NotFound, reference.Rejected).
type Action uint8

const (
	// Ignore leaves the reference alone: no deletion, no state change
	// beyond what the pipeline already recorded.
	Ignore Action = iota

	// Delete removes the reference from the committer's downstream sink
	// immediately.
	Delete

	// GraceOnce lets the reference survive one additional bad run before
	// it is deleted. finalize checks pc.Cached to carry this out: a
	// reference with no cached entry is deleted immediately (nothing to
	// fall back on), one whose cached entry is still good is logged and
	// left alone, and one whose cached entry is already bad is deleted.
	GraceOnce
)

// String returns a lowercase name for a, matching the vocabulary used in
// event descriptions and logs.
func (a Action) String() string {
	switch a {
	case Ignore:
		return "ignore"
	case Delete:
		return "delete"
	case GraceOnce:
		return "grace_once"
	default:
		return "unknown"
	}
}

// SpoilPolicy decides what happens to a reference that finalize
// determined should not remain in the downstream sink as-is: a
// reference whose terminal state is neither good nor Deleted. Cached
// entries never re-encountered this run are handled by OrphanHandler,
// not by a SpoilPolicy.
//
// Policies are consulted once per spoiled reference and must not block;
// any I/O a policy needs (e.g. consulting an external allow-list) should
// be pre-fetched or otherwise made non-blocking by the caller.
type SpoilPolicy interface {
	Decide(ref *reference.Reference) Action
}

// DefaultSpoilPolicy is the built-in SpoilPolicy: every reference handed
// to it by finalize is deleted.
type DefaultSpoilPolicy struct{}

// Decide implements SpoilPolicy, returning Delete unconditionally. It is
// the fallback a Crawler uses when no SpoilPolicy is configured.
func (DefaultSpoilPolicy) Decide(ref *reference.Reference) Action {
	return Delete
}

var _ SpoilPolicy = DefaultSpoilPolicy{}
