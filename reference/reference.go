package reference

import "time"

// Reference is the unit of work tracked by a crawl store.
//
// Key is the stable string identity used as the primary key across all
// five CrawlStore partitions (queued, active, processedValid,
// processedInvalid, cached). ParentRootReference, when non-empty, names
// the top-level reference this one was discovered from; IsRootParent
// reports whether this reference is itself a root (a seed).
//
// MetaChecksum and ContentChecksum are set by pipeline stages that
// compare against a cached reference to detect an unmodified crawl.
// ContentType and CrawlDate are set by the pipeline on a good-state
// crawl and back-filled from the cached reference when omitted.
//
// A Reference is mutated only by the worker holding it while it is
// active; it becomes immutable once recorded in a processed partition.
type Reference struct {
	Key                 string
	ParentRootReference string
	IsRootParent        bool
	State               State
	MetaChecksum        string
	ContentChecksum     string
	ContentType         string
	CrawlDate           time.Time
}

// NewRoot creates a root Reference with the given key. The reference
// starts in the Unknown state; a pipeline stage assigns its terminal
// state.
func NewRoot(key string) *Reference {
	return &Reference{
		Key:          key,
		IsRootParent: true,
	}
}

// NewEmbedded creates a Reference discovered while importing parent,
// carrying parent linkage as required by the embedded-reference rule:
// every child names its parent's root reference, and only roots have
// IsRootParent set.
func NewEmbedded(key string, parent *Reference) *Reference {
	root := parent.Key
	if parent.ParentRootReference != "" {
		root = parent.ParentRootReference
	}
	return &Reference{
		Key:                 key,
		ParentRootReference: root,
		IsRootParent:        false,
	}
}

// Copy returns a defensive, independent copy of r. Reference has no
// pointer or slice fields that require deep copying, so this is a plain
// value copy — no reflection, no allocation beyond the returned pointer.
//
// CrawlStore.Queue and CrawlStore.GetCached must return the result of
// Copy rather than a shared pointer, so that a caller mutating the
// returned Reference cannot corrupt store-internal state.
func (r *Reference) Copy() *Reference {
	cp := *r
	return &cp
}

// CopyOverNulls copies CrawlDate, ContentType, MetaChecksum, and
// ContentChecksum from cached onto r wherever r's corresponding field is
// the zero value. It is used by finalize to preserve prior metadata on
// references that end in a non-new-or-modified state (e.g. Unmodified,
// Rejected) and therefore never had the chance to set these fields
// themselves this run.
func (r *Reference) CopyOverNulls(cached *Reference) {
	if cached == nil {
		return
	}
	if r.ContentType == "" {
		r.ContentType = cached.ContentType
	}
	if r.CrawlDate.IsZero() {
		r.CrawlDate = cached.CrawlDate
	}
	if r.MetaChecksum == "" {
		r.MetaChecksum = cached.MetaChecksum
	}
	if r.ContentChecksum == "" {
		r.ContentChecksum = cached.ContentChecksum
	}
}
