package crawlcore

import "errors"

var (
	// ErrNotInitialized reports use of a Crawler before Init has opened
	// the store. No function in this package currently returns it: Run,
	// Stop, and Clean do not check whether Init was called.
	ErrNotInitialized = errors.New("crawlcore: not initialized")

	// ErrMissingCapabilities is returned by NewCrawler when the supplied
	// Capabilities value has no Wrapper, Importer, or Committer set —
	// these have no sensible no-op default, unlike the other
	// Capabilities fields.
	ErrMissingCapabilities = errors.New("crawlcore: capabilities must set Wrapper, Importer, and Committer")
)
