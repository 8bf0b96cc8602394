package reference

import "fmt"

// State represents the outcome of processing a Reference during a crawl
// run.
//
// Good states (NEW, MODIFIED, UNMODIFIED) indicate the reference was
// fetched and imported without error, whether or not its content actually
// changed since the cached run. REJECTED indicates the reference was
// excluded by the importer pipeline; it is not good, but it is not an
// error either. ERROR, BadStatus, and NotFound are
// bad states caused by a fetch or import failure. DELETED is a terminal
// state reserved for references expelled by SpoilPolicy or OrphanHandler.
//
// Unknown is reserved as the zero value and must never be the state of a
// finalized Reference; PipelineDriver.finalize treats it as a bug and
// coerces it to BadStatus.
type State uint8

const (
	// Unknown is the zero value of State and indicates the reference has
	// not yet been assigned an outcome.
	Unknown State = iota

	// New indicates the reference was not present in the previous run's
	// cache and was imported successfully this run.
	New

	// Modified indicates the reference was present in the cache, but its
	// checksum differs from the cached value, and it was imported
	// successfully this run.
	Modified

	// Unmodified indicates the reference was present in the cache with a
	// matching checksum; the importer pipeline was short-circuited.
	Unmodified

	// Rejected indicates the importer pipeline declined the reference
	// (no response, or an unsuccessful response).
	Rejected

	// Deleted is a terminal state: the reference was expelled from the
	// committer's downstream sink, either by a SpoilPolicy decision or by
	// OrphanHandler's delete strategy.
	Deleted

	// Error indicates an exception surfaced from the fetch, import, or
	// commit stage that was caught and mapped onto the reference.
	Error

	// BadStatus indicates the fetcher reported a non-success status
	// (e.g. an HTTP 5xx) that the importer pipeline did not otherwise
	// classify.
	BadStatus

	// NotFound indicates the fetcher reported that the reference no
	// longer exists at its source.
	NotFound
)

func stateToString(s State) string {
	switch s {
	case New:
		return "NEW"
	case Modified:
		return "MODIFIED"
	case Unmodified:
		return "UNMODIFIED"
	case Rejected:
		return "REJECTED"
	case Deleted:
		return "DELETED"
	case Error:
		return "ERROR"
	case BadStatus:
		return "BAD_STATUS"
	case NotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

func stateFromString(s string) (State, error) {
	switch s {
	case "NEW":
		return New, nil
	case "MODIFIED":
		return Modified, nil
	case "UNMODIFIED":
		return Unmodified, nil
	case "REJECTED":
		return Rejected, nil
	case "DELETED":
		return Deleted, nil
	case "ERROR":
		return Error, nil
	case "BAD_STATUS":
		return BadStatus, nil
	case "NOT_FOUND":
		return NotFound, nil
	case "UNKNOWN":
		return Unknown, nil
	default:
		return 0, fmt.Errorf("reference: unknown state: %s", s)
	}
}

// ParseState converts a canonical string representation into a State.
// An error is returned for unrecognized strings.
func ParseState(s string) (State, error) {
	return stateFromString(s)
}

// String returns the canonical string representation of the state.
func (s State) String() string {
	return stateToString(s)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(stateToString(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	state, err := stateFromString(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// IsGoodState reports whether s represents a successful crawl outcome:
// New, Modified, or Unmodified. Deleted is terminal but not "good" in
// this sense — it means the reference was actively expelled, not freshly
// imported.
func (s State) IsGoodState() bool {
	switch s {
	case New, Modified, Unmodified:
		return true
	default:
		return false
	}
}

// IsNewOrModified reports whether s is New or Modified — the two states
// for which an importer pipeline actually ran to completion and produced
// fresh content (as opposed to Unmodified, which short-circuits import).
func (s State) IsNewOrModified() bool {
	return s == New || s == Modified
}

// IsBad reports whether s represents a fetch/import failure: Error,
// BadStatus, or NotFound. Rejected is excluded: it is "not good" but not
// a failure in the sense SpoilPolicy cares about being told apart from
// Error et al. is left to the caller — finalize treats any non-good,
// non-Deleted state as spoil-eligible, Rejected included.
func (s State) IsBad() bool {
	switch s {
	case Error, BadStatus, NotFound:
		return true
	default:
		return false
	}
}
