package event

import "github.com/crawlcore/crawlcore/reference"

// Name identifies one of the fixed events the crawl engine fires.
type Name string

// The fixed event vocabulary from spec.md §4.6.
const (
	CrawlerInitBegin  Name = "CRAWLER_INIT_BEGIN"
	CrawlerInitEnd    Name = "CRAWLER_INIT_END"
	CrawlerRunBegin   Name = "CRAWLER_RUN_BEGIN"
	CrawlerRunEnd     Name = "CRAWLER_RUN_END"
	CrawlerStopBegin  Name = "CRAWLER_STOP_BEGIN"
	CrawlerStopEnd    Name = "CRAWLER_STOP_END"
	CrawlerCleanBegin Name = "CRAWLER_CLEAN_BEGIN"
	CrawlerCleanEnd   Name = "CRAWLER_CLEAN_END"

	DocumentImported        Name = "DOCUMENT_IMPORTED"
	DocumentCommittedAdd    Name = "DOCUMENT_COMMITTED_ADD"
	DocumentCommittedRemove Name = "DOCUMENT_COMMITTED_REMOVE"

	RejectedFilter     Name = "REJECTED_FILTER"
	RejectedUnmodified Name = "REJECTED_UNMODIFIED"
	RejectedNotFound   Name = "REJECTED_NOTFOUND"
	RejectedBadStatus  Name = "REJECTED_BAD_STATUS"
	RejectedImport     Name = "REJECTED_IMPORT"
	RejectedError      Name = "REJECTED_ERROR"
)

// Subject is a tagged union of the handful of payload types a listener
// might need to inspect. At most one of the accessor methods returns a
// non-zero value for any given Subject (none for SubjectNone); which one
// is determined by Kind.
//
// This replaces a loosely typed "any" subject field: listeners dispatch
// on Kind instead of performing a runtime type assertion.
type Subject struct {
	kind SubjectKind
	doc  any   // *document.Document, kept as any to avoid an import cycle
	err  error
	desc string
}

// SubjectKind discriminates the payload carried by a Subject.
type SubjectKind uint8

const (
	// SubjectNone indicates the event carries no payload beyond its
	// Reference.
	SubjectNone SubjectKind = iota
	// SubjectDocument indicates Subject.Document holds the event's
	// document payload.
	SubjectDocument
	// SubjectError indicates Subject.Err holds the event's error
	// payload.
	SubjectError
	// SubjectDescription indicates Subject.Description holds a short
	// human-readable string (e.g. an importer response's status
	// description).
	SubjectDescription
)

// Kind reports which accessor on Subject is meaningful.
func (s Subject) Kind() SubjectKind {
	return s.kind
}

// Document returns the document payload, or nil if Kind() is not
// SubjectDocument.
func (s Subject) Document() any {
	return s.doc
}

// Err returns the error payload, or nil if Kind() is not SubjectError.
func (s Subject) Err() error {
	return s.err
}

// Description returns the description payload, or "" if Kind() is not
// SubjectDescription.
func (s Subject) Description() string {
	return s.desc
}

// NoSubject returns the zero Subject, used by events that carry no
// payload beyond their Reference.
func NoSubject() Subject {
	return Subject{kind: SubjectNone}
}

// DocumentSubject wraps a document payload.
func DocumentSubject(doc any) Subject {
	return Subject{kind: SubjectDocument, doc: doc}
}

// ErrSubject wraps an error payload.
func ErrSubject(err error) Subject {
	return Subject{kind: SubjectError, err: err}
}

// DescriptionSubject wraps a short description payload.
func DescriptionSubject(desc string) Subject {
	return Subject{kind: SubjectDescription, desc: desc}
}

// Event is a single notification fired by the crawl engine.
type Event struct {
	Name      Name
	Reference *reference.Reference
	Subject   Subject
}

// New creates an Event with no subject payload.
func New(name Name, ref *reference.Reference) Event {
	return Event{Name: name, Reference: ref, Subject: NoSubject()}
}

// WithSubject creates an Event carrying the given subject payload.
func WithSubject(name Name, ref *reference.Reference, subject Subject) Event {
	return Event{Name: name, Reference: ref, Subject: subject}
}
