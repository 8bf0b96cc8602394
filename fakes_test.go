package crawlcore_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/crawlcore/crawlcore"
	"github.com/crawlcore/crawlcore/document"
	"github.com/crawlcore/crawlcore/reference"
)

// fakeWrapper produces an empty document for every reference, optionally
// failing for keys listed in failKeys.
type fakeWrapper struct {
	failKeys map[string]bool
}

func (w fakeWrapper) Wrap(ctx context.Context, ref *reference.Reference) (*document.Document, error) {
	if w.failKeys[ref.Key] {
		return nil, fmt.Errorf("fake wrap failure for %q", ref.Key)
	}
	doc := document.New()
	doc.Set("key", ref.Key)
	return doc, nil
}

// blockingWrapper produces an empty document for every reference but
// does not return until release is closed, used to hold a scheduler
// worker busy for the duration of a test.
type blockingWrapper struct {
	release <-chan struct{}
}

func (w blockingWrapper) Wrap(ctx context.Context, ref *reference.Reference) (*document.Document, error) {
	select {
	case <-w.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return document.New(), nil
}

// fakeImporter accepts every document, optionally producing nested
// references and/or rejecting specific keys.
type fakeImporter struct {
	nested     map[string][]*reference.Reference
	rejectKeys map[string]bool
	failKeys   map[string]bool
	noneKeys   map[string]bool
}

func (i fakeImporter) Import(ctx context.Context, pc *crawlcore.PipelineContext) (*crawlcore.ImporterResponse, error) {
	key := pc.Ref.Key
	if i.failKeys[key] {
		return nil, fmt.Errorf("fake import failure for %q", key)
	}
	if i.noneKeys[key] {
		return nil, nil
	}
	if i.rejectKeys[key] {
		return &crawlcore.ImporterResponse{Success: false, Description: "rejected by fake importer"}, nil
	}
	return &crawlcore.ImporterResponse{
		Document: pc.Document,
		Success:  true,
		Nested:   i.nested[key],
	}, nil
}

// fakeSpoilPolicy returns a fixed Action regardless of the reference
// handed to it.
type fakeSpoilPolicy struct {
	action crawlcore.Action
}

func (p fakeSpoilPolicy) Decide(ref *reference.Reference) crawlcore.Action {
	return p.action
}

// fakeCommitter records every Add/Remove call it receives, optionally
// failing Add for keys listed in failKeys to simulate a downstream sink
// fault (an unhandled, stability-compromising error rather than a
// per-reference rejection).
type fakeCommitter struct {
	mu       sync.Mutex
	added    []string
	removed  []string
	failKeys map[string]bool
}

func (c *fakeCommitter) Add(ctx context.Context, pc *crawlcore.PipelineContext) error {
	if c.failKeys[pc.Ref.Key] {
		return fmt.Errorf("fake commit failure for %q", pc.Ref.Key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, pc.Ref.Key)
	return nil
}

func (c *fakeCommitter) Remove(ctx context.Context, pc *crawlcore.PipelineContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, pc.Ref.Key)
	return nil
}

func (c *fakeCommitter) addedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.added))
	copy(out, c.added)
	return out
}

func (c *fakeCommitter) removedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.removed))
	copy(out, c.removed)
	return out
}
