package crawlcore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/crawlcore/crawlcore"
	"github.com/crawlcore/crawlcore/event"
	"github.com/crawlcore/crawlcore/reference"
	"github.com/crawlcore/crawlcore/store/boltstore"
)

// newOrphanedStore processes "a" as good, closes, and reopens so the
// fresh Open promotes it into the cached partition without it being
// re-queued — exactly the situation OrphanHandler is meant to resolve.
func newOrphanedStore(t *testing.T) *boltstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crawl.bolt")
	ctx := context.Background()

	s1, err := boltstore.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.Open(ctx, false); err != nil {
		t.Fatal(err)
	}
	ref := reference.NewRoot("a")
	ref.State = reference.New
	if err := s1.Queue(ctx, ref); err != nil {
		t.Fatal(err)
	}
	dq, err := s1.NextQueued(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Processed(ctx, dq); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := boltstore.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s2.Close() })
	if _, err := s2.Open(ctx, false); err != nil {
		t.Fatal(err)
	}
	return s2
}

func TestOrphanHandlerIgnoreLeavesCacheUntouched(t *testing.T) {
	s := newOrphanedStore(t)
	ctx := context.Background()
	committer := &fakeCommitter{}
	caps := crawlcore.Capabilities{Wrapper: fakeWrapper{}, Importer: fakeImporter{}, Committer: committer}
	driver := crawlcore.NewPipelineDriver(caps, s, nil, event.NewBus(nil))
	handler := crawlcore.NewOrphanHandler(s, driver, crawlcore.OrphanConfig{Strategy: crawlcore.OrphanIgnore}, event.NewBus(nil), nil)

	if err := handler.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if len(committer.removedKeys()) != 0 || len(committer.addedKeys()) != 0 {
		t.Fatal("expected OrphanIgnore to leave the committer untouched")
	}
	cached, err := s.GetCached(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if cached == nil {
		t.Fatal("expected the orphan to remain cached under OrphanIgnore")
	}
}

func TestOrphanHandlerDeleteRemovesFromCommitter(t *testing.T) {
	s := newOrphanedStore(t)
	ctx := context.Background()
	committer := &fakeCommitter{}
	caps := crawlcore.Capabilities{Wrapper: fakeWrapper{}, Importer: fakeImporter{}, Committer: committer}
	driver := crawlcore.NewPipelineDriver(caps, s, nil, event.NewBus(nil))
	handler := crawlcore.NewOrphanHandler(s, driver, crawlcore.OrphanConfig{Strategy: crawlcore.OrphanDelete}, event.NewBus(nil), nil)

	if err := handler.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if got := committer.removedKeys(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected committer.Remove(\"a\"), got %v", got)
	}
}

func TestOrphanHandlerProcessReencountersReference(t *testing.T) {
	s := newOrphanedStore(t)
	ctx := context.Background()
	committer := &fakeCommitter{}
	caps := crawlcore.Capabilities{Wrapper: fakeWrapper{}, Importer: fakeImporter{}, Committer: committer}
	driver := crawlcore.NewPipelineDriver(caps, s, nil, event.NewBus(nil))
	handler := crawlcore.NewOrphanHandler(s, driver, crawlcore.OrphanConfig{Strategy: crawlcore.OrphanProcess}, event.NewBus(nil), nil)

	if err := handler.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if got := committer.addedKeys(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected committer.Add(\"a\") from re-processing, got %v", got)
	}
}
