package boltstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/crawlcore/crawlcore/reference"
	"github.com/crawlcore/crawlcore/store"
	"github.com/crawlcore/crawlcore/store/boltstore"
)

func newTestStore(t *testing.T) *boltstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crawl.bolt")
	s, err := boltstore.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := s.Open(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestQueueAndNextQueuedRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ref := reference.NewRoot("a")
	if err := s.Queue(ctx, ref); err != nil {
		t.Fatal(err)
	}

	got, err := s.NextQueued(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Key != "a" {
		t.Fatalf("expected to dequeue %q, got %v", "a", got)
	}

	active, err := s.ActiveCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != 1 {
		t.Fatalf("expected 1 active entry, got %d", active)
	}
}

func TestQueueIdempotentOnKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ref := reference.NewRoot("a")
	if err := s.Queue(ctx, ref); err != nil {
		t.Fatal(err)
	}
	ref.ContentType = "text/html"
	if err := s.Queue(ctx, ref); err != nil {
		t.Fatal(err)
	}

	n, err := s.QueuedCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one queued entry, got %d", n)
	}

	got, err := s.NextQueued(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentType != "text/html" {
		t.Fatal("expected the last-written non-key field to win")
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Queue(ctx, reference.NewRoot(k)); err != nil {
			t.Fatal(err)
		}
	}

	var order []string
	for i := 0; i < 3; i++ {
		ref, err := s.NextQueued(ctx)
		if err != nil {
			t.Fatal(err)
		}
		order = append(order, ref.Key)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected FIFO order %v, got %v", want, order)
		}
	}
}

func TestProcessedPartitionsByState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := reference.NewRoot("good")
	good.State = reference.New
	if err := s.Queue(ctx, good); err != nil {
		t.Fatal(err)
	}
	bad := reference.NewRoot("bad")
	bad.State = reference.Error
	if err := s.Queue(ctx, bad); err != nil {
		t.Fatal(err)
	}

	g, _ := s.NextQueued(ctx)
	b, _ := s.NextQueued(ctx)
	if err := s.Processed(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := s.Processed(ctx, b); err != nil {
		t.Fatal(err)
	}

	count, err := s.ProcessedCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 processed entries, got %d", count)
	}

	active, _ := s.ActiveCount(ctx)
	if active != 0 {
		t.Fatal("expected active to be empty after Processed")
	}
}

func TestProcessedRemovesFromCached(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/crawl.bolt"
	ctx := context.Background()

	// Run 1: process "a" as good, then close.
	s1, err := boltstore.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.Open(ctx, false); err != nil {
		t.Fatal(err)
	}
	seed := reference.NewRoot("a")
	seed.State = reference.New
	if err := s1.Queue(ctx, seed); err != nil {
		t.Fatal(err)
	}
	dequeued, _ := s1.NextQueued(ctx)
	if err := s1.Processed(ctx, dequeued); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	// Run 2: a fresh open promotes processedValid -> cached.
	s2, err := boltstore.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s2.Close() })
	if _, err := s2.Open(ctx, false); err != nil {
		t.Fatal(err)
	}
	cached, err := s2.GetCached(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if cached == nil {
		t.Fatal("expected the previous good processedValid entry to be promoted to cached")
	}

	// Re-encounter "a" and finalize it again this run: it must be
	// removed from cached per spec.md invariant 3.
	if err := s2.Queue(ctx, reference.NewRoot("a")); err != nil {
		t.Fatal(err)
	}
	reDequeued, _ := s2.NextQueued(ctx)
	reDequeued.State = reference.Unmodified
	if err := s2.Processed(ctx, reDequeued); err != nil {
		t.Fatal(err)
	}

	stillCached, err := s2.GetCached(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if stillCached != nil {
		t.Fatal("expected Processed to remove the entry from cached")
	}
}

func TestOpenResumeMovesActiveBackToQueued(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/crawl.bolt"

	s1, err := boltstore.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := s1.Open(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := s1.Queue(ctx, reference.NewRoot("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := s1.NextQueued(ctx); err != nil {
		t.Fatal(err)
	}
	// Simulate a crash: close without finalizing the active entry.
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := boltstore.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s2.Close() })
	resuming, err := s2.Open(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if !resuming {
		t.Fatal("expected Open(resume=true) to report resuming")
	}

	active, err := s2.ActiveCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != 0 {
		t.Fatal("expected active to be empty after a resume reconciliation")
	}
	queued, err := s2.QueuedCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if queued != 1 {
		t.Fatalf("expected the in-flight reference to be requeued, got %d queued", queued)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src, err := boltstore.Open(dir+"/src.bolt", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := src.Open(ctx, false); err != nil {
		t.Fatal(err)
	}
	good := reference.NewRoot("a")
	good.State = reference.New
	if err := src.Queue(ctx, good); err != nil {
		t.Fatal(err)
	}
	dq, _ := src.NextQueued(ctx)
	if err := src.Processed(ctx, dq); err != nil {
		t.Fatal(err)
	}
	if err := src.Queue(ctx, reference.NewRoot("b")); err != nil {
		t.Fatal(err)
	}

	entries, err := src.ExportAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var dumped []store.Entry
	for e := range entries {
		dumped = append(dumped, e)
	}
	if len(dumped) != 2 {
		t.Fatalf("expected 2 exported entries, got %d", len(dumped))
	}
	_ = src.Close()

	dst, err := boltstore.Open(dir+"/dst.bolt", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = dst.Close() })
	if _, err := dst.Open(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := dst.ImportAll(ctx, func(yield func(store.Entry) bool) {
		for _, e := range dumped {
			if !yield(e) {
				return
			}
		}
	}); err != nil {
		t.Fatal(err)
	}

	count, err := dst.ProcessedCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 processed entry after import, got %d", count)
	}
	qc, err := dst.QueuedCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if qc != 1 {
		t.Fatalf("expected 1 queued entry after import, got %d", qc)
	}
}
