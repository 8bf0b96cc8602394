package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/crawlcore/crawlcore/catalog"
)

func TestRunCleanerDeletesOnlyFinishedRuns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ledger := catalog.NewRunLedger(db)
	cleaner := catalog.NewRunCleaner(db)

	finished, err := ledger.Start(ctx, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Finish(ctx, finished, 1, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	inProgress, err := ledger.Start(ctx, false, 1)
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := cleaner.Clean(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted run, got %d", deleted)
	}

	if got, err := ledger.Get(ctx, finished); err != nil || got != nil {
		t.Fatal("expected the finished run to be deleted")
	}
	if got, err := ledger.Get(ctx, inProgress); err != nil || got == nil {
		t.Fatal("expected the in-progress run to survive")
	}
}

func TestRunCleanerRespectsAgeThreshold(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ledger := catalog.NewRunLedger(db)
	cleaner := catalog.NewRunCleaner(db)

	id, err := ledger.Start(ctx, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Finish(ctx, id, 1, 0, 0, nil); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(-time.Hour)
	deleted, err := cleaner.Clean(ctx, &future)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Fatalf("expected a just-finished run to survive an hour-old threshold, got %d deleted", deleted)
	}

	now := time.Now().Add(time.Hour)
	deleted, err = cleaner.Clean(ctx, &now)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("expected the run to be deleted once past the threshold, got %d", deleted)
	}
}
