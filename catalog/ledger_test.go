package catalog_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/crawlcore/crawlcore/catalog"
)

func TestRunLedgerStartFinishGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ledger := catalog.NewRunLedger(db)

	id, err := ledger.Start(ctx, false, 10)
	if err != nil {
		t.Fatal(err)
	}

	summary, err := ledger.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if summary == nil {
		t.Fatal("expected a run row immediately after Start")
	}
	if summary.EndedAt != nil {
		t.Fatal("expected EndedAt to be nil before Finish")
	}

	if err := ledger.Finish(ctx, id, 8, 2, 1, nil); err != nil {
		t.Fatal(err)
	}
	summary, err = ledger.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if summary.EndedAt == nil {
		t.Fatal("expected EndedAt to be set after Finish")
	}
	if summary.ProcessedCount != 8 || summary.SpoiledCount != 2 || summary.OrphanCount != 1 {
		t.Fatalf("unexpected tallies: %+v", summary)
	}
}

func TestRunLedgerFinishUnknownRun(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ledger := catalog.NewRunLedger(db)

	if err := ledger.Finish(ctx, uuid.New(), 0, 0, 0, nil); err != catalog.ErrRunNotFound {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunLedgerRecentOrdersNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ledger := catalog.NewRunLedger(db)

	first, err := ledger.Start(ctx, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Finish(ctx, first, 1, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	second, err := ledger.Start(ctx, false, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Finish(ctx, second, 2, 0, 0, nil); err != nil {
		t.Fatal(err)
	}

	runs, err := ledger.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Id != second {
		t.Fatal("expected the most recently started run first")
	}
}
