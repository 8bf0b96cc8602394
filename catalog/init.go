package catalog

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

func createRunsTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*runModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createRunsStartedIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*runModel)(nil)).
		Index("idx_runs_started_at").
		Column("started_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createEntriesTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*entryModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createEntriesRunIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*entryModel)(nil)).
		Index("idx_snapshot_entries_run").
		Column("run_id").
		IfNotExists().
		Exec(ctx)
	return err
}

func initDB(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createRunsTable(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createRunsStartedIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createEntriesTable(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createEntriesRunIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// InitDB initializes the runs and snapshot_entries tables and their
// indexes inside a single transaction, rolling back on any failure.
//
// InitDB is idempotent and may be safely called multiple times.
func InitDB(ctx context.Context, db *bun.DB) error {
	return initDB(ctx, db)
}

// MustInitDB behaves like InitDB but panics if initialization fails.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := initDB(ctx, db); err != nil {
		panic(err)
	}
}
