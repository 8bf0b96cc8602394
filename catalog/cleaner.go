package catalog

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// RunCleaner permanently removes finished run rows (and the snapshot
// entries tagged under them) from the ledger. It is intended for
// retention management: an operator does not want the runs table
// growing unbounded across years of daily crawls.
type RunCleaner struct {
	db *bun.DB
}

// NewRunCleaner creates a RunCleaner over db.
func NewRunCleaner(db *bun.DB) *RunCleaner {
	return &RunCleaner{db: db}
}

// Clean deletes every run whose ended_at is non-null and, if before is
// non-nil, at or before *before. A nil before deletes every finished
// run regardless of age. Runs still in progress (ended_at IS NULL) are
// never deleted.
//
// Clean returns the number of deleted runs. Snapshot entries belonging
// to deleted runs are removed in the same pass.
func (c *RunCleaner) Clean(ctx context.Context, before *time.Time) (int64, error) {
	return c.clean(ctx, before)
}

func (c *RunCleaner) clean(ctx context.Context, before *time.Time) (int64, error) {
	var ids []string
	query := c.db.NewSelect().Model((*runModel)(nil)).Column("id").Where("ended_at IS NOT NULL")
	if before != nil {
		query.Where("ended_at <= ?", before)
	}
	if err := query.Scan(ctx, &ids); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*entryModel)(nil)).Where("run_id IN (?)", bun.In(ids)).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*runModel)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
		if err != nil {
			return err
		}
		deleted = getAffected(res)
		return nil
	})
	return deleted, err
}
