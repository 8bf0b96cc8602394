package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrRunNotFound is returned by Finish when no run with the given id
// exists.
var ErrRunNotFound = errors.New("catalog: run not found")

// RunSummary is a point-in-time snapshot of a crawl run's ledger row.
type RunSummary struct {
	Id             uuid.UUID
	StartedAt      time.Time
	EndedAt        *time.Time
	Resumed        bool
	SeedCount      int64
	ProcessedCount int64
	SpoiledCount   int64
	OrphanCount    int64
	Err            string
}

// RunLedger records the lifecycle of crawl runs in a runs table.
type RunLedger struct {
	db *bun.DB
}

// NewRunLedger creates a RunLedger over db. The caller must have run
// InitDB first.
func NewRunLedger(db *bun.DB) *RunLedger {
	return &RunLedger{db: db}
}

// Start opens a new run row, returning its generated id.
func (l *RunLedger) Start(ctx context.Context, resumed bool, seedCount int64) (uuid.UUID, error) {
	m := &runModel{
		Id:        uuid.New(),
		StartedAt: time.Now(),
		Resumed:   resumed,
		SeedCount: seedCount,
	}
	if _, err := l.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return uuid.Nil, err
	}
	return m.Id, nil
}

// Finish closes a run row with final tallies. runErr, if non-nil, is
// recorded as the run's terminal error message.
func (l *RunLedger) Finish(ctx context.Context, id uuid.UUID, processed, spoiled, orphans int64, runErr error) error {
	now := time.Now()
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	res, err := l.db.NewUpdate().
		Model((*runModel)(nil)).
		Set("ended_at = ?", now).
		Set("processed_count = ?", processed).
		Set("spoiled_count = ?", spoiled).
		Set("orphan_count = ?", orphans).
		Set("err = ?", errText).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run by id, returning (nil, nil) if it does not exist.
func (l *RunLedger) Get(ctx context.Context, id uuid.UUID) (*RunSummary, error) {
	var m runModel
	err := l.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, errNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return toSummary(&m), nil
}

// Recent returns up to limit runs, most recently started first. A
// non-positive limit returns every run.
func (l *RunLedger) Recent(ctx context.Context, limit int) ([]*RunSummary, error) {
	var models []*runModel
	query := l.db.NewSelect().Model(&models).Order("started_at DESC")
	if limit > 0 {
		query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*RunSummary, len(models))
	for i, m := range models {
		out[i] = toSummary(m)
	}
	return out, nil
}

func toSummary(m *runModel) *RunSummary {
	return &RunSummary{
		Id:             m.Id,
		StartedAt:      m.StartedAt,
		EndedAt:        m.EndedAt,
		Resumed:        m.Resumed,
		SeedCount:      m.SeedCount,
		ProcessedCount: m.ProcessedCount,
		SpoiledCount:   m.SpoiledCount,
		OrphanCount:    m.OrphanCount,
		Err:            m.Err,
	}
}
