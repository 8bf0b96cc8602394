package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// runModel is the bun model backing the runs table: one row per crawl
// run, opened by RunLedger.Start and closed by RunLedger.Finish.
type runModel struct {
	bun.BaseModel `bun:"table:runs"`

	Id uuid.UUID `bun:"id,pk,type:uuid"`

	StartedAt time.Time  `bun:"started_at,notnull,default:current_timestamp"`
	EndedAt   *time.Time `bun:"ended_at,nullzero"`

	Resumed bool `bun:"resumed,notnull,default:false"`

	SeedCount      int64 `bun:"seed_count,notnull,default:0"`
	ProcessedCount int64 `bun:"processed_count,notnull,default:0"`
	SpoiledCount   int64 `bun:"spoiled_count,notnull,default:0"`
	OrphanCount    int64 `bun:"orphan_count,notnull,default:0"`

	// Err holds the terminal error message for a run that failed, or
	// the empty string for a run that finished cleanly.
	Err string `bun:"err,notnull,default:''"`
}

// entryModel is the bun model backing the snapshot_entries table: one
// row per store.Entry captured by Snapshot, tagged with the run that
// produced it so a given snapshot can be restored selectively.
type entryModel struct {
	bun.BaseModel `bun:"table:snapshot_entries"`

	Id int64 `bun:"id,pk,autoincrement"`

	RunId     uuid.UUID `bun:"run_id,notnull,type:uuid"`
	Partition string    `bun:"partition,notnull"`
	Key       string    `bun:"key,notnull"`

	// Data holds the gob-encoded reference.Reference, mirroring the
	// encoding store/boltstore uses internally, so Snapshot/Restore
	// round-trip exactly the fields boltstore itself persists.
	Data []byte `bun:"data,type:blob"`
}
