package boltstore

import (
	"context"
	"fmt"
	"iter"

	"github.com/crawlcore/crawlcore/store"
	"go.etcd.io/bbolt"
)

var partitionBuckets = []struct {
	partition store.Partition
	bucket    []byte
}{
	{store.Queued, bucketQueued},
	{store.Active, bucketActive},
	{store.ProcessedValid, bucketProcessedValid},
	{store.ProcessedInvalid, bucketProcessedInvalid},
	{store.Cached, bucketCached},
}

// ExportAll returns every entry in every partition, tagged with its
// partition. Queued entries are visited in FIFO order; the other
// partitions have no defined order. It backs the storeexport CLI verb.
func (s *Store) ExportAll(ctx context.Context) (iter.Seq[store.Entry], error) {
	if !s.open {
		return nil, store.ErrNotOpen
	}
	var entries []store.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		for _, pb := range partitionBuckets {
			c := tx.Bucket(pb.bucket).Cursor()
			for _, v := c.First(); v != nil; _, v = c.Next() {
				ref, err := decodeReference(v)
				if err != nil {
					return err
				}
				entries = append(entries, store.Entry{Partition: pb.partition, Reference: ref})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func(yield func(store.Entry) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}, nil
}

// ImportAll restores a full, partition-tagged dump produced by
// ExportAll. It must be called against a store whose partitions are
// empty (immediately after Open on a fresh backing file); ImportAll
// does not clear existing data first.
func (s *Store) ImportAll(ctx context.Context, entries iter.Seq[store.Entry]) error {
	if !s.open {
		return store.ErrNotOpen
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for e := range entries {
			data, err := encodeReference(e.Reference)
			if err != nil {
				return err
			}
			bucket, err := bucketFor(e.Partition)
			if err != nil {
				return err
			}
			key := []byte(e.Reference.Key)
			if e.Partition == store.Queued {
				seq, err := tx.Bucket(bucketQueued).NextSequence()
				if err != nil {
					return err
				}
				sk := seqKey(seq)
				if err := tx.Bucket(bucketQueued).Put(sk, data); err != nil {
					return err
				}
				if err := tx.Bucket(bucketQueuedIndex).Put(key, sk); err != nil {
					return err
				}
				continue
			}
			if err := tx.Bucket(bucket).Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func bucketFor(p store.Partition) ([]byte, error) {
	for _, pb := range partitionBuckets {
		if pb.partition == p {
			return pb.bucket, nil
		}
	}
	return nil, fmt.Errorf("boltstore: unknown partition %q", p)
}

var _ store.Exporter = (*Store)(nil)
var _ store.Importer = (*Store)(nil)
