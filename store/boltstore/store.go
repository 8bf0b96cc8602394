package boltstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/crawlcore/crawlcore/reference"
	"github.com/crawlcore/crawlcore/store"
	"go.etcd.io/bbolt"
)

var (
	bucketQueued           = []byte("queued")
	bucketQueuedIndex      = []byte("queued_index")
	bucketActive           = []byte("active")
	bucketProcessedValid   = []byte("processed_valid")
	bucketProcessedInvalid = []byte("processed_invalid")
	bucketCached           = []byte("cached")

	allBuckets = [][]byte{
		bucketQueued, bucketQueuedIndex, bucketActive,
		bucketProcessedValid, bucketProcessedInvalid, bucketCached,
	}
)

// Store is a bbolt-backed store.CrawlStore.
type Store struct {
	db   *bbolt.DB
	log  *slog.Logger
	open bool
}

// Open opens (creating if necessary) the bolt file at path and returns a
// Store ready to have its own Open method called.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	return &Store{db: db, log: log}, nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// Open performs the start-of-run reconciliation described in spec.md
// §4.1, creating the required buckets on first use.
func (s *Store) Open(ctx context.Context, resume bool) (bool, error) {
	if s.open {
		return false, store.ErrAlreadyOpen
	}
	resuming := resume
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		if resume {
			return s.reconcileResume(tx)
		}
		return s.reconcileFresh(tx)
	})
	if err != nil {
		return false, err
	}
	s.open = true
	return resuming, nil
}

// reconcileResume moves every active entry back into queued.
func (s *Store) reconcileResume(tx *bbolt.Tx) error {
	active := tx.Bucket(bucketActive)
	queued := tx.Bucket(bucketQueued)
	index := tx.Bucket(bucketQueuedIndex)

	var keys [][]byte
	c := active.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		data := active.Get(k)
		if err := active.Delete(k); err != nil {
			return err
		}
		seq, err := queued.NextSequence()
		if err != nil {
			return err
		}
		if err := queued.Put(seqKey(seq), data); err != nil {
			return err
		}
		if err := index.Put(k, seqKey(seq)); err != nil {
			return err
		}
	}
	return nil
}

// reconcileFresh clears cached/active/queued/processedInvalid, and
// drains processedValid (good states only) into a fresh cached.
func (s *Store) reconcileFresh(tx *bbolt.Tx) error {
	for _, name := range [][]byte{bucketCached, bucketActive, bucketQueued, bucketQueuedIndex, bucketProcessedInvalid} {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return err
		}
	}

	processedValid := tx.Bucket(bucketProcessedValid)
	cached := tx.Bucket(bucketCached)
	c := processedValid.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		ref, err := decodeReference(v)
		if err != nil {
			return err
		}
		if !ref.State.IsGoodState() {
			continue
		}
		if err := cached.Put(k, v); err != nil {
			return err
		}
	}
	if err := tx.DeleteBucket(bucketProcessedValid); err != nil {
		return err
	}
	_, err := tx.CreateBucket(bucketProcessedValid)
	return err
}

// Close flushes and releases the underlying bolt file.
func (s *Store) Close() error {
	s.open = false
	return s.db.Close()
}

// Queue inserts a defensive copy of ref into the queued partition,
// updating it in place (preserving FIFO position) if ref.Key is already
// queued.
func (s *Store) Queue(ctx context.Context, ref *reference.Reference) error {
	if !s.open {
		return store.ErrNotOpen
	}
	cp := ref.Copy()
	data, err := encodeReference(cp)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		queued := tx.Bucket(bucketQueued)
		index := tx.Bucket(bucketQueuedIndex)
		if existing := index.Get([]byte(cp.Key)); existing != nil {
			return queued.Put(existing, data)
		}
		seq, err := queued.NextSequence()
		if err != nil {
			return err
		}
		key := seqKey(seq)
		if err := queued.Put(key, data); err != nil {
			return err
		}
		return index.Put([]byte(cp.Key), key)
	})
}

// NextQueued atomically pops the head of queued and moves it to active.
func (s *Store) NextQueued(ctx context.Context) (*reference.Reference, error) {
	if !s.open {
		return nil, store.ErrNotOpen
	}
	var ref *reference.Reference
	err := s.db.Update(func(tx *bbolt.Tx) error {
		queued := tx.Bucket(bucketQueued)
		index := tx.Bucket(bucketQueuedIndex)
		active := tx.Bucket(bucketActive)

		c := queued.Cursor()
		k, v := c.First()
		if k == nil {
			return nil
		}
		decoded, err := decodeReference(v)
		if err != nil {
			return err
		}
		ref = decoded

		if err := queued.Delete(append([]byte(nil), k...)); err != nil {
			return err
		}
		if err := index.Delete([]byte(ref.Key)); err != nil {
			return err
		}
		return active.Put([]byte(ref.Key), v)
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// Processed atomically removes ref from active and cached, and inserts
// it into processedValid or processedInvalid depending on its state.
func (s *Store) Processed(ctx context.Context, ref *reference.Reference) error {
	if !s.open {
		return store.ErrNotOpen
	}
	cp := ref.Copy()
	data, err := encodeReference(cp)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(cp.Key)
		if err := tx.Bucket(bucketActive).Delete(key); err != nil {
			return err
		}
		if err := tx.Bucket(bucketCached).Delete(key); err != nil {
			return err
		}
		dest := bucketProcessedInvalid
		if cp.State.IsGoodState() || cp.State == reference.Deleted {
			dest = bucketProcessedValid
		}
		return tx.Bucket(dest).Put(key, data)
	})
}

// GetCached returns a defensive copy of the cached entry for key.
func (s *Store) GetCached(ctx context.Context, key string) (*reference.Reference, error) {
	if !s.open {
		return nil, store.ErrNotOpen
	}
	var ref *reference.Reference
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCached).Get([]byte(key))
		if data == nil {
			return nil
		}
		decoded, err := decodeReference(data)
		if err != nil {
			return err
		}
		ref = decoded
		return nil
	})
	return ref, err
}

// CachedIterable returns a snapshot iterator over every entry remaining
// in the cached partition.
func (s *Store) CachedIterable(ctx context.Context) (iter.Seq[*reference.Reference], error) {
	if !s.open {
		return nil, store.ErrNotOpen
	}
	var refs []*reference.Reference
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketCached).Cursor()
		for _, v := c.First(); v != nil; _, v = c.Next() {
			ref, err := decodeReference(v)
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func(yield func(*reference.Reference) bool) {
		for _, ref := range refs {
			if !yield(ref) {
				return
			}
		}
	}, nil
}

func (s *Store) bucketCount(name []byte) (int, error) {
	if !s.open {
		return 0, store.ErrNotOpen
	}
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(name).Stats().KeyN
		return nil
	})
	return count, err
}

// QueuedCount returns the number of entries in the queued partition.
func (s *Store) QueuedCount(ctx context.Context) (int, error) { return s.bucketCount(bucketQueued) }

// ActiveCount returns the number of entries in the active partition.
func (s *Store) ActiveCount(ctx context.Context) (int, error) { return s.bucketCount(bucketActive) }

// ProcessedCount returns processedValid.size() + processedInvalid.size().
func (s *Store) ProcessedCount(ctx context.Context) (int, error) {
	valid, err := s.bucketCount(bucketProcessedValid)
	if err != nil {
		return 0, err
	}
	invalid, err := s.bucketCount(bucketProcessedInvalid)
	if err != nil {
		return 0, err
	}
	return valid + invalid, nil
}

// IsQueueEmpty reports whether the queued partition has no entries.
func (s *Store) IsQueueEmpty(ctx context.Context) (bool, error) {
	n, err := s.bucketCount(bucketQueued)
	return n == 0, err
}

// IsCacheEmpty reports whether the cached partition has no entries.
func (s *Store) IsCacheEmpty(ctx context.Context) (bool, error) {
	n, err := s.bucketCount(bucketCached)
	return n == 0, err
}

var _ store.CrawlStore = (*Store)(nil)
