package ledger

import (
	"bytes"
	"sort"
	"sync"
)

// Bucket names a record kind. Each kind lives in its own keyspace.
type Bucket string

const (
	BucketEvents         Bucket = "events"
	BucketContributions  Bucket = "contributions"
	BucketEscrows        Bucket = "escrows"
	BucketBudgets        Bucket = "budgets"
	BucketVotes          Bucket = "votes"
	BucketMilestoneVotes Bucket = "milestone_votes"
	BucketPools          Bucket = "pools"
	BucketClaims         Bucket = "claims"
	BucketTickets        Bucket = "tickets"
	BucketCounters       Bucket = "counters"
)

// Buckets lists every record kind.
var Buckets = []Bucket{
	BucketEvents, BucketContributions, BucketEscrows, BucketBudgets, BucketVotes,
	BucketMilestoneVotes, BucketPools, BucketClaims, BucketTickets, BucketCounters,
}

// Tx is a view of the store inside one transaction.
type Tx interface {
	// Get returns the value for key, or nil if absent. The slice is only
	// valid for the life of the transaction.
	Get(b Bucket, key []byte) []byte

	// Put stores value under key.
	Put(b Bucket, key, value []byte) error

	// ForEach calls fn for every key with the given prefix, in key order.
	ForEach(b Bucket, prefix []byte, fn func(k, v []byte) error) error
}

// Store is a transactional key-value store. Update transactions are
// serialized and all-or-nothing: if fn returns an error nothing it wrote
// becomes visible.
type Store interface {
	View(fn func(tx Tx) error) error
	Update(fn func(tx Tx) error) error
	Close() error
}

// ---------------------------------------------------------------------------
// MemStore implements Store in memory.
// ---------------------------------------------------------------------------

// MemStore is an in-memory Store, suitable for tests and ephemeral engines.
type MemStore struct {
	mu     sync.RWMutex
	data   map[Bucket]map[string][]byte
	closed bool
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	data := make(map[Bucket]map[string][]byte, len(Buckets))
	for _, b := range Buckets {
		data[b] = make(map[string][]byte)
	}
	return &MemStore{data: data}
}

// View runs fn against a read-only snapshot.
func (s *MemStore) View(fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&memTx{store: s})
}

// Update runs fn with exclusive write access. Writes are staged and applied
// only when fn returns nil.
func (s *MemStore) Update(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	tx := &memTx{store: s, writable: true, staged: make(map[Bucket]map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for b, kv := range tx.staged {
		for k, v := range kv {
			s.data[b][k] = v
		}
	}
	return nil
}

// Close marks the store closed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memTx struct {
	store    *MemStore
	writable bool
	staged   map[Bucket]map[string][]byte
}

func (tx *memTx) Get(b Bucket, key []byte) []byte {
	if v, ok := tx.staged[b][string(key)]; ok {
		return v
	}
	return tx.store.data[b][string(key)]
}

func (tx *memTx) Put(b Bucket, key, value []byte) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if _, ok := tx.store.data[b]; !ok {
		return NewError(ErrInvalidArgument, "ledger: unknown bucket "+string(b))
	}
	kv := tx.staged[b]
	if kv == nil {
		kv = make(map[string][]byte)
		tx.staged[b] = kv
	}
	kv[string(key)] = append([]byte(nil), value...)
	return nil
}

func (tx *memTx) ForEach(b Bucket, prefix []byte, fn func(k, v []byte) error) error {
	seen := make(map[string]struct{})
	var keys []string
	collect := func(kv map[string][]byte) {
		for k := range kv {
			if _, dup := seen[k]; dup || !bytes.HasPrefix([]byte(k), prefix) {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	collect(tx.staged[b])
	collect(tx.store.data[b])
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn([]byte(k), tx.Get(b, []byte(k))); err != nil {
			return err
		}
	}
	return nil
}
