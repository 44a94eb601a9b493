// Package kv implements the optimistic transactional key-value store
// (C2): the central data-access abstraction mediating every read and
// write between the rest of the kernel and the raw path-addressed C1
// store. Transactions are snapshot-isolated, nestable, and validated at
// commit time using optimistic concurrency control.
package kv

import (
	"github.com/hashicorp/golang-lru/v2"

	"jstz.dev/kernel/internal/jlog"
	"jstz.dev/kernel/jstzerr"
	"jstz.dev/kernel/store"
)

// maxTxCount bounds the ring of recently-committed update sets consulted
// during OCC validation. Kept small and fixed, as in the original design:
// today the kernel is single-threaded so at most one transaction is ever
// in flight, but the ring is preserved as a contract for future parallel
// speculative execution.
const maxTxCount = 16

// OutboxMessage is a withdrawal payload queued by a committed transaction.
// Order is the position it was enqueued in relative to other messages
// flushed in the same commit.
type OutboxMessage struct {
	Receiver   string
	Ticketer   string
	Entrypoint string
	Ticket     []byte
	Order      int
}

// Storage is the root of the transactional KV store: one per kernel
// instance, shared across every message processed in a run.
type Storage struct {
	backing      store.Store
	clk          clock
	updateSets   *lru.Cache[uint64, map[string]struct{}]
	outboxCap    int
	outboxFlush  []OutboxMessage
	outboxSeq    int
}

// NewStorage wraps a raw store.Store with transactional semantics.
// outboxCapacity bounds how many outbox messages may be flushed between
// two ResetLevel calls; a non-positive capacity means no bound.
func NewStorage(backing store.Store, outboxCapacity int) *Storage {
	cache, _ := lru.New[uint64, map[string]struct{}](maxTxCount)
	return &Storage{
		backing:   backing,
		updateSets: cache,
		outboxCap: outboxCapacity,
	}
}

// ResetLevel clears the per-level outbox bookkeeping. kernel.Run does not
// call it, so until the embedding host does, the outbox capacity counts
// every message flushed since the Storage was created.
func (s *Storage) ResetLevel() {
	s.outboxFlush = s.outboxFlush[:0]
	s.outboxSeq = 0
}

// Outbox returns the outbox messages flushed by committed transactions
// since the last ResetLevel, in flush order.
func (s *Storage) Outbox() []OutboxMessage {
	return s.outboxFlush
}

// OutboxRemaining reports how many more outbox messages may be queued
// before OutboxFull triggers, for the current level.
func (s *Storage) OutboxRemaining() int {
	if s.outboxCap <= 0 {
		return 1<<31 - 1
	}
	return s.outboxCap - s.outboxSeq
}

// Begin starts a new root transaction, taking its snapshot timestamp from
// the Lamport clock.
func (s *Storage) Begin() *Transaction {
	return &Transaction{
		storage: s,
		beginTS: s.clk.current(),
		written: make(map[string]entry),
		reads:   make(map[string]struct{}),
	}
}

// commitRoot validates tx against the update-set ring, and on success
// assigns it a commit timestamp, records its update set, flushes its
// snapshot to the backing store, and appends its outbox buffer to the
// level's outbox. It is only ever called on a root (parentless)
// transaction; see Transaction.Commit.
func (s *Storage) commitRoot(tx *Transaction) error {
	possibleCommitTS := s.clk.current() + 1
	for ts := tx.beginTS + 1; ts < possibleCommitTS; ts++ {
		updateSet, ok := s.updateSets.Get(ts % maxTxCount)
		if !ok {
			continue
		}
		for path := range tx.reads {
			if _, conflict := updateSet[path]; conflict {
				return jstzerr.New(jstzerr.ConcurrencyConflict,
					"path %s read at ts=%d conflicts with commit at ts=%d", path, tx.beginTS, ts)
			}
		}
	}

	if len(tx.outbox) > 0 {
		if s.outboxSeq+len(tx.outbox) > s.outboxCap && s.outboxCap > 0 {
			return jstzerr.New(jstzerr.OutboxFull, "outbox capacity %d exceeded", s.outboxCap)
		}
	}

	updateSet := make(map[string]struct{}, len(tx.written))
	for path := range tx.written {
		updateSet[path] = struct{}{}
	}
	commitTS := s.clk.next()
	s.updateSets.Add(commitTS%maxTxCount, updateSet)

	for path, e := range tx.written {
		if e.tombstone {
			if err := s.backing.Delete(path); err != nil {
				return wrapStoreErr(path, err)
			}
			continue
		}
		if err := s.backing.WriteAll(path, e.value); err != nil {
			return wrapStoreErr(path, err)
		}
	}

	for _, msg := range tx.outbox {
		msg.Order = s.outboxSeq
		s.outboxSeq++
		s.outboxFlush = append(s.outboxFlush, msg)
	}

	jlog.Debugf("kv: committed root tx begin_ts=%d commit_ts=%d writes=%d outbox=%d",
		tx.beginTS, commitTS, len(tx.written), len(tx.outbox))
	return nil
}

func wrapStoreErr(path string, err error) error {
	if serr, ok := err.(*store.Error); ok {
		return jstzerr.New(jstzerr.StoreError, "%s: %s", path, serr.Kind)
	}
	return jstzerr.New(jstzerr.StoreError, "%s: %v", path, err)
}
