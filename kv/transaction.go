package kv

// entry is what a transaction layer records for a path: either a cached
// value (from the backing store or a write in this layer) or a tombstone
// marking a delete.
type entry struct {
	value     []byte
	tombstone bool
}

// Transaction is one layer of the stack-of-layers model described by the
// kernel's data model: a local snapshot of writes, a read set of
// consulted paths, a pending outbox buffer, and a begin timestamp.
// Child layers (EnterChild) shadow their parent's reads and writes until
// they commit or roll back.
type Transaction struct {
	storage *Storage
	parent  *Transaction
	beginTS Timestamp

	written map[string]entry
	reads   map[string]struct{}
	outbox  []OutboxMessage

	done bool
}

// EnterChild pushes a nested layer sharing this transaction's clock.
// Nested layers do not perform OCC validation on commit; they merge
// directly into their parent.
func (tx *Transaction) EnterChild() *Transaction {
	return &Transaction{
		storage: tx.storage,
		parent:  tx,
		beginTS: tx.beginTS,
		written: make(map[string]entry),
		reads:   make(map[string]struct{}),
	}
}

// root walks up to the outermost transaction in the layer stack.
func (tx *Transaction) root() *Transaction {
	t := tx
	for t.parent != nil {
		t = t.parent
	}
	return t
}

// Get searches from this layer downward to the backing store. A
// tombstone in any layer on the path to the root short-circuits the
// search and returns "not found" without consulting the store. Reads
// that fall through to the backing store are cached in this layer so
// later reads in the same layer are consistent even if a deeper layer
// is later rolled back.
func (tx *Transaction) Get(path string) ([]byte, bool, error) {
	tx.reads[path] = struct{}{}
	for t := tx; t != nil; t = t.parent {
		if e, ok := t.written[path]; ok {
			if e.tombstone {
				return nil, false, nil
			}
			return e.value, true, nil
		}
	}
	presence, err := tx.storage.backing.Has(path)
	if err != nil {
		return nil, false, wrapStoreErr(path, err)
	}
	if !presence.HasValue() {
		return nil, false, nil
	}
	raw, err := tx.storage.backing.ReadAll(path)
	if err != nil {
		return nil, false, wrapStoreErr(path, err)
	}
	tx.written[path] = entry{value: raw}
	return raw, true, nil
}

// ContainsKey reports whether path holds a value. It goes through Get,
// so it records path in the read set and, on a fall-through to the
// backing store, reads and caches the value in this layer just as Get
// does.
func (tx *Transaction) ContainsKey(path string) (bool, error) {
	_, ok, err := tx.Get(path)
	return ok, err
}

// Insert writes value into this layer and marks path in the update set.
func (tx *Transaction) Insert(path string, value []byte) {
	buf := make([]byte, len(value))
	copy(buf, value)
	tx.written[path] = entry{value: buf}
}

// Remove marks path as deleted in this layer.
func (tx *Transaction) Remove(path string) {
	tx.written[path] = entry{tombstone: true}
}

// AppendOutbox queues a withdrawal outbox message, visible only once this
// transaction (and every ancestor layer) commits.
func (tx *Transaction) AppendOutbox(msg OutboxMessage) {
	tx.outbox = append(tx.outbox, msg)
}

// OutboxRemaining reports how many more outbox messages this transaction
// (and any already-open ancestor layers) may still queue before the
// level's outbox capacity is exhausted, so a caller can reject an
// over-capacity withdrawal as an ordinary execution error instead of
// letting it surface only at the eventual root commit.
func (tx *Transaction) OutboxRemaining() int {
	remaining := tx.storage.OutboxRemaining()
	for t := tx; t != nil; t = t.parent {
		remaining -= len(t.outbox)
	}
	return remaining
}

// CountSubkeys delegates to the backing store; layered writes are not
// reflected in the count since the kernel only ever queries this for
// paths outside an in-flight layer's pending writes (e.g. ticket table
// enumeration at commit boundaries).
func (tx *Transaction) CountSubkeys(prefix string) (uint64, error) {
	n, err := tx.storage.backing.CountSubkeys(prefix)
	if err != nil {
		return 0, wrapStoreErr(prefix, err)
	}
	return n, nil
}

// Commit finalizes this layer. A non-root layer merges its writes, read
// set, and outbox buffer into its parent with no validation. The root
// layer is validated with OCC and, on success, flushed to the backing
// store and the level outbox.
func (tx *Transaction) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.parent == nil {
		return tx.storage.commitRoot(tx)
	}
	p := tx.parent
	for path, e := range tx.written {
		p.written[path] = e
	}
	for path := range tx.reads {
		p.reads[path] = struct{}{}
	}
	p.outbox = append(p.outbox, tx.outbox...)
	return nil
}

// Rollback discards this layer and its outbox buffer; the parent (or
// backing store, for a root layer) is left untouched.
func (tx *Transaction) Rollback() {
	tx.done = true
}
