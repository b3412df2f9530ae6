package graph

import (
	"fmt"

	"github.com/raipankaj/KoreDB/engine"
	"github.com/raipankaj/KoreDB/model"
)

// Transaction buffers a batch of puts in memory until Commit, per spec.md
// §4.10: "A Transaction object buffers the batch in memory... commit(urgent)
// issues a single write_batch... rollback discards the buffer." Reusing a
// Transaction after Commit or Rollback is a programmer error.
type Transaction struct {
	store *Store
	buf   model.Batch
	done  bool
}

// Begin starts a new Transaction against s.
func (s *Store) Begin() *Transaction {
	return &Transaction{store: s}
}

func (tx *Transaction) checkOpen() error {
	if tx.done {
		return fmt.Errorf("%w: transaction already committed or rolled back", engine.ErrInvalidState)
	}
	return nil
}

// Put appends an arbitrary (key, value) record to the buffer.
func (tx *Transaction) Put(key, value []byte) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	tx.buf = append(tx.buf, model.Record{Key: key, Value: value})
	return nil
}

// PutNode buffers n's record plus its label/property index records.
func (tx *Transaction) PutNode(n Node) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	if err := validateKeyParts(n.ID); err != nil {
		return err
	}
	tx.buf = append(tx.buf, model.Record{Key: model.NodeKey(n.ID), Value: n.Data})
	for _, label := range n.Labels {
		if err := validateKeyParts(label); err != nil {
			return err
		}
		tx.buf = append(tx.buf, model.Record{Key: model.NodeLabelIndexKey(label, n.ID), Value: model.Presence})
		for k, v := range n.Properties {
			if err := validateKeyParts(k, v); err != nil {
				return err
			}
			tx.buf = append(tx.buf, model.Record{
				Key:   model.NodePropertyIndexKey(label, k, v, n.ID),
				Value: model.Presence,
			})
		}
	}
	return nil
}

// PutEdge buffers e's outbound/inbound records plus any property indices.
func (tx *Transaction) PutEdge(e Edge) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	if err := validateKeyParts(e.Src, e.Type, e.Dst); err != nil {
		return err
	}
	value := e.Data
	if len(value) == 0 {
		value = model.Presence // a zero-length value would be a tombstone
	}
	tx.buf = append(tx.buf,
		model.Record{Key: model.OutEdgeKey(e.Src, e.Type, e.Dst), Value: value},
		model.Record{Key: model.InEdgeKey(e.Dst, e.Type, e.Src), Value: value},
	)
	for k, v := range e.Properties {
		if err := validateKeyParts(k, v); err != nil {
			return err
		}
		tx.buf = append(tx.buf, model.Record{
			Key:   model.EdgePropertyIndexKey(e.Type, k, v, e.Src, e.Dst),
			Value: model.Presence,
		})
	}
	return nil
}

// PutDoc buffers data's record plus its current secondary-index updates
// (read live against the store, same acceptance of staleness as Store.PutDoc
// outside a transaction).
func (tx *Transaction) PutDoc(coll, id string, data []byte) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	if err := validateKeyParts(coll, id); err != nil {
		return err
	}
	tx.buf = append(tx.buf, model.Record{Key: model.DocKey(coll, id), Value: data})
	tx.buf = append(tx.buf, tx.store.docIndexRecords(coll, id, data)...)
	return nil
}

// Commit applies the buffered batch atomically. An empty buffer is a no-op.
func (tx *Transaction) Commit(urgent bool) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	tx.done = true
	if len(tx.buf) == 0 {
		return nil
	}
	return tx.store.eng.WriteBatch(tx.buf, urgent)
}

// Rollback discards the buffer without applying it.
func (tx *Transaction) Rollback() error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	tx.done = true
	tx.buf = nil
	return nil
}

// WithTransaction runs fn against a fresh Transaction, committing on success
// and rolling back if fn returns an error (spec.md §6's "transaction(block)"
// primitive, §8 P12: "if the transaction block throws, none of its buffered
// mutations are visible").
func (s *Store) WithTransaction(urgent bool, fn func(*Transaction) error) error {
	tx := s.Begin()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit(urgent)
}
