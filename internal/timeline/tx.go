package timeline

import (
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
)

type opKind int

const (
	opAdd opKind = iota
	opRemove
	opInterval
	opTask
)

type op struct {
	kind     opKind
	s        *slice.Slice
	prev     slice.Interval
	next     slice.Interval
	prevTask task.ID
	nextTask task.ID
}

// Tx groups timeline mutations performed on behalf of one source.
type Tx struct {
	tl        *Timeline
	src       Source
	ops       []op
	committed bool
}

// Source returns the tag this transaction was opened with.
func (tx *Tx) Source() Source { return tx.src }

// Add appends s to the timeline and returns it.
func (tx *Tx) Add(s *slice.Slice) (*slice.Slice, error) {
	if err := tx.tl.insert(s); err != nil {
		return nil, err
	}
	tx.record(op{kind: opAdd, s: s})
	return s, nil
}

// Remove drops s from the timeline.
func (tx *Tx) Remove(s *slice.Slice) error {
	if err := tx.tl.delete(s); err != nil {
		return err
	}
	tx.record(op{kind: opRemove, s: s})
	return nil
}

// SetInterval moves either or both endpoints of s, atomically.
func (tx *Tx) SetInterval(s *slice.Slice, start, end *time.Time) error {
	prev := s.Interval()
	if err := tx.tl.setInterval(s, start, end); err != nil {
		return err
	}
	tx.record(op{kind: opInterval, s: s, prev: prev, next: s.Interval()})
	return nil
}

// SetEnd is SetInterval for the end only.
func (tx *Tx) SetEnd(s *slice.Slice, end time.Time) error {
	return tx.SetInterval(s, nil, &end)
}

// SetTask rebooks s on id.
func (tx *Tx) SetTask(s *slice.Slice, id task.ID) error {
	prev := s.Task()
	if err := tx.tl.setTask(s, id); err != nil {
		return err
	}
	tx.record(op{kind: opTask, s: s, prevTask: prev, nextTask: id})
	return nil
}

// Commit closes the transaction. User edits become one undo step.
func (tx *Tx) Commit() {
	if tx.committed {
		return
	}
	tx.committed = true
	if tx.src == UserEdit && len(tx.ops) > 0 {
		tx.tl.journal.push(tx.ops)
	}
}

func (tx *Tx) record(o op) {
	if tx.src == UserEdit {
		tx.ops = append(tx.ops, o)
	}
}
