package timeline

import "fmt"

// Journal is the undo/redo history of user-edit transactions. Engine-internal
// transactions are never recorded.
type Journal struct {
	tl      *Timeline
	entries [][]op
	pos     int // entries[:pos] can be undone, entries[pos:] redone
}

func newJournal(tl *Timeline) *Journal {
	return &Journal{tl: tl}
}

func (j *Journal) push(ops []op) {
	j.entries = append(j.entries[:j.pos], ops)
	j.pos = len(j.entries)
}

// CanUndo reports whether there is a transaction to undo.
func (j *Journal) CanUndo() bool { return j.pos > 0 }

// CanRedo reports whether there is a transaction to redo.
func (j *Journal) CanRedo() bool { return j.pos < len(j.entries) }

// Reset forgets all history.
func (j *Journal) Reset() {
	j.entries = nil
	j.pos = 0
}

// Undo reverts the most recent user transaction. It returns false when
// there is nothing to undo.
func (j *Journal) Undo() (bool, error) {
	if !j.CanUndo() {
		return false, nil
	}
	ops := j.entries[j.pos-1]
	for i := len(ops) - 1; i >= 0; i-- {
		if err := j.revert(ops[i]); err != nil {
			return false, fmt.Errorf("undo: %w", err)
		}
	}
	j.pos--
	return true, nil
}

// Redo re-applies the most recently undone transaction.
func (j *Journal) Redo() (bool, error) {
	if !j.CanRedo() {
		return false, nil
	}
	for _, o := range j.entries[j.pos] {
		if err := j.apply(o); err != nil {
			return false, fmt.Errorf("redo: %w", err)
		}
	}
	j.pos++
	return true, nil
}

func (j *Journal) revert(o op) error {
	switch o.kind {
	case opAdd:
		return j.tl.delete(o.s)
	case opRemove:
		return j.tl.insert(o.s)
	case opInterval:
		return j.tl.setInterval(o.s, &o.prev.Start, &o.prev.End)
	case opTask:
		return j.tl.setTask(o.s, o.prevTask)
	}
	return nil
}

func (j *Journal) apply(o op) error {
	switch o.kind {
	case opAdd:
		return j.tl.insert(o.s)
	case opRemove:
		return j.tl.delete(o.s)
	case opInterval:
		return j.tl.setInterval(o.s, &o.next.Start, &o.next.End)
	case opTask:
		return j.tl.setTask(o.s, o.nextTask)
	}
	return nil
}
