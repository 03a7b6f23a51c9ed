// Package task holds the registry of work items that time slices are booked on.
//
// Tasks live once in a Registry and are referenced elsewhere by ID. Two tasks
// describe the same work item if their non-empty keys match or their names
// are equal; the registry applies that rule whenever tasks arrive from outside
// (snapshots, suggestions) so every work item keeps exactly one ID.
package task

import (
	"strings"
)

// ID identifies a task within a Registry.
type ID int64

// UndefinedName is the name of the task that means "not tracking".
const UndefinedName = "UNDEFINED"

// Task is a work item.
type Task struct {
	ID         ID     `json:"-"`
	Name       string `json:"name"`
	Key        string `json:"key,omitempty"`        // External issue key, e.g. a Jira ID.
	Comment    string `json:"comment,omitempty"`    // Free-form booking comment.
	ExternalID int64  `json:"externalId,omitempty"` // Task reference in an external timesheet system.
}

// Same reports whether a and b describe the same work item.
func Same(a, b *Task) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != 0 && a.ID == b.ID {
		return true
	}
	if a.Key != "" && a.Key == b.Key {
		return true
	}
	return a.Name == b.Name
}

// NormalizeName trims name and collapses inner whitespace runs to one space.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Registry is the arena of known tasks.
type Registry struct {
	tasks  []*Task
	byID   map[ID]*Task
	nextID ID
}

// NewRegistry returns a registry holding only the undefined task.
func NewRegistry() *Registry {
	r := &Registry{byID: map[ID]*Task{}}
	r.insert(&Task{Name: UndefinedName, Key: UndefinedName})
	return r
}

func (r *Registry) insert(t *Task) *Task {
	r.nextID++
	t.ID = r.nextID
	r.tasks = append(r.tasks, t)
	r.byID[t.ID] = t
	return t
}

// Undefined returns the distinguished "not tracking" task.
func (r *Registry) Undefined() *Task {
	for _, t := range r.tasks {
		if t.Name == UndefinedName {
			return t
		}
	}
	// Unreachable unless the undefined task was renamed.
	return r.insert(&Task{Name: UndefinedName, Key: UndefinedName})
}

// IsUndefined reports whether id refers to the undefined task.
func (r *Registry) IsUndefined(id ID) bool {
	t := r.byID[id]
	return t == nil || t.Name == UndefinedName
}

// Get returns the task with the given ID, or nil.
func (r *Registry) Get(id ID) *Task {
	return r.byID[id]
}

// All returns every registered task in creation order.
func (r *Registry) All() []*Task {
	out := make([]*Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Len returns the number of registered tasks, including the undefined task.
func (r *Registry) Len() int {
	return len(r.tasks)
}

// GetOrCreate returns the task whose name matches name case-insensitively
// after normalization, creating it if none exists. A blank name yields the
// undefined task.
func (r *Registry) GetOrCreate(name string) *Task {
	name = NormalizeName(name)
	if name == "" {
		return r.Undefined()
	}
	if t := r.FindByName(name); t != nil {
		return t
	}
	return r.insert(&Task{Name: name})
}

// FindByName looks a task up by case-insensitive normalized name.
func (r *Registry) FindByName(name string) *Task {
	name = NormalizeName(name)
	for _, t := range r.tasks {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// Normalize returns the registered task that is the same work item as t. If
// there is none, a copy of t is registered and returned. Metadata of an
// existing match is not overwritten, except that an empty key is filled in.
func (r *Registry) Normalize(t Task) *Task {
	t.Name = NormalizeName(t.Name)
	if t.Name == "" && t.Key == "" {
		return r.Undefined()
	}
	probe := t
	probe.ID = 0
	for _, existing := range r.tasks {
		if Same(&probe, existing) {
			if existing.Key == "" && t.Key != "" {
				existing.Key = t.Key
			}
			return existing
		}
	}
	return r.insert(&probe)
}

// Rename changes the name of a task. It fails silently (returning false) when
// another task already carries the new name or the name is blank.
func (r *Registry) Rename(id ID, name string) bool {
	name = NormalizeName(name)
	t := r.byID[id]
	if t == nil || name == "" {
		return false
	}
	if other := r.FindByName(name); other != nil && other.ID != id {
		return false
	}
	t.Name = name
	return true
}
