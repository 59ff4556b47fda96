// Package submit stages local edits to a mod profile and converges server
// state to them with the minimal set of remote calls.
package submit

// Field wraps one editable value with a dirty flag. Only dirty fields are
// transmitted on submission; a clean field keeps tracking the last-known
// server value, while a dirty one is preserved until submitted or reverted.
type Field[T any] struct {
	value T
	dirty bool
}

// Set stages a new value and marks the field dirty.
func (f *Field[T]) Set(v T) {
	f.value = v
	f.dirty = true
}

// Value returns the staged or tracked value.
func (f *Field[T]) Value() T { return f.value }

// Dirty reports whether the field holds an unsubmitted edit.
func (f *Field[T]) Dirty() bool { return f.dirty }

// Sync refreshes a clean field from a newer server snapshot. A dirty field
// ignores the snapshot so a pending edit is never lost.
func (f *Field[T]) Sync(v T) {
	if !f.dirty {
		f.value = v
	}
}

// Revert drops a pending edit and restores the given server value.
func (f *Field[T]) Revert(v T) {
	f.value = v
	f.dirty = false
}

// markClean flags the field as submitted, keeping its value.
func (f *Field[T]) markClean() { f.dirty = false }
