// Package optional distinguishes "field absent" from "field set to zero or
// null" in partial-update payloads. A Field unmarshalled from JSON records
// whether the key was present at all, so a PATCH can apply exactly the
// fields the client sent.
package optional

import "encoding/json"

// Field wraps a value with a provided-flag. The zero Field means the key
// was absent from the payload.
type Field[T any] struct {
	Value T
	Set   bool
}

// Of returns a Field that carries v.
func Of[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// UnmarshalJSON marks the field as provided. A JSON null still counts as
// provided: the value stays at its zero value and Set is true, which is how
// a client clears a nullable column.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON emits the wrapped value. Absent fields should be skipped by
// the caller; an unset Field marshals as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Get returns the value and whether it was provided.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Set
}
