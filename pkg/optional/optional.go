// Package optional provides a three-state value for partial updates: a key
// can be absent from the payload, present with null, or present with a value.
package optional

import (
	"bytes"
	"encoding/json"
)

// Field is decoded from JSON so that a missing key leaves Set false, an
// explicit null sets Set and Null, and any other value sets Set and Value.
// Callers must embed Field as a non-pointer struct member for the missing
// case to be observable.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a field explicitly set to null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// HasValue reports whether the field is present and not null.
func (f Field[T]) HasValue() bool {
	return f.Set && !f.Null
}

// Ptr returns nil for null or missing, otherwise a pointer to a copy of the
// value. It is the shape used to overwrite nullable columns.
func (f Field[T]) Ptr() *T {
	if !f.HasValue() {
		return nil
	}
	v := f.Value
	return &v
}
