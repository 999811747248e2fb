package models

import (
	"bytes"
	"encoding/json"
)

// Optional is a patch field. Set reports whether the key was present in the
// request body; Value is nil when it was sent as null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a set field holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a set field holding an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// IsNull reports whether the field was sent as null.
func (o Optional[T]) IsNull() bool {
	return o.Set && o.Value == nil
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
