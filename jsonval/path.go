package jsonval

import (
	"strings"

	fqerrors "github.com/hostloop/fetchq/errors"
)

// Get returns a copy of the value under a single object key.
func (v *Value) Get(key string) (*Value, error) {
	obj, ok := v.data.(map[string]any)
	if !ok {
		return nil, fqerrors.TypeMismatch([]string{key}, "object", v.Kind().String())
	}
	child, ok := obj[key]
	if !ok {
		return nil, fqerrors.BadPath([]string{key}, "missing key")
	}
	return &Value{data: deepCopy(child)}, nil
}

// GetPath resolves a dot-separated path by recursive descent and returns
// a copy of the value it names. Every failure is structured and explicit:
// an empty path segment, descending into a non-object, or a missing key.
// It never silently returns a default.
func (v *Value) GetPath(path string) (*Value, error) {
	segments := strings.Split(path, ".")
	node := v.data
	for i, seg := range segments {
		visited := segments[:i+1]
		if seg == "" {
			return nil, fqerrors.BadPath(visited, "empty path segment")
		}
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, fqerrors.BadPath(visited, "cannot index into "+(&Value{data: node}).Kind().String())
		}
		child, ok := obj[seg]
		if !ok {
			return nil, fqerrors.BadPath(visited, "missing key")
		}
		node = child
	}
	return &Value{data: deepCopy(node)}, nil
}

// Set stores a copy of child under key. The receiver must be an object.
func (v *Value) Set(key string, child *Value) error {
	obj, ok := v.data.(map[string]any)
	if !ok {
		return fqerrors.TypeMismatch([]string{key}, "object", v.Kind().String())
	}
	obj[key] = deepCopy(child.data)
	return nil
}

// Delete removes an object key. Deleting an absent key is not an error.
func (v *Value) Delete(key string) error {
	obj, ok := v.data.(map[string]any)
	if !ok {
		return fqerrors.TypeMismatch([]string{key}, "object", v.Kind().String())
	}
	delete(obj, key)
	return nil
}

// Keys returns the object's key set in unspecified order.
func (v *Value) Keys() ([]string, error) {
	obj, ok := v.data.(map[string]any)
	if !ok {
		return nil, fqerrors.TypeMismatch(nil, "object", v.Kind().String())
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys, nil
}

// Len returns the element count of an array or the key count of an object.
func (v *Value) Len() (int, error) {
	switch d := v.data.(type) {
	case []any:
		return len(d), nil
	case map[string]any:
		return len(d), nil
	}
	return 0, fqerrors.TypeMismatch(nil, "array or object", v.Kind().String())
}

// Index returns a copy of the array element at i.
func (v *Value) Index(i int) (*Value, error) {
	arr, ok := v.data.([]any)
	if !ok {
		return nil, fqerrors.TypeMismatch(nil, "array", v.Kind().String())
	}
	if i < 0 || i >= len(arr) {
		return nil, fqerrors.OutOfBounds(i, len(arr))
	}
	return &Value{data: deepCopy(arr[i])}, nil
}

// SetIndex replaces the array element at i with a copy of child.
func (v *Value) SetIndex(i int, child *Value) error {
	arr, ok := v.data.([]any)
	if !ok {
		return fqerrors.TypeMismatch(nil, "array", v.Kind().String())
	}
	if i < 0 || i >= len(arr) {
		return fqerrors.OutOfBounds(i, len(arr))
	}
	arr[i] = deepCopy(child.data)
	return nil
}

// Append adds a copy of child at the end of the array.
func (v *Value) Append(child *Value) error {
	arr, ok := v.data.([]any)
	if !ok {
		return fqerrors.TypeMismatch(nil, "array", v.Kind().String())
	}
	v.data = append(arr, deepCopy(child.data))
	return nil
}

// RemoveIndex deletes the array element at i, shifting later elements.
func (v *Value) RemoveIndex(i int) error {
	arr, ok := v.data.([]any)
	if !ok {
		return fqerrors.TypeMismatch(nil, "array", v.Kind().String())
	}
	if i < 0 || i >= len(arr) {
		return fqerrors.OutOfBounds(i, len(arr))
	}
	v.data = append(arr[:i], arr[i+1:]...)
	return nil
}

// ClearArray removes every element.
func (v *Value) ClearArray() error {
	if _, ok := v.data.([]any); !ok {
		return fqerrors.TypeMismatch(nil, "array", v.Kind().String())
	}
	v.data = []any{}
	return nil
}
