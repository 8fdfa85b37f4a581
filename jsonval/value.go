package jsonval

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"

	fqerrors "github.com/hostloop/fetchq/errors"
)

// Kind identifies the variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a tagged JSON document node. The zero Value is null.
//
// Accessors that descend into a document return independent deep copies,
// so a returned sub-document can outlive its parent and be mutated
// without affecting it. Mutators operate on the receiver's own root.
type Value struct {
	data any // nil | bool | float64 | string | []any | map[string]any
}

// Parse decodes a JSON document from a string.
func Parse(s string) (*Value, error) {
	return ParseBytes([]byte(s))
}

// ParseBytes decodes a JSON document from raw bytes.
func ParseBytes(b []byte) (*Value, error) {
	var data any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fqerrors.ParseFailed(fqerrors.PhaseJSON, "document", err)
	}
	return &Value{data: data}, nil
}

// ParseFile decodes a JSON document from a file on disk.
func ParseFile(path string) (*Value, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fqerrors.ParseFailed(fqerrors.PhaseJSON, "file "+path, err)
	}
	return ParseBytes(b)
}

// Constructors for fresh documents.

func NewObject() *Value         { return &Value{data: map[string]any{}} }
func NewArray() *Value          { return &Value{data: []any{}} }
func NewString(s string) *Value { return &Value{data: s} }
func NewNumber(n int64) *Value  { return &Value{data: float64(n)} }
func NewFloat(f float64) *Value { return &Value{data: f} }
func NewBool(b bool) *Value     { return &Value{data: b} }
func NewNull() *Value           { return &Value{} }

// Kind returns the variant tag of the root node.
func (v *Value) Kind() Kind {
	switch v.data.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	}
	return KindNull
}

// Equals reports deep structural equality.
func (v *Value) Equals(other *Value) bool {
	return reflect.DeepEqual(v.data, other.data)
}

// Clone returns an independent deep copy of the document.
func (v *Value) Clone() *Value {
	return &Value{data: deepCopy(v.data)}
}

// Serialize encodes the document back to JSON text.
func (v *Value) Serialize(pretty bool) (string, error) {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v.data, "", "  ")
	} else {
		b, err = json.Marshal(v.data)
	}
	if err != nil {
		return "", fqerrors.Wrap(fqerrors.PhaseJSON, fqerrors.KindInvalidInput, err, "serialize document")
	}
	return string(b), nil
}

// SerializeToFile writes the encoded document to a file.
func (v *Value) SerializeToFile(path string, pretty bool) error {
	s, err := v.Serialize(pretty)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return fqerrors.Wrap(fqerrors.PhaseJSON, fqerrors.KindInvalidInput, err, "write "+path)
	}
	return nil
}

// Scalar accessors.

func (v *Value) AsString() (string, error) {
	s, ok := v.data.(string)
	if !ok {
		return "", fqerrors.TypeMismatch(nil, "string", v.Kind().String())
	}
	return s, nil
}

// AsInt returns the number as an integer, failing on non-numbers and on
// numbers with a fractional part.
func (v *Value) AsInt() (int64, error) {
	f, ok := v.data.(float64)
	if !ok {
		return 0, fqerrors.TypeMismatch(nil, "number", v.Kind().String())
	}
	if f != math.Trunc(f) {
		return 0, fqerrors.TypeMismatch(nil, "integer", "float")
	}
	return int64(f), nil
}

func (v *Value) AsFloat() (float64, error) {
	f, ok := v.data.(float64)
	if !ok {
		return 0, fqerrors.TypeMismatch(nil, "number", v.Kind().String())
	}
	return f, nil
}

func (v *Value) AsBool() (bool, error) {
	b, ok := v.data.(bool)
	if !ok {
		return false, fqerrors.TypeMismatch(nil, "bool", v.Kind().String())
	}
	return b, nil
}

func deepCopy(data any) any {
	switch d := data.(type) {
	case []any:
		out := make([]any, len(d))
		for i, e := range d {
			out[i] = deepCopy(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, e := range d {
			out[k] = deepCopy(e)
		}
		return out
	default:
		return d
	}
}
