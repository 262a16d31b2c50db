package siteconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mickael31/location-benne-occitanie/internal/util"
)

// ErrMalformedDocument marks text or structure that is not a usable site
// document.
var ErrMalformedDocument = errors.New("malformed document")

// Object is a decoded JSON object that keeps its keys in document order, so
// a document read, edited and written back produces a minimal diff.
//
// Documents are trees of *Object, []any, string, json.Number, bool and nil.
type Object struct {
	keys   []string
	values map[string]any
}

func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

func (o *Object) Len() int { return len(o.keys) }

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores v under key. New keys are appended; existing keys keep their
// position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Object returns the child object under key, if there is one.
func (o *Object) Object(key string) (*Object, bool) {
	v, ok := o.values[key]
	if !ok {
		return nil, false
	}
	child, ok := v.(*Object)
	return child, ok
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	out := &Object{
		keys:   make([]string, len(o.keys)),
		values: make(map[string]any, len(o.values)),
	}
	copy(out.keys, o.keys)
	for k, v := range o.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalValue(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalValue(o.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// ParseDocument decodes JSON into a document tree. Numbers are kept as
// json.Number so they are written back exactly as read.
func ParseDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrMalformedDocument)
	}
	return v, nil
}

// Parse strips a BOM and surrounding whitespace before decoding text.
func Parse(text []byte) (any, error) {
	clean := util.CleanText(text)
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	return ParseDocument(clean)
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T", keyTok)
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// EncodeDocument writes v as two-space indented JSON without HTML escaping
// and without a trailing newline.
func EncodeDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Encode writes cfg in the same format as EncodeDocument.
func Encode(cfg SiteConfig) ([]byte, error) {
	return EncodeDocument(cfg)
}

// ToValue converts a Go value into a document tree.
func ToValue(v any) (any, error) {
	raw, err := marshalValue(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	return ParseDocument(raw)
}

// ToDocument converts cfg into a document tree in struct field order.
func ToDocument(cfg SiteConfig) (*Object, error) {
	v, err := ToValue(cfg)
	if err != nil {
		return nil, err
	}
	return v.(*Object), nil
}

// SetPath stores v at the dotted path below root, creating intermediate
// objects where they are missing or not objects.
func SetPath(root *Object, v any, path ...string) {
	if len(path) == 0 {
		return
	}
	cur := root
	for _, key := range path[:len(path)-1] {
		next, ok := cur.Object(key)
		if !ok {
			next = NewObject()
			cur.Set(key, next)
		}
		cur = next
	}
	cur.Set(path[len(path)-1], v)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case *Object:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
