package envelope

import (
	"fmt"
	"reflect"

	"github.com/vyrodovalexey/avaenvelope/internal/util"
)

// DataKey is the key that carries the payload in a wrapped envelope.
const DataKey = "data"

// PaginationKey is the key that carries the Paginator in a page envelope.
const PaginationKey = "pagination"

// Envelope is the {"data": ...} response shape.
type Envelope struct {
	Data any `json:"data"`
}

// ToObject returns the plain form of the envelope.
func (e Envelope) ToObject() any {
	return map[string]any{DataKey: e.Data}
}

// PageEnvelope is the {"data": [...], "pagination": {...}} response shape.
type PageEnvelope struct {
	Data       any       `json:"data"`
	Pagination Paginator `json:"pagination"`
}

// ToObject returns the plain form of the page envelope.
func (e PageEnvelope) ToObject() any {
	return map[string]any{
		DataKey:       e.Data,
		PaginationKey: e.Pagination.ToObject(),
	}
}

// Flat marks a handler result whose fields become the top level of the
// response body.
type Flat map[string]any

// Wrapped forces the {"data": ...} shape, also for maps.
type Wrapped struct {
	Value any
}

// Wrap returns v marked for wrapping.
func Wrap(v any) Wrapped {
	return Wrapped{Value: v}
}

// NullValue is the type of Null.
type NullValue struct{}

// MarshalJSON implements json.Marshaler.
func (NullValue) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Null is an explicit null body. Returning plain nil from a handler means
// "nothing produced" and yields an empty body instead.
var Null = NullValue{}

// Kind classifies a handler result.
type Kind int

// Result kinds.
const (
	KindUndefined Kind = iota
	KindNull
	KindScalar
	KindFlat
	KindWrapped
	KindPage
	KindMissing
	// KindInvalid is a value that cannot be serialized, like a channel or
	// a function.
	KindInvalid
)

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindFlat:
		return "flat"
	case KindWrapped:
		return "wrapped"
	case KindPage:
		return "page"
	case KindMissing:
		return "missing"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Classify reports how Transform treats v outside paginate mode.
func Classify(v any) Kind {
	if v == nil {
		return KindUndefined
	}

	switch v.(type) {
	case NullValue:
		return KindNull
	case Wrapped:
		return KindWrapped
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return KindMissing
		}
		if rv.Type().Key().Kind() == reflect.String {
			return KindFlat
		}
		return KindWrapped
	case reflect.Pointer:
		if rv.IsNil() {
			return KindMissing
		}
		return KindWrapped
	case reflect.Slice, reflect.Array, reflect.Struct:
		return KindWrapped
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return KindInvalid
	default:
		return KindScalar
	}
}

// Transform produces the value to serialize for a handler result.
// paginate is the per-route pagination flag.
func Transform(v any, paginate bool) (any, error) {
	if v == nil {
		return "", nil
	}

	if paginate {
		return transformPage(v)
	}

	switch Classify(v) {
	case KindMissing:
		return nil, util.NewPayloadError(fmt.Sprintf("%T", v))
	case KindInvalid:
		return nil, util.NewContractError("serializable", fmt.Sprintf("%T", v))
	case KindFlat:
		return shallowClone(v), nil
	case KindWrapped:
		if w, ok := v.(Wrapped); ok {
			return Envelope{Data: emptyIfNilSlice(w.Value)}, nil
		}
		return Envelope{Data: emptyIfNilSlice(v)}, nil
	default:
		return v, nil
	}
}

// transformPage builds the page envelope. It never returns a partially
// filled envelope.
func transformPage(v any) (any, error) {
	p, ok := v.(Paginated)
	if !ok || isNilPointer(v) {
		return nil, util.NewContractError("paginate", fmt.Sprintf("%T", v))
	}

	return PageEnvelope{
		Data:       emptyIfNilSlice(p.Documents()),
		Pagination: p.Pagination(),
	}, nil
}

// shallowClone copies the top-level entries of a string-keyed map.
func shallowClone(v any) map[string]any {
	switch m := v.(type) {
	case Flat:
		return cloneMap(m)
	case map[string]any:
		return cloneMap(m)
	}

	rv := reflect.ValueOf(v)
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// emptyIfNilSlice turns a nil slice into an empty one of the same type so
// it serializes as [] instead of null.
func emptyIfNilSlice(v any) any {
	if v == nil {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return reflect.MakeSlice(rv.Type(), 0, 0).Interface()
	}
	return v
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
