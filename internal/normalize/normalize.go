package normalize

import (
	"encoding"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/vyrodovalexey/avaenvelope/internal/casing"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
	"github.com/vyrodovalexey/avaenvelope/internal/util"
)

// DefaultReservedField is the internal name of the persistence revision
// counter that never leaves the service.
const DefaultReservedField = "__v"

// DefaultMaxDepth is the nesting limit applied when none is configured.
const DefaultMaxDepth = 1024

// JSONConverter is implemented by values that know their plain JSON form.
// It takes precedence over ObjectConverter.
type JSONConverter interface {
	ToJSON() any
}

// ObjectConverter is implemented by values that convert themselves to a
// plain object, such as database model instances.
type ObjectConverter interface {
	ToObject() any
}

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Option is a functional option for configuring the Normalizer.
type Option func(*Normalizer)

// WithConvention sets the external key casing convention.
func WithConvention(c casing.Convention) Option {
	return func(n *Normalizer) {
		n.keys = casing.NewConverter(c)
	}
}

// WithConverter sets a shared key converter.
func WithConverter(cv *casing.Converter) Option {
	return func(n *Normalizer) {
		n.keys = cv
	}
}

// WithReservedField sets the internal name of the field stripped from
// every object.
func WithReservedField(name string) Option {
	return func(n *Normalizer) {
		n.reserved = name
	}
}

// WithMaxDepth sets the nesting limit. Zero disables the limit.
func WithMaxDepth(depth int) Option {
	return func(n *Normalizer) {
		n.maxDepth = depth
	}
}

// WithLogger sets the logger for the normalizer.
func WithLogger(logger observability.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// Normalizer rebuilds response values as plain trees. It never mutates its
// input and is safe for concurrent use.
type Normalizer struct {
	keys        *casing.Converter
	reserved    string
	reservedKey string
	maxDepth    int
	logger      observability.Logger
}

// New creates a new Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		reserved: DefaultReservedField,
		maxDepth: DefaultMaxDepth,
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.keys == nil {
		n.keys = casing.NewConverter(casing.DefaultConvention)
	}
	n.reservedKey = n.keys.Key(n.reserved)

	return n
}

// Convention returns the external key casing convention.
func (n *Normalizer) Convention() casing.Convention {
	return n.keys.Convention()
}

// ReservedKey returns the reserved field name as it appears after key
// conversion.
func (n *Normalizer) ReservedKey() string {
	return n.reservedKey
}

// Normalize returns the plain form of node.
func (n *Normalizer) Normalize(node any) (any, error) {
	out, err := n.normalize(node, 0, true)
	if err != nil {
		n.logger.Warn("normalization failed",
			observability.String("type", typeName(node)),
			observability.Error(err),
		)
		return nil, err
	}
	return out, nil
}

// normalize converts one node. probe is false when node is already the
// result of a capability conversion.
func (n *Normalizer) normalize(node any, depth int, probe bool) (any, error) {
	if n.maxDepth > 0 && depth > n.maxDepth {
		return nil, util.NewDepthError(n.maxDepth)
	}

	if probe && isObjectLike(node) {
		if converted, ok := toPlain(node); ok {
			node = converted
		}
	}

	adapted, err := adaptDocument(node)
	if err != nil {
		return nil, err
	}
	node = adapted

	switch v := node.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return n.object(v, depth)
	case []any:
		return n.sequence(v, depth)
	}

	rv := reflect.ValueOf(node)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return n.normalize(rv.Elem().Interface(), depth+1, false)

	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		return n.object(mapEntries(rv), depth)

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return node, nil
		}
		return n.sequence(sliceElements(rv), depth)

	case reflect.Array:
		if isScalarType(rv.Type()) {
			return node, nil
		}
		return n.sequence(sliceElements(rv), depth)

	case reflect.Struct:
		if isScalarType(rv.Type()) {
			return node, nil
		}
		fields := make(map[string]any, rv.NumField())
		structFields(rv, fields, false)
		return n.object(fields, depth)

	default:
		return node, nil
	}
}

// object normalizes the values of m, then converts its keys and removes the
// reserved field. Keys are visited in sorted order so that the lexically
// last of two keys converting to the same name wins.
func (n *Normalizer) object(m map[string]any, depth int) (any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		value, err := n.field(m[k], depth)
		if err != nil {
			return nil, err
		}
		out[n.keys.Key(k)] = value
	}

	delete(out, n.reservedKey)

	return out, nil
}

// field normalizes an object value. Values that are not object-like are
// kept as is, even when they expose a capability. A value converted through
// a capability is kept as is when the result is no longer object-like.
func (n *Normalizer) field(value any, depth int) (any, error) {
	if !isObjectLike(value) {
		return value, nil
	}
	if converted, ok := toPlain(value); ok {
		if !isObjectLike(converted) {
			return converted, nil
		}
		return n.normalize(converted, depth+1, false)
	}
	return n.normalize(value, depth+1, false)
}

func (n *Normalizer) sequence(seq []any, depth int) (any, error) {
	out := make([]any, len(seq))
	for i, elem := range seq {
		value, err := n.normalize(elem, depth+1, true)
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

// toPlain invokes the first capability v implements. Nil pointers are
// never converted.
func toPlain(v any) (any, bool) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}

	switch c := v.(type) {
	case JSONConverter:
		return c.ToJSON(), true
	case ObjectConverter:
		return c.ToObject(), true
	default:
		return nil, false
	}
}

// isObjectLike reports whether v has fields or elements to normalize.
func isObjectLike(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		return !rv.IsNil()
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array, reflect.Struct:
		return !isScalarType(rv.Type())
	default:
		return false
	}
}

// isScalarType reports whether values of t serialize themselves, like
// time.Time or uuid.UUID.
func isScalarType(t reflect.Type) bool {
	return t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType)
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
