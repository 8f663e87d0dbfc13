package normalize

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// adaptDocument maps mongo-driver values onto plain Go values. Other values
// are returned unchanged.
func adaptDocument(v any) (any, error) {
	switch d := v.(type) {
	case bson.D:
		m := make(map[string]any, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, nil
	case bson.M:
		return map[string]any(d), nil
	case bson.A:
		return []any(d), nil
	case bson.Raw:
		var doc bson.D
		if err := bson.Unmarshal(d, &doc); err != nil {
			return nil, fmt.Errorf("decode raw document: %w", err)
		}
		return adaptDocument(doc)
	case primitive.ObjectID:
		return d.Hex(), nil
	case primitive.DateTime:
		return d.Time().UTC(), nil
	case primitive.Decimal128:
		return d.String(), nil
	case primitive.Null, primitive.Undefined:
		return nil, nil
	default:
		return v, nil
	}
}
