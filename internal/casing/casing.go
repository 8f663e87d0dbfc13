// Package casing converts object keys between the naming conventions used
// inside the service and on the wire.
package casing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stoewer/go-strcase"
)

// Convention names a key casing style.
type Convention string

// Supported conventions.
const (
	// Snake renders keys as created_at.
	Snake Convention = "snake"

	// Camel renders keys as createdAt.
	Camel Convention = "camel"

	// Kebab renders keys as created-at.
	Kebab Convention = "kebab"

	// None leaves keys untouched.
	None Convention = "none"
)

// DefaultConvention is the external convention used when none is configured.
const DefaultConvention = Snake

// ParseConvention parses a convention name. The empty string yields the
// default convention.
func ParseConvention(s string) (Convention, error) {
	switch c := Convention(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return DefaultConvention, nil
	case Snake, Camel, Kebab, None:
		return c, nil
	default:
		return "", fmt.Errorf("unknown key casing convention %q", s)
	}
}

// Valid reports whether c is a known convention.
func (c Convention) Valid() bool {
	switch c {
	case Snake, Camel, Kebab, None:
		return true
	}
	return false
}

// Key converts a single key to the convention.
func (c Convention) Key(key string) string {
	switch c {
	case Snake:
		return strcase.SnakeCase(key)
	case Camel:
		return strcase.LowerCamelCase(key)
	case Kebab:
		return strcase.KebabCase(key)
	default:
		return key
	}
}

// Inverse returns the convention that incoming request keys are decoded
// into, so that a key written by c reads back as the internal name.
func (c Convention) Inverse() Convention {
	switch c {
	case Snake, Kebab:
		return Camel
	case Camel:
		return Snake
	default:
		return None
	}
}

// Converter memoizes key conversions for one convention. Response trees
// repeat the same handful of keys on every element, so the cache stays
// small. A Converter is safe for concurrent use.
type Converter struct {
	convention Convention
	cache      sync.Map
}

// NewConverter creates a Converter for the given convention.
func NewConverter(c Convention) *Converter {
	return &Converter{convention: c}
}

// Convention returns the converter's convention.
func (cv *Converter) Convention() Convention {
	return cv.convention
}

// Key converts a single key.
func (cv *Converter) Key(key string) string {
	if cv.convention == None {
		return key
	}
	if v, ok := cv.cache.Load(key); ok {
		return v.(string)
	}
	converted := cv.convention.Key(key)
	cv.cache.Store(key, converted)
	return converted
}

// MapKeys returns a copy of a decoded JSON tree with every object key
// converted. Values other than map[string]any and []any are returned as is.
func (cv *Converter) MapKeys(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[cv.Key(k)] = cv.MapKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, val := range node {
			out[i] = cv.MapKeys(val)
		}
		return out
	default:
		return v
	}
}
