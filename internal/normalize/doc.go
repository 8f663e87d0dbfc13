// Package normalize converts document-flavoured response values into plain
// trees of map[string]any, []any and scalars.
//
// Every object key is rewritten to the configured casing convention and the
// reserved version field is removed at every level. Values opt into custom
// conversion by implementing JSONConverter or ObjectConverter; mongo-driver
// document types are adapted without implementing either.
//
// Input graphs must be acyclic. A Normalizer with a positive MaxDepth fails
// with util.ErrDepthExceeded instead of recursing without bound.
package normalize
