// Package envelope reshapes a handler's return value into the canonical
// response envelope.
//
// Transform decides per value:
//
//   - nil (the handler produced nothing): the empty string, so the body is
//     empty rather than "null" or "{}"
//   - paginate mode: a Paginated value becomes
//     {"data": docs, "pagination": {...}}; anything else is a
//     ContractViolation
//   - a flat DTO (Flat, map[string]any or any string-keyed map): a shallow
//     clone, without a "data" wrapper
//   - Wrapped or any other object-like value: {"data": value}
//   - scalars and Null: unchanged
//
// The flat/wrapped asymmetry is part of the contract: handlers choose their
// shape through the return type. A handler that returns a map gets a flat
// body; one that returns a struct, slice or Wrapped gets {"data": ...}.
//
// An object-like value that holds nothing (a nil pointer or nil map) fails
// with util.ErrMissingPayload, surfaced as 422. A nil slice is an empty
// list, not a missing payload.
package envelope
