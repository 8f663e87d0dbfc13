// Package pipeline connects gin route handlers to the response stages.
//
// A Handler returns the raw response value. Handle runs the envelope stage
// and the normalization stage as selected by RouteOptions, maps failures to
// HTTP responses and writes the body. DecodeRequestKeys applies the inverse
// key casing to JSON request bodies so that requests and responses use the
// same external convention.
package pipeline
