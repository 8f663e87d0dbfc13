// Package util provides the shared error taxonomy and small helpers used
// across the envelope server.
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - PayloadError: an object-like response that carried no value (422)
//   - ContractError: a route contract broken by its handler (500)
//   - HTTPError: a handler error that already knows its status code
//   - ConfigError / ValidationError: configuration problems
//
// # HTTP Mapping
//
// StatusCode and PublicMessage translate any error into the status and
// client-safe message written by the pipeline:
//
//	status := util.StatusCode(err)
//	c.JSON(status, gin.H{"error": http.StatusText(status), "message": util.PublicMessage(err)})
//
// # Validation
//
// Input validation helpers for ports, durations and route paths:
//
//	err := util.ValidatePort(8080)
//	err := util.ValidateRoutePath("/posts")
package util
