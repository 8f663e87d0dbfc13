// Package health reports liveness and readiness of the envelope service.
//
// The Checker aggregates named readiness checks registered by the
// components that can be degraded at runtime, such as the fixture route
// table. Liveness never depends on the checks.
package health
