// Package telemetry provides an OpenTelemetry tracing interceptor that maps
// the execution lifecycle onto spans: one span per execution and one child
// span per attempt, plus a development tracer-provider setup helper.
package telemetry
