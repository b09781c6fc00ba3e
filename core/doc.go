// Package core defines the execution context and lifecycle phases shared by
// the interceptor registry and the pipeline driver. An ExecutionContext holds
// the four request/response slots of one in-flight execution and enforces the
// rewind semantics of the retry loop; Phase names the fifteen lifecycle
// points interceptor hooks attach to.
package core
