// Package pipeline contains the driver that executes one RPC operation
// through the full interceptor lifecycle. The driver owns the phase
// ordering, the jump-to-completion error handling, the per-attempt rewind
// of the transport request and the two retry decision points; the four
// protocol stages (serializer, signer, transport, deserializer) and the
// retry strategy are injected.
//
// Most callers use the root package's Client instead of constructing a
// Pipeline directly.
package pipeline
