// Package interceptor defines the hook capability set and the two-tier
// registry that dispatches hooks across registered interceptors.
//
// An Interceptor exposes nineteen optional hooks covering every point of the
// request execution lifecycle, from before serialization through retries to
// final completion. Implementations embed Nop and override the hooks they
// need. The Registry keeps two insertion-ordered lists (client-scoped and
// operation-scoped) and dispatches each hook to all of them, applying the
// phase's error policy: collect-then-jump for the attempt/execution boundary
// hooks, fail-fast everywhere else.
package interceptor
