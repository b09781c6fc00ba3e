// Package retry defines the pluggable retry-decision contract consulted by
// the pipeline driver before the first attempt and after each failed one,
// plus two ready-made strategies: Never (one attempt, the default) and
// Standard (bounded attempts, composable backoff with jitter, an error
// classifier and optional token-bucket admission).
//
// The active strategy is a configuration-bag resident installed by a
// StrategyPlugin during client setup:
//
//	client := rpcmesh.New(serializer, signer, transport, deserializer,
//	    func(o *rpcmesh.Options[Req, Res]) {
//	        o.Plugins = append(o.Plugins, retry.StrategyPlugin{Strategy: retry.NewStandard()})
//	    })
//
// Both decision points may suspend (admission waits, backoff sleeps) and
// honor context cancellation while doing so.
package retry
