// Package engine provides the fixed-size worker pool that executes submitted
// tasks asynchronously. The pool assigns job ids, feeds a shared queue,
// records each job's lifecycle in the ledger, publishes transitions to
// subscribers, and hands finished outcomes to the result sink.
package engine
