// Package pipeline provides the call orchestration engine.
//
// A call moves through fixed stages:
//
//	Target -> resolve -> Endpoint -> build -> *http.Request
//	       -> PrepareRequest (each plugin, in order) -> WillSend
//	       -> stub / placeholder / Executor -> MapOutcome
//	       -> DidReceive -> Process (each plugin, in order)
//	       -> CompletionStrategy: Retry (execute again) or Proceed
//	       -> Decode on a worker (typed calls only)
//
// # Plugins
//
// Plugins are records of optional hooks (see ports.Plugin). Their configured
// order is the only ordering: two orderings of the same plugins may produce
// different requests or results. PrepareRequest runs once per call, since
// retries resend the same prepared request. WillSend, DidReceive and Process
// run once per attempt.
//
// # Retries
//
// Attempts are strictly sequential. The pipeline obeys Retry decisions for as
// long as the strategy returns them; WithMaxAttempts adds an explicit cap.
// Resolution and mapping failures are terminal and reach neither plugins nor
// the executor. Transport failures flow through plugins and the strategy
// exactly like successes.
//
// # Cancellation
//
// Submit returns a *Call. After Call.Cancel the completion is never invoked,
// including while a retry or decode is in progress.
package pipeline
