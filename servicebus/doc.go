/*
Package servicebus provides the synchronous in-process event dispatcher.

Subscribers register per event kind and run in registration order in the
publisher's goroutine; Publish returns only after every subscriber ran.
Failures are either isolated (logged, aggregated, dispatch continues) or abort
the remaining dispatch, depending on the configured FailurePolicy.
*/
package servicebus
