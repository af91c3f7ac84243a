// Package errors provides the return-code taxonomy and error classification
// used across semrcl.
//
// # Return codes
//
// Every fallible operation reports a Code. Codes are stable integers grouped
// into subsystem bands so code living in one layer can range-check codes
// produced by another:
//
//	0-99       generic (OK, ERROR, TIMEOUT, BAD_ALLOC, INVALID_ARGUMENT, UNSUPPORTED)
//	100-199    lifecycle and name resolution (ALREADY_INIT, NOT_INIT, TOPIC_NAME_INVALID, ...)
//	200-299    node
//	300-399    publisher
//	400-499    subscription
//	500-599    client
//	600-699    service
//	800-899    timer
//	900-999    wait set
//	1000-1999  argument and remap parsing
//	2000-2099  events
//
// Failures are returned as *Error, which carries the code, a descriptive
// message, and for parse and validation errors the byte offset of the
// offending input:
//
//	name, err := names.ExpandTopicName("foo/{bogus}", "n", "/", nil)
//	if errors.Is(err, errors.CodeUnknownSubstitution) {
//	    fmt.Println(errors.IndexOf(err)) // 4
//	}
//
// # Expected empty results
//
// A take that finds nothing and a wait that times out are not malfunctions.
// They still come back as coded errors so control flow can branch on them,
// but IsEmptyResult reports true and conforming callers neither log nor
// surface them as failures.
//
// # Error Classification
//
// Errors are classified as Transient (retry recommended), Invalid (bad input,
// do not retry) or Fatal (stop processing). Coded errors map onto a class by
// code; explicitly classified errors keep the class they were given:
//
//	errors.WrapTransient(err, "Client", "Connect", "establish connection")
//	errors.WrapInvalid(err, "Config", "Validate", "check transport kind")
//	errors.WrapFatal(err, "MetricsRegistry", "Register", "register collector")
//
// All wrapping follows the "component.method: action failed: %w" format.
//
// # Retry Configuration
//
// RetryConfig carries the backoff policy used when connecting transports:
//
//	config := errors.DefaultRetryConfig()
//	for attempt := 0; ; attempt++ {
//	    err := connect()
//	    if !config.ShouldRetry(err, attempt) {
//	        return err
//	    }
//	    time.Sleep(config.BackoffDelay(attempt))
//	}
package errors
