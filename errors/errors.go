package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorClass tells a caller what to do about an error
type ErrorClass int

const (
	// ErrorTransient errors may succeed when retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid errors come from bad input or configuration
	ErrorInvalid
	// ErrorFatal errors stop the operation for good
	ErrorFatal
)

// String returns the class name
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors for configuration and connection handling
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingConfig      = errors.New("missing required configuration")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// ClassifiedError is an error with an explicit class
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// classOf returns the class recorded in err's chain. The outermost
// explicit classification or return code wins.
func classOf(err error) (ErrorClass, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *ClassifiedError:
			return v.Class, true
		case *Error:
			return v.Code.class(), true
		case Code:
			return v.class(), true
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				if class, ok := classOf(inner); ok {
					return class, true
				}
			}
			return 0, false
		}
	}
	return 0, false
}

var transientPatterns = []string{
	"timeout",
	"connection",
	"network",
	"temporary",
	"unavailable",
	"no responders",
}

// IsTransient reports whether err may succeed when retried. Unclassified
// errors are judged by context errors and message patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err should stop processing. Configuration errors
// and exhausted retries are fatal even when unclassified.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrMaxRetriesExceeded) {
		return true
	}
	class, ok := classOf(err)
	return ok && class == ErrorFatal
}

// IsInvalid reports whether err was caused by bad input
func IsInvalid(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorInvalid
}

func classify(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:     class,
		Err:       Wrap(err, component, method, action),
		Component: component,
		Operation: method,
	}
}

// Wrap adds context in the form "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps err with context and classifies it transient
func WrapTransient(err error, component, method, action string) error {
	return classify(ErrorTransient, err, component, method, action)
}

// WrapInvalid wraps err with context and classifies it invalid
func WrapInvalid(err error, component, method, action string) error {
	return classify(ErrorInvalid, err, component, method, action)
}

// WrapFatal wraps err with context and classifies it fatal
func WrapFatal(err error, component, method, action string) error {
	return classify(ErrorFatal, err, component, method, action)
}

// RetryConfig is an exponential backoff policy
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// RetryableErrors, when set, limits retries to errors matching one of
	// them.
	RetryableErrors []error
}

// DefaultRetryConfig returns the policy used for transport connections
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ShouldRetry reports whether attempt, counted from zero, should be
// followed by another try after failing with err.
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries || !IsTransient(err) {
		return false
	}
	if len(rc.RetryableErrors) == 0 {
		return true
	}
	for _, target := range rc.RetryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// BackoffDelay returns the pause before retry number attempt+1, growing by
// BackoffFactor from InitialDelay and capped at MaxDelay.
func (rc RetryConfig) BackoffDelay(attempt int) time.Duration {
	delay := rc.InitialDelay
	for i := 0; i < attempt && delay < rc.MaxDelay; i++ {
		delay = time.Duration(float64(delay) * rc.BackoffFactor)
	}
	return min(delay, max(rc.MaxDelay, rc.InitialDelay))
}
