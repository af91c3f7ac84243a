package rcl

import (
	"github.com/c360/semrcl/errors"
)

// convertTransportError is the single point where transport failures enter
// the return-code taxonomy. Errors that already carry a code keep it; any
// other error becomes CodeError with the transport's message intact.
func convertTransportError(err error) error {
	if err == nil {
		return nil
	}
	var coded *errors.Error
	if errors.As(err, &coded) {
		return err
	}
	var code errors.Code
	if errors.As(err, &code) {
		return err
	}
	return errors.Recode(err, errors.CodeError)
}

// createFailed reports that the transport could not create an entity. The
// entity-specific code is applied here and nowhere deeper, and the
// transport code stays reachable through errors.Is.
func createFailed(code errors.Code, err error, format string, args ...any) error {
	return errors.Wrapf(code, convertTransportError(err), format, args...)
}

// topicResolveError maps a name resolution failure onto the code a topic
// entity reports.
func topicResolveError(err error) error {
	return resolveError(err, errors.CodeTopicNameInvalid)
}

// serviceResolveError maps a name resolution failure onto the code a
// service entity reports.
func serviceResolveError(err error) error {
	return resolveError(err, errors.CodeServiceNameInvalid)
}

func resolveError(err error, invalid errors.Code) error {
	switch errors.CodeOf(err) {
	case errors.CodeTopicNameInvalid, errors.CodeServiceNameInvalid, errors.CodeUnknownSubstitution:
		return errors.Recode(err, invalid)
	case errors.CodeBadAlloc:
		return err
	default:
		return errors.Recode(err, errors.CodeError)
	}
}
