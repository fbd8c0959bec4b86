package robots

import (
	"fmt"

	"github.com/rohmanhakim/crawlgate/internal/metadata"
	"github.com/rohmanhakim/crawlgate/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseFetchTransportFailure RobotsErrorCause = "fetch transport failure"
	ErrCauseFetchStatusFailure    RobotsErrorCause = "fetch status failure"
	ErrCauseParseAmbiguity        RobotsErrorCause = "parse ambiguity"
	ErrCauseCacheCapacityExceeded RobotsErrorCause = "cache capacity exceeded"
	ErrCauseInvalidURL            RobotsErrorCause = "invalid url"
)

// RobotsError never reaches CheckAllowed callers; it is recorded and then
// absorbed into a fail-open decision.
type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RobotsError) IsRetryable() bool {
	return e.Retryable
}

// mapRobotsErrorToMetadataCause maps robots-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapRobotsErrorToMetadataCause(err *RobotsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseFetchTransportFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseFetchStatusFailure:
		return metadata.CauseRemoteStatus
	case ErrCauseParseAmbiguity:
		return metadata.CauseContentInvalid
	case ErrCauseCacheCapacityExceeded:
		return metadata.CauseCapacityExceeded
	case ErrCauseInvalidURL:
		return metadata.CauseInvalidInput
	default:
		return metadata.CauseUnknown
	}
}
