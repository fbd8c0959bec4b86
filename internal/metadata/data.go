package metadata

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.
	 - ErrorCause does not change the fail-open decision a caller receives.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts
  - DNS resolution failures
  - robots.txt fetch timeout

# CauseRemoteStatus

Meaning:
  - The remote answered, but with a status that carries no usable document.

Examples:
  - robots.txt answered with 5xx, 403 or 401

# CauseContentInvalid

Meaning:
  - Content was fetched but parts of it could not be interpreted.

Examples:
  - robots.txt lines without a directive separator
  - Allow/Disallow lines before any User-agent line
  - Documents truncated at the size limit

# CauseCapacityExceeded

Meaning:
  - A bounded in-memory structure had to drop an entry to admit a new one.

Examples:
  - Policy cache LRU eviction

# CauseInvalidInput

Meaning:
  - A caller-supplied value could not be interpreted.

Examples:
  - URL without scheme or host
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseRemoteStatus
	CauseContentInvalid
	CauseCapacityExceeded
	CauseInvalidInput
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseRemoteStatus:
		return "remote_status"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseCapacityExceeded:
		return "capacity_exceeded"
	case CauseInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrOrigin     AttributeKey = "origin"
	AttrPath       AttributeKey = "path"
	AttrAgent      AttributeKey = "agent"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrLine       AttributeKey = "line"
	AttrDigest     AttributeKey = "digest"
)
