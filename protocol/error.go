package protocol

import "errors"

// https://kafka.apache.org/protocol#protocol_error_codes

// Error is a protocol error code with its message and retriability status.
// It is threaded through response synthesis as an opaque value.
type Error struct {
	Code        int16
	Message     string
	IsRetriable bool
}

// The subset of the protocol error-code taxonomy this module produces or
// reports. ErrNone (code 0) marks entries with no error.
var (
	ErrUnknownServerError        = Error{Code: -1, Message: "The server experienced an unexpected error when processing the request.", IsRetriable: false}
	ErrNone                      = Error{Code: 0, Message: "", IsRetriable: false}
	ErrOffsetOutOfRange          = Error{Code: 1, Message: "The requested offset is not within the range of offsets maintained by the server.", IsRetriable: false}
	ErrCorruptMessage            = Error{Code: 2, Message: "This message has failed its CRC checksum, exceeds the valid size, or is otherwise corrupt.", IsRetriable: true}
	ErrUnknownTopicOrPartition   = Error{Code: 3, Message: "This server does not host this topic-partition.", IsRetriable: true}
	ErrCoordinatorLoadInProgress = Error{Code: 14, Message: "The coordinator is loading and hence can't process requests.", IsRetriable: true}
	ErrCoordinatorNotAvailable   = Error{Code: 15, Message: "The coordinator is not available.", IsRetriable: true}
	ErrNotCoordinator            = Error{Code: 16, Message: "This is not the correct coordinator.", IsRetriable: true}
	ErrInvalidGroupID            = Error{Code: 24, Message: "The configured groupId is invalid.", IsRetriable: false}
	ErrGroupAuthorizationFailed  = Error{Code: 30, Message: "Group authorization failed.", IsRetriable: false}
	ErrUnsupportedVersion        = Error{Code: 35, Message: "The version of API is not supported.", IsRetriable: false}
)

// ErrorMap associates error codes with corresponding Error values
var ErrorMap = map[int16]Error{}

func init() {
	for _, e := range []Error{
		ErrUnknownServerError,
		ErrNone,
		ErrOffsetOutOfRange,
		ErrCorruptMessage,
		ErrUnknownTopicOrPartition,
		ErrCoordinatorLoadInProgress,
		ErrCoordinatorNotAvailable,
		ErrNotCoordinator,
		ErrInvalidGroupID,
		ErrGroupAuthorizationFailed,
		ErrUnsupportedVersion,
	} {
		ErrorMap[e.Code] = e
	}
}

// ErrorForCode returns the Error for a code, or ErrUnknownServerError
// for codes outside the map.
func ErrorForCode(code int16) Error {
	if e, ok := ErrorMap[code]; ok {
		return e
	}
	return ErrUnknownServerError
}

// ErrorFor maps an arbitrary runtime failure to a protocol error code.
func ErrorFor(err error) Error {
	var unsupportedVersion *UnsupportedVersionError
	var malformed *MalformedMessageError
	switch {
	case err == nil:
		return ErrNone
	case errors.As(err, &unsupportedVersion):
		return ErrUnsupportedVersion
	case errors.As(err, &malformed):
		return ErrCorruptMessage
	default:
		return ErrUnknownServerError
	}
}
