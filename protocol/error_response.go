package protocol

import "fmt"

// responseBand is the closed set of OffsetFetch response shapes. Which
// band applies is purely a function of the version.
type responseBand int

const (
	// bandPartitionErrors: v0-1. No top-level error field exists, so the
	// error is attached to every partition entry the request named.
	bandPartitionErrors responseBand = iota
	// bandTopLevelError: v2. A single top-level error code, no throttle.
	bandTopLevelError
	// bandThrottledTopLevelError: v3-5. Top-level error code and
	// throttle_time_ms.
	bandThrottledTopLevelError
)

func offsetFetchResponseBand(version int16) (responseBand, error) {
	switch {
	case version >= 0 && version <= 1:
		return bandPartitionErrors, nil
	case version == 2:
		return bandTopLevelError, nil
	case version >= 3 && version <= OffsetFetchMaxVersion:
		return bandThrottledTopLevelError, nil
	default:
		return 0, &UnsupportedVersionError{Version: version, MinVersion: OffsetFetchMinVersion, MaxVersion: OffsetFetchMaxVersion}
	}
}

// ErrorResponse synthesizes a structurally valid all-error response for
// the request's version, used when the fetch itself cannot be served.
// It is a pure function of its inputs: identical arguments produce an
// identical response.
//
// At v2+ the error is carried once at the top level and the partition
// list stays empty, whether or not the request named partitions. At
// v0-1 every named partition expands to an entry with offset -1, no
// leader epoch, no metadata and the given error code. An all-partitions
// request in that band is a contradiction (Build refuses all-partitions
// below v2), reported as InvariantViolationError.
func ErrorResponse(request OffsetFetchRequest, code Error, throttleTimeMs int32) (OffsetFetchResponse, error) {
	band, err := offsetFetchResponseBand(request.Version())
	if err != nil {
		return OffsetFetchResponse{}, err
	}

	response := OffsetFetchResponse{}
	switch band {
	case bandPartitionErrors:
		if request.Scope().IsAllPartitions() {
			return OffsetFetchResponse{}, &InvariantViolationError{
				Reason: fmt.Sprintf("all-partitions scope cannot reach a version %d response", request.Version()),
			}
		}
		set := request.Scope().Set()
		for _, name := range set.Topics() {
			topic := OffsetFetchResponseTopic{Name: name}
			for _, partition := range set.Partitions(name) {
				topic.Partitions = append(topic.Partitions, OffsetFetchResponsePartition{
					PartitionIndex:       partition,
					CommittedOffset:      InvalidOffset,
					CommittedLeaderEpoch: NoLeaderEpoch,
					Metadata:             NoMetadata,
					ErrorCode:            code.Code,
				})
			}
			response.Topics = append(response.Topics, topic)
		}
	case bandThrottledTopLevelError:
		response.ThrottleTimeMs = throttleTimeMs
		response.ErrorCode = code.Code
	case bandTopLevelError:
		response.ErrorCode = code.Code
	}
	return response, nil
}
