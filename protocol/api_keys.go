package protocol

// https://kafka.apache.org/protocol#protocol_api_keys
const (
	OffsetFetchKey int16 = 9
	APIVersionsKey int16 = 18
)

// OffsetFetch versions this module implements. Version 6 is the first
// flexible (tagged-field) version and is outside this range.
const (
	OffsetFetchMinVersion int16 = 0
	OffsetFetchMaxVersion int16 = 5

	// OffsetFetchAllPartitionsMinVersion is the first version whose wire
	// format can express "all partitions of the group" (a null topics
	// array). Versions 0 and 1 can only name partitions explicitly.
	OffsetFetchAllPartitionsMinVersion int16 = 2
)

// APIKey represents an API key and its supported version range.
type APIKey struct {
	APIKey     int16
	MinVersion int16
	MaxVersion int16
}

// SupportedAPIKeys is the version table the coordinator advertises
// through ApiVersions.
var SupportedAPIKeys = []APIKey{
	{APIKey: OffsetFetchKey, MinVersion: OffsetFetchMinVersion, MaxVersion: OffsetFetchMaxVersion},
	{APIKey: APIVersionsKey, MinVersion: 0, MaxVersion: 0},
}
