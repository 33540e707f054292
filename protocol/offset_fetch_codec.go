package protocol

import (
	"fmt"

	"github.com/CefBoud/groupfetch/serde"
	"github.com/CefBoud/groupfetch/types"
)

// OffsetFetch request body, v0-5:
//
//	group_id => STRING
//	topics => ARRAY (null = all partitions, v2+)
//	  name => STRING
//	  partition_indexes => ARRAY of INT32

// EncodeOffsetFetchRequest encodes the request body (header excluded).
// Build already guarantees the scope is representable at the request's
// version, so the all-partitions null array is only ever emitted at v2+.
func EncodeOffsetFetchRequest(r OffsetFetchRequest) []byte {
	encoder := serde.NewEncoder()
	encoder.PutString(r.groupID)
	if r.scope.IsAllPartitions() {
		encoder.PutArrayLen(-1)
		return encoder.Bytes()
	}
	set := r.scope.Set()
	topics := set.Topics()
	encoder.PutArrayLen(len(topics))
	for _, topic := range topics {
		encoder.PutString(topic)
		partitions := set.Partitions(topic)
		encoder.PutArrayLen(len(partitions))
		for _, partition := range partitions {
			encoder.PutInt32(partition)
		}
	}
	return encoder.Bytes()
}

func decodeOffsetFetchRequest(body []byte, version int16) (OffsetFetchRequest, error) {
	decoder := serde.NewDecoder(body)
	groupID := decoder.String()
	nbTopics := decoder.ArrayLen()
	if err := decoder.Err(); err != nil {
		return OffsetFetchRequest{}, &MalformedMessageError{Cause: err}
	}

	if nbTopics == -1 {
		if version < OffsetFetchAllPartitionsMinVersion {
			return OffsetFetchRequest{}, &MalformedMessageError{
				Cause: fmt.Errorf("null topics array is not a valid wire form before version %d", OffsetFetchAllPartitionsMinVersion),
			}
		}
		return OffsetFetchRequest{groupID: groupID, scope: AllPartitionsScope(), version: version}, nil
	}

	set := NewTopicPartitionSet()
	for i := int32(0); i < nbTopics; i++ {
		name := decoder.String()
		nbPartitions := decoder.ArrayLen()
		if decoder.Err() != nil {
			break
		}
		if nbPartitions == -1 {
			return OffsetFetchRequest{}, &MalformedMessageError{Cause: fmt.Errorf("null partition_indexes array for topic %q", name)}
		}
		for j := int32(0); j < nbPartitions; j++ {
			set.Add(types.TopicPartition{Topic: name, Partition: decoder.Int32()})
		}
	}
	if err := decoder.Err(); err != nil {
		return OffsetFetchRequest{}, &MalformedMessageError{Cause: err}
	}
	return OffsetFetchRequest{groupID: groupID, scope: RequestedScope{set: set}, version: version}, nil
}

// OffsetFetchResponse holds a response in its most complete shape; the
// codec drops the fields a version does not carry: throttle_time_ms is
// v3+, the top-level error_code is v2+, the per-partition leader epoch
// is v5+.
type OffsetFetchResponse struct {
	ThrottleTimeMs int32
	Topics         []OffsetFetchResponseTopic
	ErrorCode      int16
}

// OffsetFetchResponseTopic carries the partition entries of one topic.
type OffsetFetchResponseTopic struct {
	Name       string
	Partitions []OffsetFetchResponsePartition
}

// OffsetFetchResponsePartition is one committed-offset entry.
// CommittedOffset is InvalidOffset (-1) when nothing is committed,
// CommittedLeaderEpoch is NoLeaderEpoch (-1) when absent and Metadata
// is NoMetadata ("") when there is none.
type OffsetFetchResponsePartition struct {
	PartitionIndex       int32
	CommittedOffset      int64
	CommittedLeaderEpoch int32
	Metadata             string
	ErrorCode            int16
}

// EncodeOffsetFetchResponse encodes the response body (header excluded)
// for a version in the supported range.
func EncodeOffsetFetchResponse(response OffsetFetchResponse, version int16) ([]byte, error) {
	if version < OffsetFetchMinVersion || version > OffsetFetchMaxVersion {
		return nil, &UnsupportedVersionError{Version: version, MinVersion: OffsetFetchMinVersion, MaxVersion: OffsetFetchMaxVersion}
	}
	encoder := serde.NewEncoder()
	if version >= 3 {
		encoder.PutInt32(response.ThrottleTimeMs)
	}
	encoder.PutArrayLen(len(response.Topics))
	for _, topic := range response.Topics {
		encoder.PutString(topic.Name)
		encoder.PutArrayLen(len(topic.Partitions))
		for _, partition := range topic.Partitions {
			encoder.PutInt32(partition.PartitionIndex)
			encoder.PutInt64(partition.CommittedOffset)
			if version >= 5 {
				encoder.PutInt32(partition.CommittedLeaderEpoch)
			}
			encoder.PutNullableString(partition.Metadata)
			encoder.PutInt16(partition.ErrorCode)
		}
	}
	if version >= 2 {
		encoder.PutInt16(response.ErrorCode)
	}
	return encoder.Bytes(), nil
}

// DecodeOffsetFetchResponse decodes a response body at a known version.
func DecodeOffsetFetchResponse(body []byte, version int16) (OffsetFetchResponse, error) {
	if version < OffsetFetchMinVersion || version > OffsetFetchMaxVersion {
		return OffsetFetchResponse{}, &UnsupportedVersionError{Version: version, MinVersion: OffsetFetchMinVersion, MaxVersion: OffsetFetchMaxVersion}
	}
	decoder := serde.NewDecoder(body)
	response := OffsetFetchResponse{}
	if version >= 3 {
		response.ThrottleTimeMs = decoder.Int32()
	}
	nbTopics := decoder.ArrayLen()
	for i := int32(0); i < nbTopics && decoder.Err() == nil; i++ {
		topic := OffsetFetchResponseTopic{Name: decoder.String()}
		nbPartitions := decoder.ArrayLen()
		for j := int32(0); j < nbPartitions && decoder.Err() == nil; j++ {
			partition := OffsetFetchResponsePartition{
				PartitionIndex:       decoder.Int32(),
				CommittedOffset:      decoder.Int64(),
				CommittedLeaderEpoch: NoLeaderEpoch,
			}
			if version >= 5 {
				partition.CommittedLeaderEpoch = decoder.Int32()
			}
			partition.Metadata = decoder.NullableString()
			partition.ErrorCode = decoder.Int16()
			topic.Partitions = append(topic.Partitions, partition)
		}
		response.Topics = append(response.Topics, topic)
	}
	if version >= 2 {
		response.ErrorCode = decoder.Int16()
	}
	if err := decoder.Err(); err != nil {
		return OffsetFetchResponse{}, &MalformedMessageError{Cause: err}
	}
	return response, nil
}
