package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/CefBoud/groupfetch/serde"
	"github.com/CefBoud/groupfetch/types"
)

func TestRequestRoundTrip(t *testing.T) {
	partitions := []types.TopicPartition{
		{Topic: "orders", Partition: 0},
		{Topic: "orders", Partition: 3},
		{Topic: "payments", Partition: 1},
	}
	for version := int16(0); version <= 5; version++ {
		request, err := NewOffsetFetchBuilder("billing", partitions).Build(version)
		if err != nil {
			t.Fatalf("Build(%d): %v", version, err)
		}
		decoded, err := ParseOffsetFetchRequest(EncodeOffsetFetchRequest(request), version)
		if err != nil {
			t.Fatalf("Parse(v%d): %v", version, err)
		}
		if decoded.GroupID() != "billing" || decoded.Version() != version {
			t.Errorf("v%d decoded group/version = %q/%d", version, decoded.GroupID(), decoded.Version())
		}
		if decoded.Scope().IsAllPartitions() {
			t.Errorf("v%d decoded scope reports all-partitions", version)
		}
		if diff := cmp.Diff(partitions, decoded.Scope().Set().TopicPartitions()); diff != "" {
			t.Errorf("v%d scope mismatch (-want +got):\n%s", version, diff)
		}
	}
}

func TestRequestRoundTripAllPartitions(t *testing.T) {
	for version := int16(2); version <= 5; version++ {
		request, err := NewAllPartitionsBuilder("billing").Build(version)
		if err != nil {
			t.Fatalf("Build(%d): %v", version, err)
		}
		decoded, err := ParseOffsetFetchRequest(EncodeOffsetFetchRequest(request), version)
		if err != nil {
			t.Fatalf("Parse(v%d): %v", version, err)
		}
		if !decoded.Scope().IsAllPartitions() {
			t.Errorf("v%d decoded scope lost the all-partitions marker", version)
		}
	}
}

func TestRequestRoundTripEmptyExplicit(t *testing.T) {
	request, err := NewOffsetFetchBuilder("billing", nil).Build(3)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	decoded, err := ParseOffsetFetchRequest(EncodeOffsetFetchRequest(request), 3)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if decoded.Scope().IsAllPartitions() {
		t.Error("empty explicit request decoded as all-partitions")
	}
	if decoded.Scope().Set().Len() != 0 {
		t.Errorf("decoded set has %d entries, want 0", decoded.Scope().Set().Len())
	}
}

func TestParseRejectsNullTopicsBeforeVersion2(t *testing.T) {
	encoder := serde.NewEncoder()
	encoder.PutString("billing")
	encoder.PutArrayLen(-1)
	for _, version := range []int16{0, 1} {
		_, err := ParseOffsetFetchRequest(encoder.Bytes(), version)
		var malformed *MalformedMessageError
		if !errors.As(err, &malformed) {
			t.Errorf("Parse(v%d) error = %v, want MalformedMessageError", version, err)
		}
	}
}

func TestParseRejectsNullPartitionsArray(t *testing.T) {
	encoder := serde.NewEncoder()
	encoder.PutString("billing")
	encoder.PutArrayLen(1)
	encoder.PutString("orders")
	encoder.PutArrayLen(-1)
	_, err := ParseOffsetFetchRequest(encoder.Bytes(), 4)
	var malformed *MalformedMessageError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedMessageError", err)
	}
}

func TestParseRejectsTruncatedBody(t *testing.T) {
	request, err := NewOffsetFetchBuilder("billing", []types.TopicPartition{{Topic: "orders", Partition: 0}}).Build(4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	body := EncodeOffsetFetchRequest(request)
	_, err = ParseOffsetFetchRequest(body[:len(body)-2], 4)
	var malformed *MalformedMessageError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedMessageError", err)
	}
	if !errors.Is(err, serde.ErrInsufficientData) {
		t.Errorf("error = %v, want wrapped ErrInsufficientData", err)
	}
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	_, err := ParseOffsetFetchRequest(nil, 6)
	var unsupported *UnsupportedVersionError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want UnsupportedVersionError", err)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	response := OffsetFetchResponse{
		ThrottleTimeMs: 100,
		Topics: []OffsetFetchResponseTopic{
			{Name: "orders", Partitions: []OffsetFetchResponsePartition{
				{PartitionIndex: 0, CommittedOffset: 42, CommittedLeaderEpoch: 7, Metadata: "owner=a"},
				{PartitionIndex: 1, CommittedOffset: -1, CommittedLeaderEpoch: -1},
			}},
		},
		ErrorCode: ErrNotCoordinator.Code,
	}
	for version := int16(0); version <= 5; version++ {
		body, err := EncodeOffsetFetchResponse(response, version)
		if err != nil {
			t.Fatalf("Encode(v%d): %v", version, err)
		}
		decoded, err := DecodeOffsetFetchResponse(body, version)
		if err != nil {
			t.Fatalf("Decode(v%d): %v", version, err)
		}

		want := response
		if version < 3 {
			want.ThrottleTimeMs = 0
		}
		if version < 2 {
			want.ErrorCode = 0
		}
		if version < 5 {
			// The epoch has no wire form, it decodes as the absent sentinel.
			want.Topics = []OffsetFetchResponseTopic{
				{Name: "orders", Partitions: []OffsetFetchResponsePartition{
					{PartitionIndex: 0, CommittedOffset: 42, CommittedLeaderEpoch: -1, Metadata: "owner=a"},
					{PartitionIndex: 1, CommittedOffset: -1, CommittedLeaderEpoch: -1},
				}},
			}
		}
		if diff := cmp.Diff(want, decoded); diff != "" {
			t.Errorf("v%d round trip mismatch (-want +got):\n%s", version, diff)
		}
	}
}

func TestResponseCodecRejectsUnknownVersion(t *testing.T) {
	if _, err := EncodeOffsetFetchResponse(OffsetFetchResponse{}, 6); err == nil {
		t.Error("Encode(v6) = nil error, want UnsupportedVersionError")
	}
	if _, err := DecodeOffsetFetchResponse(nil, -1); err == nil {
		t.Error("Decode(v-1) = nil error, want UnsupportedVersionError")
	}
}

func TestDecodeResponseTruncated(t *testing.T) {
	body, err := EncodeOffsetFetchResponse(OffsetFetchResponse{
		Topics: []OffsetFetchResponseTopic{
			{Name: "orders", Partitions: []OffsetFetchResponsePartition{{PartitionIndex: 0, CommittedOffset: 9}}},
		},
	}, 4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = DecodeOffsetFetchResponse(body[:len(body)-3], 4)
	var malformed *MalformedMessageError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedMessageError", err)
	}
}
