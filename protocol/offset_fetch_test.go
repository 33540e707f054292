package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/CefBoud/groupfetch/types"
)

func TestTopicPartitionSetDeduplicatesAndKeepsOrder(t *testing.T) {
	set := NewTopicPartitionSet(
		types.TopicPartition{Topic: "b", Partition: 1},
		types.TopicPartition{Topic: "a", Partition: 0},
		types.TopicPartition{Topic: "b", Partition: 1},
		types.TopicPartition{Topic: "b", Partition: 0},
		types.TopicPartition{Topic: "a", Partition: 0},
	)
	if set.Len() != 3 {
		t.Fatalf("Len = %d, want 3", set.Len())
	}
	if diff := cmp.Diff([]string{"b", "a"}, set.Topics()); diff != "" {
		t.Errorf("Topics mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int32{1, 0}, set.Partitions("b")); diff != "" {
		t.Errorf("Partitions(b) mismatch (-want +got):\n%s", diff)
	}
	want := []types.TopicPartition{
		{Topic: "b", Partition: 1},
		{Topic: "b", Partition: 0},
		{Topic: "a", Partition: 0},
	}
	if diff := cmp.Diff(want, set.TopicPartitions()); diff != "" {
		t.Errorf("TopicPartitions mismatch (-want +got):\n%s", diff)
	}
}

func TestTopicPartitionSetAddReportsDuplicates(t *testing.T) {
	set := NewTopicPartitionSet()
	if !set.Add(types.TopicPartition{Topic: "t", Partition: 0}) {
		t.Error("first Add = false, want true")
	}
	if set.Add(types.TopicPartition{Topic: "t", Partition: 0}) {
		t.Error("duplicate Add = true, want false")
	}
}

func TestBuildValidatesVersionRange(t *testing.T) {
	b := NewOffsetFetchBuilder("group", []types.TopicPartition{{Topic: "t", Partition: 0}})
	for _, version := range []int16{-1, 6, 42} {
		_, err := b.Build(version)
		var unsupported *UnsupportedVersionError
		if !errors.As(err, &unsupported) {
			t.Fatalf("Build(%d) error = %v, want UnsupportedVersionError", version, err)
		}
		if unsupported.MinVersion != 0 || unsupported.MaxVersion != 5 {
			t.Errorf("Build(%d) advertised range %d-%d, want 0-5", version, unsupported.MinVersion, unsupported.MaxVersion)
		}
	}
	for version := int16(0); version <= 5; version++ {
		if _, err := b.Build(version); err != nil {
			t.Errorf("Build(%d) = %v, want nil", version, err)
		}
	}
}

func TestBuildAllPartitionsNeedsVersion2(t *testing.T) {
	b := NewAllPartitionsBuilder("group")
	for _, version := range []int16{0, 1} {
		_, err := b.Build(version)
		var unsupported *UnsupportedFeatureError
		if !errors.As(err, &unsupported) {
			t.Fatalf("Build(%d) error = %v, want UnsupportedFeatureError", version, err)
		}
		if unsupported.MinVersion != 2 {
			t.Errorf("Build(%d) required version %d, want 2", version, unsupported.MinVersion)
		}
	}
	for version := int16(2); version <= 5; version++ {
		request, err := b.Build(version)
		if err != nil {
			t.Fatalf("Build(%d) = %v, want nil", version, err)
		}
		if !request.Scope().IsAllPartitions() {
			t.Errorf("Build(%d) scope lost the all-partitions marker", version)
		}
	}
}

func TestEmptyExplicitScopeIsNotAllPartitions(t *testing.T) {
	request, err := NewOffsetFetchBuilder("group", nil).Build(0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if request.Scope().IsAllPartitions() {
		t.Error("empty explicit scope reports all-partitions")
	}
	if request.Scope().Set().Len() != 0 {
		t.Errorf("Set().Len() = %d, want 0", request.Scope().Set().Len())
	}

	all, err := NewAllPartitionsBuilder("group").Build(2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !all.Scope().IsAllPartitions() {
		t.Error("all-partitions scope lost its marker")
	}
	if all.Scope().Set().Len() != 0 {
		t.Errorf("all-partitions Set().Len() = %d, want 0", all.Scope().Set().Len())
	}
}

func TestRequestAccessors(t *testing.T) {
	partitions := []types.TopicPartition{{Topic: "t", Partition: 3}}
	request, err := NewOffsetFetchBuilder("my-group", partitions).Build(4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if request.GroupID() != "my-group" {
		t.Errorf("GroupID = %q, want %q", request.GroupID(), "my-group")
	}
	if request.Version() != 4 {
		t.Errorf("Version = %d, want 4", request.Version())
	}
	if diff := cmp.Diff(partitions, request.Scope().Set().TopicPartitions()); diff != "" {
		t.Errorf("scope mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorForMapsTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int16
	}{
		{"nil", nil, ErrNone.Code},
		{"unsupported version", &UnsupportedVersionError{Version: 6, MinVersion: 0, MaxVersion: 5}, ErrUnsupportedVersion.Code},
		{"malformed", &MalformedMessageError{Cause: errors.New("boom")}, ErrCorruptMessage.Code},
		{"anything else", errors.New("disk on fire"), ErrUnknownServerError.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorFor(tc.err).Code; got != tc.want {
				t.Errorf("ErrorFor(%v).Code = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
