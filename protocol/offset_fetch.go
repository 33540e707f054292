package protocol

import (
	"slices"

	"github.com/CefBoud/groupfetch/types"
)

// Sentinels used in response partition entries, as defined by the protocol.
const (
	InvalidOffset int64  = -1
	NoLeaderEpoch int32  = -1
	NoMetadata    string = ""
)

// TopicPartitionSet groups partition indexes by topic. A (topic,
// partition) pair is held at most once; the first-seen order of topics,
// and of partitions within a topic, is preserved so serialization is
// deterministic.
type TopicPartitionSet struct {
	order      []string
	partitions map[string][]int32
}

// NewTopicPartitionSet builds a set from the given pairs, deduplicating
// by value.
func NewTopicPartitionSet(tps ...types.TopicPartition) *TopicPartitionSet {
	s := &TopicPartitionSet{partitions: make(map[string][]int32)}
	for _, tp := range tps {
		s.Add(tp)
	}
	return s
}

// Add inserts a pair. It reports false if the pair was already present.
func (s *TopicPartitionSet) Add(tp types.TopicPartition) bool {
	existing, ok := s.partitions[tp.Topic]
	if !ok {
		s.order = append(s.order, tp.Topic)
	}
	if slices.Contains(existing, tp.Partition) {
		return false
	}
	s.partitions[tp.Topic] = append(existing, tp.Partition)
	return true
}

// Topics returns the topic names in first-seen order.
func (s *TopicPartitionSet) Topics() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.order)
}

// Partitions returns the partition indexes of a topic in first-seen order.
func (s *TopicPartitionSet) Partitions(topic string) []int32 {
	if s == nil {
		return nil
	}
	return slices.Clone(s.partitions[topic])
}

// TopicPartitions flattens the set into pairs, topics in first-seen
// order and partitions in first-seen order within each topic.
func (s *TopicPartitionSet) TopicPartitions() []types.TopicPartition {
	if s == nil {
		return nil
	}
	var res []types.TopicPartition
	for _, topic := range s.order {
		for _, partition := range s.partitions[topic] {
			res = append(res, types.TopicPartition{Topic: topic, Partition: partition})
		}
	}
	return res
}

// Len returns the number of (topic, partition) pairs.
func (s *TopicPartitionSet) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, partitions := range s.partitions {
		n += len(partitions)
	}
	return n
}

// RequestedScope says which partitions an OffsetFetch names: an explicit
// set, or every partition the group has offsets for. The tag, not
// emptiness, distinguishes the two: an explicit empty set asks for zero
// partitions, which is not the same request as all of them.
type RequestedScope struct {
	allPartitions bool
	set           *TopicPartitionSet
}

// ExplicitScope builds a scope naming the given partitions, grouped by
// topic and deduplicated.
func ExplicitScope(partitions []types.TopicPartition) RequestedScope {
	return RequestedScope{set: NewTopicPartitionSet(partitions...)}
}

// AllPartitionsScope builds the scope meaning "every partition of the
// group"; the partitions themselves are resolved out-of-band by the
// receiver.
func AllPartitionsScope() RequestedScope {
	return RequestedScope{allPartitions: true}
}

// IsAllPartitions reports whether the scope is the all-partitions marker.
func (s RequestedScope) IsAllPartitions() bool {
	return s.allPartitions
}

// Set returns the explicit set. It is empty for the all-partitions
// scope; check IsAllPartitions first.
func (s RequestedScope) Set() *TopicPartitionSet {
	if s.set == nil {
		return NewTopicPartitionSet()
	}
	return s.set
}

// OffsetFetchBuilder assembles an OffsetFetchRequest and validates it
// against a target version. Single-threaded, single-use: build once,
// discard.
type OffsetFetchBuilder struct {
	groupID string
	scope   RequestedScope
}

// NewOffsetFetchBuilder starts a request for the committed offsets of
// the named partitions.
func NewOffsetFetchBuilder(groupID string, partitions []types.TopicPartition) *OffsetFetchBuilder {
	return &OffsetFetchBuilder{groupID: groupID, scope: ExplicitScope(partitions)}
}

// NewAllPartitionsBuilder starts a request for the committed offsets of
// every partition of the group.
func NewAllPartitionsBuilder(groupID string) *OffsetFetchBuilder {
	return &OffsetFetchBuilder{groupID: groupID, scope: AllPartitionsScope()}
}

// Build validates the request against the target version and stamps it.
// All-partitions below version 2 fails with UnsupportedFeatureError:
// those versions have no wire form for it, and silently sending an
// empty explicit list would ask for zero partitions instead.
func (b *OffsetFetchBuilder) Build(version int16) (OffsetFetchRequest, error) {
	if version < OffsetFetchMinVersion || version > OffsetFetchMaxVersion {
		return OffsetFetchRequest{}, &UnsupportedVersionError{Version: version, MinVersion: OffsetFetchMinVersion, MaxVersion: OffsetFetchMaxVersion}
	}
	if b.scope.IsAllPartitions() && version < OffsetFetchAllPartitionsMinVersion {
		return OffsetFetchRequest{}, &UnsupportedFeatureError{
			Feature:    "fetching offsets for all topic partitions",
			Version:    version,
			MinVersion: OffsetFetchAllPartitionsMinVersion,
		}
	}
	return OffsetFetchRequest{groupID: b.groupID, scope: b.scope, version: version}, nil
}

// OffsetFetchRequest is an immutable, version-stamped OffsetFetch
// request. Scope and version travel together: reinterpreting the scope
// under another version means building a new request.
type OffsetFetchRequest struct {
	groupID string
	scope   RequestedScope
	version int16
}

// GroupID returns the consumer group identifier.
func (r OffsetFetchRequest) GroupID() string {
	return r.groupID
}

// Version returns the version the request was built or parsed with.
func (r OffsetFetchRequest) Version() int16 {
	return r.version
}

// Scope returns the requested partitions.
func (r OffsetFetchRequest) Scope() RequestedScope {
	return r.scope
}

// ParseOffsetFetchRequest decodes a request body at a known version.
// Decoding failures surface as MalformedMessageError.
func ParseOffsetFetchRequest(body []byte, version int16) (OffsetFetchRequest, error) {
	if version < OffsetFetchMinVersion || version > OffsetFetchMaxVersion {
		return OffsetFetchRequest{}, &UnsupportedVersionError{Version: version, MinVersion: OffsetFetchMinVersion, MaxVersion: OffsetFetchMaxVersion}
	}
	return decodeOffsetFetchRequest(body, version)
}
