package broker

import (
	"github.com/CefBoud/groupfetch/offsets"
	"github.com/CefBoud/groupfetch/protocol"
	"github.com/CefBoud/groupfetch/serde"
	"github.com/CefBoud/groupfetch/types"
)

// APIKeyHandler pairs an api name with its handler.
type APIKeyHandler struct {
	Name    string
	Handler func(req types.Request) ([]byte, error)
}

// APIDispatcher resolves an api key to its handler. The zero value is
// returned for keys the broker does not serve.
func (b *Broker) APIDispatcher(apiKey int16) APIKeyHandler {
	switch apiKey {
	case protocol.APIVersionsKey:
		return APIKeyHandler{Name: "ApiVersions", Handler: b.getAPIVersionsResponse}
	case protocol.OffsetFetchKey:
		return APIKeyHandler{Name: "OffsetFetch", Handler: b.getOffsetFetchResponse}
	default:
		return APIKeyHandler{}
	}
}

// newResponse frames a response body with the v0 response header
// (correlation id) and the length prefix.
func newResponse(req types.Request, body []byte) []byte {
	encoder := serde.NewEncoder()
	encoder.PutInt32(req.CorrelationID)
	encoder.PutBytes(body)
	encoder.PutLen()
	return encoder.Bytes()
}

func (b *Broker) getAPIVersionsResponse(req types.Request) ([]byte, error) {
	response := protocol.APIVersionsResponse{
		ErrorCode: 0,
		APIKeys:   protocol.SupportedAPIKeys,
	}
	return newResponse(req, protocol.EncodeAPIVersionsResponse(response)), nil
}

// getOffsetFetchResponse answers an OffsetFetch. Requests that cannot
// be decoded at all (bad version, malformed body) fail the connection;
// a store failure after decoding is answered in-band with a synthesized
// error response.
func (b *Broker) getOffsetFetchResponse(req types.Request) ([]byte, error) {
	request, err := protocol.ParseOffsetFetchRequest(req.Body, req.RequestAPIVersion)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("offset fetch",
		"group", request.GroupID(),
		"version", request.Version(),
		"allPartitions", request.Scope().IsAllPartitions())

	response, err := b.resolveOffsets(request)
	if err != nil {
		b.logger.Error("offset lookup failed", "group", request.GroupID(), "error", err)
		errorResponsesTotal.Inc()
		response, err = protocol.ErrorResponse(request, protocol.ErrorFor(err), 0)
		if err != nil {
			return nil, err
		}
	}
	body, err := protocol.EncodeOffsetFetchResponse(response, request.Version())
	if err != nil {
		return nil, err
	}
	return newResponse(req, body), nil
}

// resolveOffsets looks the requested partitions up in the store. For an
// explicit scope every named partition gets an entry, committed or not;
// for the all-partitions scope the group's stored entries are returned
// as-is.
func (b *Broker) resolveOffsets(request protocol.OffsetFetchRequest) (protocol.OffsetFetchResponse, error) {
	response := protocol.OffsetFetchResponse{}
	if request.Scope().IsAllPartitions() {
		groupOffsets, err := b.Store.FetchGroup(request.GroupID())
		if err != nil {
			return protocol.OffsetFetchResponse{}, err
		}
		response.Topics = groupTopics(groupOffsets)
		return response, nil
	}

	set := request.Scope().Set()
	for _, name := range set.Topics() {
		topic := protocol.OffsetFetchResponseTopic{Name: name}
		for _, partition := range set.Partitions(name) {
			committed, err := b.Store.Fetch(request.GroupID(), types.TopicPartition{Topic: name, Partition: partition})
			if err != nil {
				return protocol.OffsetFetchResponse{}, err
			}
			topic.Partitions = append(topic.Partitions, protocol.OffsetFetchResponsePartition{
				PartitionIndex:       partition,
				CommittedOffset:      committed.Offset,
				CommittedLeaderEpoch: committed.LeaderEpoch,
				Metadata:             committed.Metadata,
			})
		}
		response.Topics = append(response.Topics, topic)
	}
	return response, nil
}

// groupTopics folds a flat offset listing into per-topic entries,
// preserving the store's ordering.
func groupTopics(groupOffsets []offsets.GroupOffset) []protocol.OffsetFetchResponseTopic {
	var topics []protocol.OffsetFetchResponseTopic
	index := make(map[string]int)
	for _, groupOffset := range groupOffsets {
		name := groupOffset.TopicPartition.Topic
		i, ok := index[name]
		if !ok {
			i = len(topics)
			index[name] = i
			topics = append(topics, protocol.OffsetFetchResponseTopic{Name: name})
		}
		topics[i].Partitions = append(topics[i].Partitions, protocol.OffsetFetchResponsePartition{
			PartitionIndex:       groupOffset.TopicPartition.Partition,
			CommittedOffset:      groupOffset.Committed.Offset,
			CommittedLeaderEpoch: groupOffset.Committed.LeaderEpoch,
			Metadata:             groupOffset.Committed.Metadata,
		})
	}
	return topics
}
