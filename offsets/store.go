// Package offsets persists committed consumer group offsets. It is the
// group-metadata lookup the coordinator resolves OffsetFetch requests
// against.
package offsets

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"

	"github.com/CefBoud/groupfetch/protocol"
	"github.com/CefBoud/groupfetch/serde"
	"github.com/CefBoud/groupfetch/types"
)

// Record keys and values are version-prefixed, following the schema of
// the __consumer_offsets topic records.
const (
	keyVersion   int16 = 1
	valueVersion int16 = 1
)

// Store is a bolt database with one bucket per consumer group.
type Store struct {
	db *bolt.DB
}

// Committed is a committed offset with its leader epoch and metadata.
// Offset -1 means nothing is committed; leader epoch -1 means absent.
type Committed struct {
	Offset      int64
	LeaderEpoch int32
	Metadata    string
}

// GroupOffset pairs a topic partition with its committed entry.
type GroupOffset struct {
	TopicPartition types.TopicPartition
	Committed      Committed
}

// Open opens (creating if needed) the offsets database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open offsets store: %w", err)
	}
	return &Store{db: db}, nil
}

func encodeKey(tp types.TopicPartition) []byte {
	encoder := serde.NewEncoder()
	encoder.PutInt16(keyVersion)
	encoder.PutString(tp.Topic)
	encoder.PutInt32(tp.Partition)
	return encoder.Bytes()
}

func decodeKey(b []byte) (types.TopicPartition, error) {
	decoder := serde.NewDecoder(b)
	_ = decoder.Int16() // key schema version
	tp := types.TopicPartition{Topic: decoder.String(), Partition: decoder.Int32()}
	if err := decoder.Err(); err != nil {
		return types.TopicPartition{}, fmt.Errorf("corrupt offset key: %w", err)
	}
	return tp, nil
}

func encodeValue(committed Committed) []byte {
	encoder := serde.NewEncoder()
	encoder.PutInt16(valueVersion)
	encoder.PutInt64(committed.Offset)
	encoder.PutInt32(committed.LeaderEpoch)
	encoder.PutNullableString(committed.Metadata)
	return encoder.Bytes()
}

func decodeValue(b []byte) (Committed, error) {
	decoder := serde.NewDecoder(b)
	_ = decoder.Int16() // value schema version
	committed := Committed{
		Offset:      decoder.Int64(),
		LeaderEpoch: decoder.Int32(),
		Metadata:    decoder.NullableString(),
	}
	if err := decoder.Err(); err != nil {
		return Committed{}, fmt.Errorf("corrupt offset value: %w", err)
	}
	return committed, nil
}

// Commit stores a committed offset for (group, topic, partition).
func (s *Store) Commit(group string, tp types.TopicPartition, committed Committed) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(group))
		if err != nil {
			return err
		}
		return bucket.Put(encodeKey(tp), encodeValue(committed))
	})
}

// Fetch returns the committed entry for (group, topic, partition).
// Missing groups or partitions read as offset -1, not as an error.
func (s *Store) Fetch(group string, tp types.TopicPartition) (Committed, error) {
	committed := Committed{
		Offset:      protocol.InvalidOffset,
		LeaderEpoch: protocol.NoLeaderEpoch,
		Metadata:    protocol.NoMetadata,
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(group))
		if bucket == nil {
			return nil
		}
		value := bucket.Get(encodeKey(tp))
		if value == nil {
			return nil
		}
		var err error
		committed, err = decodeValue(value)
		return err
	})
	return committed, err
}

// FetchGroup returns every committed entry of a group, in the store's
// key order (stable across calls).
func (s *Store) FetchGroup(group string) ([]GroupOffset, error) {
	var res []GroupOffset
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(group))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			tp, err := decodeKey(k)
			if err != nil {
				return err
			}
			committed, err := decodeValue(v)
			if err != nil {
				return err
			}
			res = append(res, GroupOffset{TopicPartition: tp, Committed: committed})
			return nil
		})
	})
	return res, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
