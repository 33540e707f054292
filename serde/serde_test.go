package serde

import (
	"errors"
	"testing"
)

func TestEncodeDecodePrimitives(t *testing.T) {
	encoder := NewEncoder()
	encoder.PutInt16(-1)
	encoder.PutInt32(1 << 20)
	encoder.PutInt64(-9000000000)
	encoder.PutString("topic-a")
	encoder.PutNullableString("meta")
	encoder.PutNullableString("")
	encoder.PutArrayLen(3)
	encoder.PutArrayLen(-1)

	decoder := NewDecoder(encoder.Bytes())
	if got := decoder.Int16(); got != -1 {
		t.Errorf("Int16 = %d, want -1", got)
	}
	if got := decoder.Int32(); got != 1<<20 {
		t.Errorf("Int32 = %d, want %d", got, 1<<20)
	}
	if got := decoder.Int64(); got != -9000000000 {
		t.Errorf("Int64 = %d, want -9000000000", got)
	}
	if got := decoder.String(); got != "topic-a" {
		t.Errorf("String = %q, want %q", got, "topic-a")
	}
	if got := decoder.NullableString(); got != "meta" {
		t.Errorf("NullableString = %q, want %q", got, "meta")
	}
	if got := decoder.NullableString(); got != "" {
		t.Errorf("null NullableString = %q, want empty", got)
	}
	if got := decoder.ArrayLen(); got != 3 {
		t.Errorf("ArrayLen = %d, want 3", got)
	}
	if got := decoder.ArrayLen(); got != -1 {
		t.Errorf("null ArrayLen = %d, want -1", got)
	}
	if err := decoder.Err(); err != nil {
		t.Fatalf("unexpected decoder error: %v", err)
	}
	if decoder.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", decoder.Remaining())
	}
}

func TestDecoderShortBuffer(t *testing.T) {
	decoder := NewDecoder([]byte{0, 0, 1})
	_ = decoder.Int32()
	if !errors.Is(decoder.Err(), ErrInsufficientData) {
		t.Fatalf("Err = %v, want ErrInsufficientData", decoder.Err())
	}
	// The failure sticks and later reads stay zero.
	if got := decoder.Int64(); got != 0 {
		t.Errorf("Int64 after failure = %d, want 0", got)
	}
	if !errors.Is(decoder.Err(), ErrInsufficientData) {
		t.Fatalf("Err after second read = %v, want ErrInsufficientData", decoder.Err())
	}
}

func TestDecoderInvalidLengths(t *testing.T) {
	t.Run("negative string length", func(t *testing.T) {
		encoder := NewEncoder()
		encoder.PutInt16(-5)
		decoder := NewDecoder(encoder.Bytes())
		_ = decoder.String()
		if decoder.Err() == nil {
			t.Fatal("expected error for negative string length")
		}
	})
	t.Run("array length below -1", func(t *testing.T) {
		encoder := NewEncoder()
		encoder.PutInt32(-2)
		decoder := NewDecoder(encoder.Bytes())
		_ = decoder.ArrayLen()
		if decoder.Err() == nil {
			t.Fatal("expected error for array length below -1")
		}
	})
}

func TestEncoderGrowsBuffer(t *testing.T) {
	encoder := NewEncoder()
	payload := make([]byte, 3*BufferIncrement)
	encoder.PutBytes(payload)
	encoder.PutInt32(7)
	decoder := NewDecoder(encoder.Bytes())
	decoder.Offset = len(payload)
	if got := decoder.Int32(); got != 7 {
		t.Errorf("Int32 = %d, want 7", got)
	}
}

func TestPutLen(t *testing.T) {
	encoder := NewEncoder()
	encoder.PutInt64(42)
	encoder.PutLen()
	b := encoder.Bytes()
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}
	if got := Encoding.Uint32(b); got != 8 {
		t.Errorf("length prefix = %d, want 8", got)
	}
}

func TestParseHeader(t *testing.T) {
	encoder := NewEncoder()
	encoder.PutInt16(9)
	encoder.PutInt16(4)
	encoder.PutInt32(123)
	encoder.PutNullableString("my-client")
	encoder.PutInt32(99) // body
	encoder.PutLen()

	req, err := ParseHeader(encoder.Bytes(), "127.0.0.1:5555")
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if req.RequestAPIKey != 9 || req.RequestAPIVersion != 4 {
		t.Errorf("api key/version = %d/%d, want 9/4", req.RequestAPIKey, req.RequestAPIVersion)
	}
	if req.CorrelationID != 123 {
		t.Errorf("CorrelationID = %d, want 123", req.CorrelationID)
	}
	if req.ClientID != "my-client" {
		t.Errorf("ClientID = %q, want %q", req.ClientID, "my-client")
	}
	if len(req.Body) != 4 {
		t.Errorf("body length = %d, want 4", len(req.Body))
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	if _, err := ParseHeader([]byte{0, 0, 0, 9, 0}, "addr"); err == nil {
		t.Fatal("expected error for truncated header")
	}
}
