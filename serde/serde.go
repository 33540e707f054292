package serde

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/CefBoud/groupfetch/types"
)

// Encoding is Big Endian as per the protocol
var Encoding = binary.BigEndian

// ErrInsufficientData is reported by the Decoder when the buffer ends
// before the value it is asked for.
var ErrInsufficientData = errors.New("insufficient data to decode value")

// BufferIncrement is the size of the increment when the buffer limit is reached
const BufferIncrement = 1024

// Encoder is a byte slice with an offset
type Encoder struct {
	b      []byte
	offset int
}

// NewEncoder creates a new Encoder with an initial buffer
func NewEncoder() Encoder {
	return Encoder{b: make([]byte, BufferIncrement)}
}

// ensureBufferSpace ensures the buffer has enough space to accommodate the new data
func (e *Encoder) ensureBufferSpace(off int) {
	for off+e.offset > len(e.b) {
		newBuffer := make([]byte, len(e.b)+BufferIncrement)
		copy(newBuffer, e.b)
		e.b = newBuffer
	}
}

// PutInt16 encodes an int16 value into the buffer
func (e *Encoder) PutInt16(i int16) {
	e.ensureBufferSpace(2)
	Encoding.PutUint16(e.b[e.offset:], uint16(i))
	e.offset += 2
}

// PutInt32 encodes an int32 value into the buffer
func (e *Encoder) PutInt32(i int32) {
	e.ensureBufferSpace(4)
	Encoding.PutUint32(e.b[e.offset:], uint32(i))
	e.offset += 4
}

// PutInt64 encodes an int64 value into the buffer
func (e *Encoder) PutInt64(i int64) {
	e.ensureBufferSpace(8)
	Encoding.PutUint64(e.b[e.offset:], uint64(i))
	e.offset += 8
}

// PutString encodes a STRING (INT16 length + content) into the buffer
func (e *Encoder) PutString(s string) {
	e.ensureBufferSpace(2 + len(s))
	e.PutInt16(int16(len(s)))
	copy(e.b[e.offset:], s)
	e.offset += len(s)
}

// PutNullableString encodes a NULLABLE_STRING. The empty string is the
// null sentinel and is encoded with length -1.
func (e *Encoder) PutNullableString(s string) {
	if s == "" {
		e.PutInt16(-1)
		return
	}
	e.PutString(s)
}

// PutBytes copies raw bytes into the buffer
func (e *Encoder) PutBytes(b []byte) {
	e.ensureBufferSpace(len(b))
	copy(e.b[e.offset:], b)
	e.offset += len(b)
}

// PutArrayLen encodes an ARRAY length. A null array is encoded as -1.
func (e *Encoder) PutArrayLen(l int) {
	e.PutInt32(int32(l))
}

// PutLen prefixes the buffer with its total length
func (e *Encoder) PutLen() {
	lengthBytes := Encoding.AppendUint32([]byte{}, uint32(e.offset))
	e.b = slices.Insert(e.b, 0, lengthBytes...)
	e.offset += len(lengthBytes)
}

// Bytes returns the encoded data as a byte slice
func (e *Encoder) Bytes() []byte {
	return e.b[:e.offset]
}

// Decoder is a byte slice and offset. The first decoding failure sticks:
// every later read returns a zero value and Err() reports the failure.
type Decoder struct {
	b      []byte
	Offset int
	err    error
}

// NewDecoder creates a new Decoder from a byte slice
func NewDecoder(b []byte) Decoder {
	return Decoder{b: b}
}

// Err returns the first decoding failure, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Remaining returns the number of undecoded bytes.
func (d *Decoder) Remaining() int {
	return len(d.b) - d.Offset
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) ensure(n int) bool {
	if d.err != nil {
		return false
	}
	if d.Offset+n > len(d.b) {
		d.fail(fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrInsufficientData, n, d.Offset, len(d.b)-d.Offset))
		return false
	}
	return true
}

// Int16 decodes an int16 value from the buffer
func (d *Decoder) Int16() int16 {
	if !d.ensure(2) {
		return 0
	}
	res := int16(Encoding.Uint16(d.b[d.Offset:]))
	d.Offset += 2
	return res
}

// Int32 decodes an int32 value from the buffer
func (d *Decoder) Int32() int32 {
	if !d.ensure(4) {
		return 0
	}
	res := int32(Encoding.Uint32(d.b[d.Offset:]))
	d.Offset += 4
	return res
}

// Int64 decodes an int64 value from the buffer
func (d *Decoder) Int64() int64 {
	if !d.ensure(8) {
		return 0
	}
	res := int64(Encoding.Uint64(d.b[d.Offset:]))
	d.Offset += 8
	return res
}

// String decodes a STRING (INT16 length + content) from the buffer
func (d *Decoder) String() string {
	stringLen := d.Int16()
	if d.err != nil {
		return ""
	}
	if stringLen < 0 {
		d.fail(fmt.Errorf("invalid string length %d at offset %d", stringLen, d.Offset))
		return ""
	}
	if !d.ensure(int(stringLen)) {
		return ""
	}
	res := string(d.b[d.Offset : d.Offset+int(stringLen)])
	d.Offset += int(stringLen)
	return res
}

// NullableString decodes a NULLABLE_STRING. Null (length -1) decodes to "".
func (d *Decoder) NullableString() string {
	stringLen := d.Int16()
	if d.err != nil {
		return ""
	}
	if stringLen == -1 {
		return ""
	}
	if stringLen < -1 {
		d.fail(fmt.Errorf("invalid nullable string length %d at offset %d", stringLen, d.Offset))
		return ""
	}
	if !d.ensure(int(stringLen)) {
		return ""
	}
	res := string(d.b[d.Offset : d.Offset+int(stringLen)])
	d.Offset += int(stringLen)
	return res
}

// ArrayLen decodes an ARRAY length. -1 means a null array.
func (d *Decoder) ArrayLen() int32 {
	arrayLen := d.Int32()
	if d.err != nil {
		return 0
	}
	if arrayLen < -1 {
		d.fail(fmt.Errorf("invalid array length %d at offset %d", arrayLen, d.Offset))
		return 0
	}
	return arrayLen
}

// ParseHeader parses a v1 request header (api key, api version,
// correlation id, nullable client id, no tagged fields) and returns the
// header fields along with the remaining body bytes.
func ParseHeader(buffer []byte, connAddr string) (types.Request, error) {
	decoder := NewDecoder(buffer)
	req := types.Request{
		Length:            decoder.Int32(),
		RequestAPIKey:     decoder.Int16(),
		RequestAPIVersion: decoder.Int16(),
		CorrelationID:     decoder.Int32(),
		ClientID:          decoder.NullableString(),
		ConnectionAddress: connAddr,
	}
	if err := decoder.Err(); err != nil {
		return types.Request{}, fmt.Errorf("malformed request header: %w", err)
	}
	req.Body = buffer[decoder.Offset:]
	return req, nil
}
