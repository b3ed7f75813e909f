package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/goccy/go-json"
)

const (
	// HeaderSize covers kind, timestamp and the payload length prefix.
	HeaderSize = 4 + 8 + 4
	// MinFrameSize is a frame with empty payload and empty binary.
	MinFrameSize = HeaderSize + 4
)

var (
	// ErrIncomplete means the buffer ends before the frame does. Not an error
	// condition for a stream reader: wait for more bytes.
	ErrIncomplete = errors.New("incomplete frame")
	ErrMalformed  = errors.New("malformed frame")
)

// Fields is the structured payload: string keys, string/number/bool values.
// Decoded numbers are json.Number so 64-bit integers keep every digit.
type Fields map[string]any

func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Int reads an integer field; 0 when missing or not a number.
func (f Fields) Int(key string) int64 {
	switch v := f[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		fl, _ := v.Float64()
		return int64(fl)
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

type Frame struct {
	Kind      Kind
	Fields    Fields
	Binary    []byte
	Timestamp int64 // ms since epoch, as set by the sender
}

func (f Frame) Time() time.Time { return time.UnixMilli(f.Timestamp) }

// Encode builds a wire frame. Nil fields encode as an empty payload.
func Encode(kind Kind, fields Fields, bin []byte, timestamp int64) []byte {
	var payload []byte
	if fields != nil {
		// map[string]any of scalars cannot fail to marshal
		payload, _ = json.Marshal(fields)
	}
	out := make([]byte, 0, MinFrameSize+len(payload)+len(bin))
	out = binary.BigEndian.AppendUint32(out, uint32(kind))
	out = binary.BigEndian.AppendUint64(out, uint64(timestamp))
	out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(bin)))
	out = append(out, bin...)
	return out
}

// EncodeFrame is Encode for an already built Frame.
func EncodeFrame(f Frame) []byte {
	return Encode(f.Kind, f.Fields, f.Binary, f.Timestamp)
}

// Decode reads one frame from the head of buf. n is the frame length on the
// wire; it is also set for ErrMalformed so the caller can skip the frame.
// The returned binary is a copy; buf may be reused.
func Decode(buf []byte) (f Frame, n int, err error) {
	if len(buf) < HeaderSize {
		return Frame{}, 0, ErrIncomplete
	}
	f.Kind = Kind(binary.BigEndian.Uint32(buf[0:4]))
	f.Timestamp = int64(binary.BigEndian.Uint64(buf[4:12]))
	plen := int(binary.BigEndian.Uint32(buf[12:16]))

	off := HeaderSize
	if len(buf)-off < plen+4 {
		return Frame{}, 0, ErrIncomplete
	}
	payload := buf[off : off+plen]
	off += plen
	blen := int(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	if len(buf)-off < blen {
		return Frame{}, 0, ErrIncomplete
	}
	if blen > 0 {
		f.Binary = append([]byte(nil), buf[off:off+blen]...)
	}
	n = off + blen

	if plen > 0 {
		if f.Fields, err = decodeFields(payload); err != nil {
			return Frame{}, n, fmt.Errorf("%w: %s payload: %v", ErrMalformed, f.Kind, err)
		}
		if f.Fields == nil {
			// "null" is valid JSON but not an object
			return Frame{}, n, fmt.Errorf("%w: %s payload is not an object", ErrMalformed, f.Kind)
		}
	}
	return f, n, nil
}

// DecodeAll decodes every complete frame in buf. consumed is the number of
// leading bytes the caller may drop; the rest is a partial frame. Malformed
// frames are skipped and reported through err, which never stops decoding.
func DecodeAll(buf []byte) (frames []Frame, consumed int, err error) {
	var errs []error
	for consumed < len(buf) {
		f, n, derr := Decode(buf[consumed:])
		if errors.Is(derr, ErrIncomplete) {
			break
		}
		consumed += n
		if derr != nil {
			errs = append(errs, derr)
			continue
		}
		frames = append(frames, f)
	}
	return frames, consumed, errors.Join(errs...)
}

func decodeFields(payload []byte) (Fields, error) {
	if !json.Valid(payload) {
		return nil, errors.New("invalid json")
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var fields Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
