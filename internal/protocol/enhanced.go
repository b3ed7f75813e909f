package protocol

import "encoding/binary"

// EnhancedHeaderSize is the original timestamp plus the sequence number.
const EnhancedHeaderSize = 8 + 8

type EnhancedFrame struct {
	Timestamp int64
	Sequence  uint64
	Inner     Frame
}

// EncodeEnhanced prepends the original timestamp and seq to an encoded frame.
func EncodeEnhanced(seq uint64, timestamp int64, inner []byte) []byte {
	out := make([]byte, 0, EnhancedHeaderSize+len(inner))
	out = binary.BigEndian.AppendUint64(out, uint64(timestamp))
	out = binary.BigEndian.AppendUint64(out, seq)
	return append(out, inner...)
}

// EnhancedHeader reads only the fixed header, without decoding the inner frame.
func EnhancedHeader(buf []byte) (timestamp int64, seq uint64, err error) {
	if len(buf) < EnhancedHeaderSize {
		return 0, 0, ErrIncomplete
	}
	return int64(binary.BigEndian.Uint64(buf[0:8])), binary.BigEndian.Uint64(buf[8:16]), nil
}

// DecodeEnhanced reads one enhanced frame from the head of buf.
func DecodeEnhanced(buf []byte) (EnhancedFrame, int, error) {
	ts, seq, err := EnhancedHeader(buf)
	if err != nil {
		return EnhancedFrame{}, 0, err
	}
	inner, n, err := Decode(buf[EnhancedHeaderSize:])
	if err != nil {
		if n > 0 {
			n += EnhancedHeaderSize
		}
		return EnhancedFrame{}, n, err
	}
	return EnhancedFrame{Timestamp: ts, Sequence: seq, Inner: inner}, EnhancedHeaderSize + n, nil
}
