package cache

import (
	"encoding/binary"
	"errors"

	"github.com/hooklift/oidc/types"
)

// ErrMalformedFrame is returned by DecodeContinuationFrame when the
// bytes don't look like a frame this version produced.
var ErrMalformedFrame = errors.New("cache: malformed continuation frame")

// continuationFrameVersion is the only version this server writes or
// reads. A future incompatible change would bump this and keep reading
// v1 frames until they age out of the cache's 1-hour TTL.
const continuationFrameVersion = 1

// EncodeContinuationFrame serializes an authorization request's
// parameters into the versioned binary frame persisted under unique_id:
// version:int32, count:int32, then count×(string,string), each string
// length-prefixed by a big-endian int32.
func EncodeContinuationFrame(params []types.Parameter) []byte {
	buf := make([]byte, 0, 8+len(params)*16)
	buf = appendInt32(buf, continuationFrameVersion)
	buf = appendInt32(buf, int32(len(params)))
	for _, p := range params {
		buf = appendString(buf, p.Name)
		buf = appendString(buf, p.Value)
	}
	return buf
}

// DecodeContinuationFrame parses the binary frame written by
// EncodeContinuationFrame back into an ordered parameter list.
func DecodeContinuationFrame(b []byte) ([]types.Parameter, error) {
	if len(b) < 8 {
		return nil, ErrMalformedFrame
	}
	version := readInt32(b[0:4])
	if version != continuationFrameVersion {
		return nil, ErrMalformedFrame
	}
	count := readInt32(b[4:8])
	if count < 0 {
		return nil, ErrMalformedFrame
	}

	off := 8
	out := make([]types.Parameter, 0, count)
	for i := int32(0); i < count; i++ {
		name, n, err := readString(b, off)
		if err != nil {
			return nil, err
		}
		off = n
		value, n, err := readString(b, off)
		if err != nil {
			return nil, err
		}
		off = n
		out = append(out, types.Parameter{Name: name, Value: value})
	}
	return out, nil
}

func appendInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func readInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

func appendString(buf []byte, s string) []byte {
	buf = appendInt32(buf, int32(len(s)))
	return append(buf, s...)
}

func readString(b []byte, off int) (string, int, error) {
	if off+4 > len(b) {
		return "", 0, ErrMalformedFrame
	}
	length := int(readInt32(b[off : off+4]))
	off += 4
	if length < 0 || off+length > len(b) {
		return "", 0, ErrMalformedFrame
	}
	return string(b[off : off+length]), off + length, nil
}
