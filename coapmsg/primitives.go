package coapmsg

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// UintToBytes encodes v as the minimum-length big-endian byte string able
// to represent it (RFC 7252 section 3.2). v == 0 encodes to zero bytes,
// never a single zero byte.
func UintToBytes(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var buf [8]byte
	n := 8
	for v > 0 {
		n--
		buf[n] = byte(v)
		v >>= 8
	}
	out := make([]byte, 8-n)
	copy(out, buf[n:])
	return out
}

// UintFromBytes decodes a big-endian unsigned integer. An empty slice
// decodes to 0, matching the wire encoding of a zero-valued uint option.
func UintFromBytes(bs []byte) uint64 {
	var v uint64
	for _, b := range bs {
		v = v<<8 | uint64(b)
	}
	return v
}

// OpaqueFromText parses an option value given in "0xHEX" or bare "HEX"
// notation. A string carrying more than one 'x' is rejected as malformed
// rather than silently truncated.
func OpaqueFromText(s string) ([]byte, error) {
	if strings.Count(s, "x") > 1 {
		return nil, fmt.Errorf("coapmsg: malformed opaque text %q", s)
	}
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("coapmsg: malformed opaque text %q: %w", s, err)
	}
	return b, nil
}
