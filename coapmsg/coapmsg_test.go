package coapmsg

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad test hex %q: %v", s, err)
	}
	return b
}

func TestEncodeGetWithToken(t *testing.T) {
	msg := NewMessage()
	msg.Type = Confirmable
	msg.Code = GET
	msg.MessageID = 0x1234
	msg.Token = []byte{0xAB}
	msg.Options().Add(URIPath, "a")

	got, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	want := mustHex(t, "410112" /* cont'd */ +"34AB" /* token + opt */ +"B161")
	if !bytes.Equal(got, want) {
		t.Errorf("encode mismatch:\n got  % X\n want % X", got, want)
	}
}

func TestEncodeGetZeroToken(t *testing.T) {
	msg := NewMessage()
	msg.Type = Confirmable
	msg.Code = GET
	msg.MessageID = 0x0001
	msg.SetTokenValue(0)

	got, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	want := mustHex(t, "40010001")
	if !bytes.Equal(got, want) {
		t.Errorf("encode mismatch:\n got  % X\n want % X", got, want)
	}
	if len(msg.Token) != 0 {
		t.Errorf("token = %x, want zero bytes for value 0", msg.Token)
	}
}

func TestEncodeEmptyAck(t *testing.T) {
	msg := NewAck(0x7F7F)
	got, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	want := mustHex(t, "60007F7F")
	if !bytes.Equal(got, want) {
		t.Errorf("encode mismatch:\n got  % X\n want % X", got, want)
	}
}

func TestEncodeOptionDeltaExtended(t *testing.T) {
	msg := NewMessage()
	msg.Type = Confirmable
	msg.Code = GET
	msg.Options().Add(URIQuery, "x")

	got, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	// Header(41 or 40 depending on token) + Code + MID are irrelevant here;
	// just check the option-header tail: nibble 13 (delta 15-13=2), length 1.
	tail := got[len(got)-3:]
	want := mustHex(t, "D10278")
	if !bytes.Equal(tail, want) {
		t.Errorf("option tail = % X, want % X", tail, want)
	}
}

func TestRoundTripRepeatedOption(t *testing.T) {
	msg := NewMessage()
	msg.Type = NonConfirmable
	msg.Code = GET
	msg.MessageID = 42
	msg.Options().Add(URIPath, "a")
	msg.Options().Add(URIPath, "b")

	bin, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	decoded, err := ParseMessage(bin)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	path := decoded.Options().Get(URIPath)
	if path.Len() != 2 {
		t.Fatalf("got %d Uri-Path values, want 2", path.Len())
	}
	vals := path.Values()
	if vals[0].AsString() != "a" || vals[1].AsString() != "b" {
		t.Errorf("Uri-Path = %q, %q; want \"a\", \"b\"", vals[0].AsString(), vals[1].AsString())
	}
}

func TestRoundTripGeneral(t *testing.T) {
	msg := NewMessage()
	msg.Type = Confirmable
	msg.Code = POST
	msg.MessageID = 0xBEEF
	msg.SetTokenValue(0x0102030405)
	msg.Options().Add(URIPath, "sensors")
	msg.Options().Add(URIPath, "temperature")
	msg.Options().Set(ContentFormat, uint16(TextPlain))
	msg.Payload = []byte("22.5")

	bin, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	decoded, err := ParseMessage(bin)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	if decoded.Type != msg.Type || decoded.Code != msg.Code || decoded.MessageID != msg.MessageID {
		t.Fatalf("header mismatch: %+v", decoded)
	}
	if decoded.TokenValue() != msg.TokenValue() {
		t.Errorf("token = %x, want %x", decoded.Token, msg.Token)
	}
	if decoded.PathString() != "sensors/temperature" {
		t.Errorf("path = %q", decoded.PathString())
	}
	if !bytes.Equal(decoded.Payload, msg.Payload) {
		t.Errorf("payload = %q, want %q", decoded.Payload, msg.Payload)
	}
}

func TestTokenMinimality(t *testing.T) {
	msg := NewMessage()
	msg.Code = GET
	msg.SetTokenValue(0)
	if len(msg.Token) != 0 {
		t.Errorf("token for value 0 = %d bytes, want 0", len(msg.Token))
	}

	msg.SetTokenValue(255)
	if len(msg.Token) != 1 {
		t.Errorf("token for value 255 = %d bytes, want 1", len(msg.Token))
	}

	msg.SetTokenValue(256)
	if len(msg.Token) != 2 {
		t.Errorf("token for value 256 = %d bytes, want 2", len(msg.Token))
	}
}

func TestEncodeRejectsOversizeToken(t *testing.T) {
	msg := NewMessage()
	msg.Code = GET
	msg.Token = make([]byte, 9)

	if _, err := msg.MarshalBinary(); err != ErrInvalidTokenLen {
		t.Errorf("MarshalBinary with 9-byte token: err = %v, want %v", err, ErrInvalidTokenLen)
	}
}

func TestDecodeRejectsReservedNibble(t *testing.T) {
	// Header (no token), Code, MID, option byte with delta nibble 15.
	data := mustHex(t, "40010000F000")
	var msg Message
	if err := msg.UnmarshalBinary(data); err != ErrReservedNibble {
		t.Errorf("UnmarshalBinary: err = %v, want %v", err, ErrReservedNibble)
	}
}

func TestDecodeTreatsTrailingMarkerAsNoPayload(t *testing.T) {
	// Header (no token), Code, MID, then a bare 0xFF marker with nothing after.
	data := mustHex(t, "40010000FF")
	var msg Message
	if err := msg.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if len(msg.Payload) != 0 {
		t.Errorf("Payload = %q, want empty", msg.Payload)
	}
}

func TestDecodeShortPacket(t *testing.T) {
	var msg Message
	if err := msg.UnmarshalBinary([]byte{0x40, 0x01, 0x00}); err != ErrShortPacket {
		t.Errorf("err = %v, want %v", err, ErrShortPacket)
	}
}

func TestCacheEquivalent(t *testing.T) {
	a := NewMessage()
	a.Code = GET
	a.Options().Add(URIPath, "a")
	a.Options().Set(Size1, uint32(10))

	b := NewMessage()
	b.Code = GET
	b.Options().Add(URIPath, "a")
	b.Options().Set(Size1, uint32(99)) // Size1(60): (60&0x1E)=0x1C, no-cache-key: must be ignored

	if !a.CacheEquivalent(&b) {
		t.Errorf("expected cache-equivalent messages differing only on Size1")
	}

	c := NewMessage()
	c.Code = GET
	c.Options().Add(URIPath, "b")
	if a.CacheEquivalent(&c) {
		t.Errorf("expected non-equivalent messages with differing Uri-Path")
	}

	d := NewMessage()
	d.Code = GET
	d.Options().Add(URIPath, "a")
	d.Options().Set(MaxAge, uint32(10))

	e := NewMessage()
	e.Code = GET
	e.Options().Add(URIPath, "a")
	e.Options().Set(MaxAge, uint32(99)) // Max-Age(14) is cache-relevant: (14&0x1E)=14≠0x1C

	if d.CacheEquivalent(&e) {
		t.Errorf("expected non-equivalent messages differing on cache-relevant Max-Age")
	}
}
