package coapmsg

import "fmt"

// Option value format (RFC7252 section 3.2)
// Defines the option format inside the packet
type ValueFormat uint8

const (
	ValueUnknown ValueFormat = iota
	ValueEmpty               // A zero-length sequence of bytes.
	ValueOpaque              // An opaque sequence of bytes.
	// A non-negative integer that is represented in network byte
	// order using the number of bytes given by the Option Length
	// field.
	ValueUint
	// A Unicode string that is encoded using UTF-8 [RFC3629] in
	// Net-Unicode form [RFC5198].
	ValueString
)

func (f ValueFormat) PrettyPrint(val OptionValue) string {
	switch f {
	case ValueUnknown:
		return fmt.Sprintf("?%#v", val.AsBytes())
	case ValueEmpty:
		return "-Empty-"
	case ValueOpaque:
		return fmt.Sprintf("0x%X", val.AsBytes())
	case ValueUint:
		return fmt.Sprintf("%d", val.AsUInt64())
	case ValueString:
		return fmt.Sprintf("'%s'", val.AsString())
	}

	return fmt.Sprintf("%#v", val.AsBytes())
}

// OptionDef describes a registered option: the decoder checks value
// lengths against it, and Option.String and OptionId.Repeatable read it.
type OptionDef struct {
	Number       OptionId
	MinLength    int
	MaxLength    int
	DefaultValue []byte // Or interface{} or OptionValue?
	Repeatable   bool
	Format       ValueFormat
}

// Information about options used for handling the values. Repeatable
// mirrors the R column of RFC 7252 section 5.10's option table: If-Match,
// ETag, Location-Path, Uri-Path, Uri-Query and Location-Query may appear
// more than once; everything else is single-valued.
var optionDefs = map[OptionId]OptionDef{
	IfMatch:     {Number: IfMatch, Format: ValueOpaque, MinLength: 0, MaxLength: 8, Repeatable: true},
	URIHost:     {Number: URIHost, Format: ValueString, MinLength: 1, MaxLength: 255},
	ETag:        {Number: ETag, Format: ValueOpaque, MinLength: 1, MaxLength: 8, Repeatable: true},
	IfNoneMatch: {Number: IfNoneMatch, Format: ValueEmpty, MinLength: 0, MaxLength: 0},
	// Observe a resource: Client sends 0 = register, 1 = deregister; Server echoes a sequence number.
	Observe:       {Number: Observe, Format: ValueUint, MinLength: 0, MaxLength: 3},
	URIPort:       {Number: URIPort, Format: ValueUint, MinLength: 0, MaxLength: 2},
	LocationPath:  {Number: LocationPath, Format: ValueString, MinLength: 0, MaxLength: 255, Repeatable: true},
	URIPath:       {Number: URIPath, Format: ValueString, MinLength: 0, MaxLength: 255, Repeatable: true},
	ContentFormat: {Number: ContentFormat, Format: ValueUint, MinLength: 0, MaxLength: 2},
	MaxAge:        {Number: MaxAge, Format: ValueUint, MinLength: 0, MaxLength: 4},
	URIQuery:      {Number: URIQuery, Format: ValueString, MinLength: 0, MaxLength: 255, Repeatable: true},
	Accept:        {Number: Accept, Format: ValueUint, MinLength: 0, MaxLength: 2},
	LocationQuery: {Number: LocationQuery, Format: ValueString, MinLength: 0, MaxLength: 255, Repeatable: true},
	ProxyURI:      {Number: ProxyURI, Format: ValueString, MinLength: 1, MaxLength: 1034},
	ProxyScheme:   {Number: ProxyScheme, Format: ValueString, MinLength: 1, MaxLength: 255},
	Size1:         {Number: Size1, Format: ValueUint, MinLength: 0, MaxLength: 4},
}

// DefaultMaxAge is used by Message.Fresh when no Max-Age option is present.
const DefaultMaxAge = 60
