// Package tagstore implements the per-read tag system described in
// spec.md §3/§4.3: an ordered label -> per-read-value store, with the
// producer/consumer metadata the config validator (package pipeconfig)
// checks before the pipeline runs.
package tagstore

// Kind enumerates the possible TagValue payload kinds.
type Kind int

const (
	KindMissing Kind = iota
	KindNumeric
	KindBool
	KindString
	KindLocation
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindLocation:
		return "location"
	default:
		return "missing"
	}
}

// Location is a (segment, start, len) region backing a Hit, pinned to a
// specific segment and updatable when that segment is edited.
type Location struct {
	SegmentIndex int
	Start        int
	Len          int
}

// Hit is one matched location (or bare sequence, if Loc is nil) within a
// Hits value.
type Hit struct {
	Sequence []byte
	Loc      *Location // nil if this hit carries no segment location
}

// Hits is one or more Hit values; it backs TagValue's Location case.
type Hits []Hit

// Value is the sum type for one read's tag value: Missing, Numeric, Bool,
// String, or Location (Hits).
type Value struct {
	kind     Kind
	numeric  float64
	boolean  bool
	str      []byte
	location Hits
}

// Missing returns the zero/absent tag value.
func Missing() Value { return Value{kind: KindMissing} }

// Numeric wraps a float64 tag value.
func Numeric(f float64) Value { return Value{kind: KindNumeric, numeric: f} }

// Bool wraps a bool tag value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// String wraps a byte-string tag value.
func String(b []byte) Value { return Value{kind: KindString, str: b} }

// LocationValue wraps a Hits tag value.
func LocationValue(h Hits) Value { return Value{kind: KindLocation, location: h} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// AsNumeric, AsBool, AsString, AsHits return the payload of the matching
// kind; on a value of any other kind they return that payload's zero value
// (0, false, nil) without panicking.
func (v Value) AsNumeric() float64 { return v.numeric }
func (v Value) AsBool() bool       { return v.boolean }
func (v Value) AsString() []byte  { return v.str }
func (v Value) AsHits() Hits      { return v.location }
