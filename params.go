package purpleair

import (
	"strconv"
	"strings"
	"time"
)

// Timestamp is a point in time destined for an epoch-seconds API parameter.
// The zero value means "not supplied" and is omitted from the request. A
// Timestamp is built from one of three source forms: an epoch-seconds
// integer, an absolute time, or an offset back from the moment the request
// is made.
type Timestamp struct {
	kind tsKind
	unix int64
	at   time.Time
	ago  time.Duration
}

type tsKind int

const (
	tsAbsent tsKind = iota
	tsUnix
	tsAt
	tsAgo
)

// TimestampUnix uses an epoch-seconds value directly.
func TimestampUnix(sec int64) Timestamp {
	return Timestamp{kind: tsUnix, unix: sec}
}

// TimestampAt converts an absolute time. The wall-clock reading of t is
// interpreted as UTC; any zone attached to t is ignored, matching the API's
// expectation of zone-naive UTC timestamps.
func TimestampAt(t time.Time) Timestamp {
	return Timestamp{kind: tsAt, at: t}
}

// TimestampAgo subtracts d from the current UTC time. The subtraction is
// performed when the request is made, not when the Timestamp is constructed.
func TimestampAgo(d time.Duration) Timestamp {
	return Timestamp{kind: tsAgo, ago: d}
}

// resolve produces the epoch-seconds wire value against the supplied clock
// reading. ok is false when the Timestamp is absent.
func (t Timestamp) resolve(now time.Time) (sec int64, ok bool) {
	switch t.kind {
	case tsUnix:
		return t.unix, true
	case tsAt:
		at := t.at
		utc := time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), at.Nanosecond(), time.UTC)
		return utc.Unix(), true
	case tsAgo:
		return now.UTC().Add(-t.ago).Unix(), true
	default:
		return 0, false
	}
}

// Duration is a length of time destined for a whole-seconds API parameter.
// The zero value means "not supplied" and is omitted from the request.
type Duration struct {
	kind durKind
	secs int64
	d    time.Duration
}

type durKind int

const (
	durAbsent durKind = iota
	durSeconds
	durOf
)

// DurationSeconds uses a seconds value directly.
func DurationSeconds(sec int64) Duration {
	return Duration{kind: durSeconds, secs: sec}
}

// DurationOf converts a time.Duration, truncating to whole seconds.
func DurationOf(d time.Duration) Duration {
	return Duration{kind: durOf, d: d}
}

func (d Duration) resolve() (sec int64, ok bool) {
	switch d.kind {
	case durSeconds:
		return d.secs, true
	case durOf:
		return int64(d.d / time.Second), true
	default:
		return 0, false
	}
}

// FieldSet names the sensor fields a call should return. The zero value
// means "not supplied". A pre-joined string is passed through to the API
// verbatim; a list is comma-joined in the order given. No deduplication,
// sorting or validation is applied: the API is the authority on field names.
type FieldSet struct {
	present bool
	joined  string
}

// Fields builds a FieldSet from individual field names, preserving order.
func Fields(names ...string) FieldSet {
	return FieldSet{present: true, joined: strings.Join(names, ",")}
}

// FieldsString uses an already comma-delimited field list as-is.
func FieldsString(s string) FieldSet {
	return FieldSet{present: true, joined: s}
}

func (f FieldSet) resolve() (joined string, ok bool) {
	return f.joined, f.present
}

// BoundingBox restricts a multi-sensor query to a geographic rectangle,
// defined by its northwest and southeast corners.
type BoundingBox struct {
	NWLng float64
	NWLat float64
	SELng float64
	SELat float64
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
