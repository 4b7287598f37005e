// Package query parses and evaluates user-supplied boolean filter
// expressions over a closed whitelist of record attributes. The string is
// never handed to a general-purpose evaluator: it is parsed into a typed
// expression tree and interpreted directly against each record's field
// values.
package query

import (
	"fmt"
	"time"
)

// FieldType drives how a comparison is interpreted: numerically, as a plain
// string, or as a calendar date (string literals on date fields are parsed
// to time.Time before comparing, so dates never compare lexicographically).
type FieldType int

const (
	FieldNumber FieldType = iota
	FieldString
	FieldDate
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldDate:
		return "date"
	}
	return "number"
}

// Field is one whitelisted attribute.
type Field struct {
	Name string
	Type FieldType
}

// fields is the closed whitelist. Any identifier outside this table is a
// validation error, which is what neutralises injection attempts like
// __import__('os').
var fields = []Field{
	{"record_name", FieldString},
	{"type", FieldString},
	{"region", FieldString},
	{"district", FieldString},
	{"city", FieldString},
	{"suburb", FieldString},
	{"original_reference", FieldString},
	{"investigation_date", FieldDate},
	{"published_date", FieldDate},
	{"latitude", FieldNumber},
	{"longitude", FieldNumber},
	{"deepest_depth", FieldNumber},
	{"shallowest_depth", FieldNumber},
	{"measured_gwl", FieldNumber},
	{"model_gwl_westerhoff_2019", FieldNumber},
	{"model_vs30_foster_2019", FieldNumber},
	{"model_vs30_stddev_foster_2019", FieldNumber},
	{"spt_efficiency", FieldNumber},
	{"spt_borehole_diameter", FieldNumber},
	{"cpt_tip_net_area_ratio", FieldNumber},
	{"vs30", FieldNumber},
	{"vs30_stddev", FieldNumber},
	{"vs30_log_residual", FieldNumber},
	{"gwl_residual", FieldNumber},
}

// Fields returns the whitelist in declaration order, for display to users.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

func lookupField(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Value is a typed field value. ok=false from Source.Field means the record
// has no value for the attribute, in which case every comparison on it is
// false.
type Value struct {
	Type FieldType
	Num  float64
	Str  string
	Date time.Time
}

// Source supplies typed field values for one record.
type Source interface {
	Field(name string) (Value, bool)
}

// ValidationError describes why a query string was rejected. It is returned
// as data to the caller, never thrown past the API boundary.
type ValidationError struct {
	Msg string
	Pos int // byte offset into the query string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query at position %d: %s", e.Pos, e.Msg)
}

// Validate parses the string and reports the error, if any. It is
// side-effect-free and idempotent, suitable for as-you-type feedback.
func Validate(s string) *ValidationError {
	_, err := Parse(s)
	return err
}
