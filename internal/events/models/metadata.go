// File: backend/services/audit-service/internal/events/models/metadata.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/timeutil"
)

// MetadataKind tags the scalar held by a MetadataValue.
type MetadataKind string

const (
	MetadataString    MetadataKind = "string"
	MetadataNumber    MetadataKind = "number"
	MetadataBool      MetadataKind = "bool"
	MetadataTimestamp MetadataKind = "timestamp"
)

// MetadataValue is a tagged union of the scalar kinds allowed in activity
// metadata. The zero value is the empty string.
type MetadataValue struct {
	kind MetadataKind
	str  string
	num  float64
	b    bool
	ts   time.Time
}

func StringValue(s string) MetadataValue { return MetadataValue{kind: MetadataString, str: s} }
func NumberValue(n float64) MetadataValue { return MetadataValue{kind: MetadataNumber, num: n} }
func BoolValue(b bool) MetadataValue { return MetadataValue{kind: MetadataBool, b: b} }
func TimestampValue(t time.Time) MetadataValue {
	return MetadataValue{kind: MetadataTimestamp, ts: timeutil.NormalizeUTC(t)}
}

// Kind returns the tag; the zero value reports MetadataString.
func (v MetadataValue) Kind() MetadataKind {
	if v.kind == "" {
		return MetadataString
	}
	return v.kind
}

func (v MetadataValue) AsString() (string, bool) { return v.str, v.Kind() == MetadataString }
func (v MetadataValue) AsNumber() (float64, bool) { return v.num, v.kind == MetadataNumber }
func (v MetadataValue) AsBool() (bool, bool) { return v.b, v.kind == MetadataBool }
func (v MetadataValue) AsTimestamp() (time.Time, bool) {
	return v.ts, v.kind == MetadataTimestamp
}

// Interface returns the held scalar as a plain Go value.
func (v MetadataValue) Interface() interface{} {
	switch v.Kind() {
	case MetadataNumber:
		return v.num
	case MetadataBool:
		return v.b
	case MetadataTimestamp:
		return v.ts
	default:
		return v.str
	}
}

// String renders the value for humans.
func (v MetadataValue) String() string {
	switch v.Kind() {
	case MetadataNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case MetadataBool:
		return strconv.FormatBool(v.b)
	case MetadataTimestamp:
		return timeutil.FormatTimestamp(v.ts)
	default:
		return v.str
	}
}

type taggedMetadataValue struct {
	Kind  MetadataKind    `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON always emits the tagged form {"kind": ..., "value": ...}.
func (v MetadataValue) MarshalJSON() ([]byte, error) {
	var raw interface{}
	switch v.Kind() {
	case MetadataNumber:
		raw = v.num
	case MetadataBool:
		raw = v.b
	case MetadataTimestamp:
		raw = timeutil.FormatTimestamp(v.ts)
	default:
		raw = v.str
	}
	value, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedMetadataValue{Kind: v.Kind(), Value: value})
}

// UnmarshalJSON accepts the tagged form or a bare JSON scalar. Bare strings
// holding an RFC3339 time become timestamps. null, arrays and other objects
// are rejected.
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty metadata value")
	}
	switch data[0] {
	case '{':
		return v.unmarshalTagged(data)
	case '[':
		return fmt.Errorf("metadata values must be scalars, got an array")
	case 'n':
		return fmt.Errorf("metadata values must not be null")
	}
	return v.unmarshalBare(data)
}

func (v *MetadataValue) unmarshalTagged(data []byte) error {
	var tagged taggedMetadataValue
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tagged); err != nil {
		return fmt.Errorf("metadata values must be scalars or tagged values: %w", err)
	}
	if len(tagged.Value) == 0 {
		return fmt.Errorf("tagged metadata value without value")
	}
	switch tagged.Kind {
	case MetadataString:
		var s string
		if err := json.Unmarshal(tagged.Value, &s); err != nil {
			return fmt.Errorf("metadata string: %w", err)
		}
		*v = StringValue(s)
	case MetadataNumber:
		var n float64
		if err := json.Unmarshal(tagged.Value, &n); err != nil {
			return fmt.Errorf("metadata number: %w", err)
		}
		*v = NumberValue(n)
	case MetadataBool:
		var b bool
		if err := json.Unmarshal(tagged.Value, &b); err != nil {
			return fmt.Errorf("metadata bool: %w", err)
		}
		*v = BoolValue(b)
	case MetadataTimestamp:
		var s string
		if err := json.Unmarshal(tagged.Value, &s); err != nil {
			return fmt.Errorf("metadata timestamp: %w", err)
		}
		t, err := timeutil.ParseTimestamp(s)
		if err != nil {
			return fmt.Errorf("metadata timestamp: %w", err)
		}
		*v = TimestampValue(t)
	default:
		return fmt.Errorf("unknown metadata kind %q", tagged.Kind)
	}
	return nil
}

func (v *MetadataValue) unmarshalBare(data []byte) error {
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			*v = TimestampValue(t)
			return nil
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("metadata value %s is not a scalar", string(data))
		}
		*v = NumberValue(n)
	}
	return nil
}

// Metadata is the bounded key/value bag attached to activity events.
type Metadata map[string]MetadataValue

// Plain converts the bag into plain Go values, e.g. for search documents.
func (m Metadata) Plain() map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}
