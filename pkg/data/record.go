package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api/write"
)

// Field is one named value of a decoded record. Format is the display format
// used by String; an empty Format falls back to %v.
type Field struct {
	Key    string
	Label  string
	Format string
	Value  interface{}
}

// Record is the ordered set of fields a decoder outputs for one accepted frame.
type Record []Field

// Make builds a record from fields, keeping their order.
func Make(fields ...Field) Record {
	return Record(append([]Field(nil), fields...))
}

// Get returns the value stored under key.
func (r Record) Get(key string) (interface{}, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

func (f Field) formatted() string {
	if f.Format == "" {
		return fmt.Sprintf("%v", f.Value)
	}
	return fmt.Sprintf(f.Format, f.Value)
}

// String renders each field with its label (or key) and display format.
func (r Record) String() string {
	parts := make([]string, len(r))
	for i, f := range r {
		name := f.Label
		if name == "" {
			name = f.Key
		}
		parts[i] = name + ": " + f.formatted()
	}
	return strings.Join(parts, ", ")
}

// MarshalJSON encodes the record as a JSON object with keys in field order
// and raw (unformatted) values.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Point converts the record into an InfluxDB point. Fields named in tagKeys
// become tags; everything else is written as a field. The caller supplies the
// timestamp.
func (r Record) Point(measurement string, ts time.Time, tagKeys ...string) *write.Point {
	tags := make(map[string]string, len(tagKeys))
	fields := make(map[string]interface{}, len(r))
	for _, f := range r {
		if contains(tagKeys, f.Key) {
			tags[f.Key] = fmt.Sprintf("%v", f.Value)
			continue
		}
		fields[f.Key] = f.Value
	}
	return influxdb2.NewPoint(measurement, tags, fields, ts)
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
