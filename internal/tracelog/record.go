package tracelog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Field is one named value attached to a trace record.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Record is a structured trace entry emitted by a pipeline stage.
// ID and Timestamp are stamped by the Emitter; stages only set Stage and Fields.
type Record struct {
	ID        string
	Stage     string
	Fields    []Field
	Timestamp time.Time
}

// Value returns the value of the first field named key.
func (r Record) Value(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// FieldMap flattens the fields into a map. Later duplicates lose to earlier ones.
func (r Record) FieldMap() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		if _, exists := out[f.Key]; exists {
			continue
		}
		out[f.Key] = f.Value
	}
	return out
}

// MarshalJSON encodes fields as an object in their original order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r.ID != "" {
		id, err := json.Marshal(r.ID)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"id":`)
		buf.Write(id)
		buf.WriteByte(',')
	}
	stage, err := json.Marshal(r.Stage)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"stage":`)
	buf.Write(stage)

	if !r.Timestamp.IsZero() {
		ts, err := json.Marshal(r.Timestamp)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"timestamp":`)
		buf.Write(ts)
	}

	fields, err := r.fieldsJSON()
	if err != nil {
		return nil, err
	}
	buf.WriteString(`,"fields":`)
	buf.Write(fields)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Record) fieldsJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	seen := make(map[string]struct{}, len(r.Fields))
	for _, f := range r.Fields {
		if _, dup := seen[f.Key]; dup {
			continue
		}
		seen[f.Key] = struct{}{}
		if len(seen) > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Logger receives trace records from pipeline stages.
// Implementations must be safe for concurrent use and must not block for long.
type Logger interface {
	Log(Record)
}

type nopLogger struct{}

func (nopLogger) Log(Record) {}

// Nop returns a Logger that discards every record.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns l, or Nop() when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

type multiLogger []Logger

func (m multiLogger) Log(rec Record) {
	for _, l := range m {
		l.Log(rec)
	}
}

// Multi fans a record out to every non-nil logger.
func Multi(loggers ...Logger) Logger {
	out := make(multiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l == nil {
			continue
		}
		out = append(out, l)
	}
	switch len(out) {
	case 0:
		return Nop()
	case 1:
		return out[0]
	}
	return out
}

// Recorder keeps records in memory.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Log(rec Record) {
	fields := make([]Field, len(rec.Fields))
	copy(fields, rec.Fields)
	rec.Fields = fields

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// Records returns a copy of everything logged so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Reset drops all stored records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
