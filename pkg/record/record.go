// pkg/record/record.go
package record

import "fmt"

// Record is one offset-addressed unit consumed from a source topic.
// The pipeline treats it as immutable; Value and header values are
// referenced, never mutated, until processing terminates.
type Record struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp int64 // epoch ms; 0 = absent
	Key       []byte
	Value     any
	Headers   []Header
}

// Header is a single record header. Value keeps the producer's type:
// string, []byte, integer widths, float, bool, or nil.
type Header struct {
	Key   string
	Value any
}

// KeyString returns the record key as a string, or "" when the key is nil.
func (r *Record) KeyString() string {
	if r.Key == nil {
		return ""
	}
	return string(r.Key)
}

// HasTimestamp reports whether the source record carried a timestamp.
func (r *Record) HasTimestamp() bool { return r.Timestamp > 0 }

// Coordinates renders the source position for logs and fault messages.
func (r *Record) Coordinates() string {
	return fmt.Sprintf("%s-%d@%d", r.Topic, r.Partition, r.Offset)
}
