// pkg/record/struct.go
package record

// FieldType enumerates the declared types a schema-described field can carry.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeBool      FieldType = "bool"
	TypeInt8      FieldType = "int8"
	TypeInt16     FieldType = "int16"
	TypeInt32     FieldType = "int32"
	TypeInt64     FieldType = "int64"
	TypeFloat32   FieldType = "float32"
	TypeFloat64   FieldType = "float64"
	TypeBytes     FieldType = "bytes"
	TypeTimestamp FieldType = "timestamp" // rendered as epoch ms
	TypeStruct    FieldType = "struct"
	TypeArray     FieldType = "array"
	TypeMap       FieldType = "map"
)

// Field is one named slot of a Struct, with its declared type and value.
type Field struct {
	Name  string
	Type  FieldType
	Value any
}

// Struct is a schema-described record value: an ordered field list.
// Serialization preserves field order and declared widths.
type Struct struct {
	Fields []Field
}

// Get returns the value of the named field and whether it exists.
func (s *Struct) Get(name string) (any, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}
