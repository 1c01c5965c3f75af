// Package column holds the decoded contents of a single Parquet column chunk.
//
// A Column is a tagged union over the seven physical types scrub can
// round-trip. Exactly one value slice is populated, selected by Kind, and it
// travels together with the definition and repetition levels that encode
// nullability and nesting. All three slices always have the same length, one
// slot per level entry. Non-null values are packed at the front of the value
// slice, matching the layout the Parquet codec reads and writes; Present
// reports how many slots are occupied.
//
// Values are only ever substituted in place, so the level structure of a
// column is preserved by construction.
package column

import (
	"fmt"

	"github.com/apache/arrow-go/v18/parquet"
)

// Kind identifies the physical type variant held by a Column
type Kind int

const (
	// KindInt32 is the INT32 physical type
	KindInt32 Kind = iota
	// KindInt64 is the INT64 physical type
	KindInt64
	// KindInt96 is the legacy INT96 timestamp type
	KindInt96
	// KindByteArray is the BYTE_ARRAY type, used for strings
	KindByteArray
	// KindFloat32 is the FLOAT physical type
	KindFloat32
	// KindFloat64 is the DOUBLE physical type
	KindFloat64
	// KindBoolean is the BOOLEAN physical type
	KindBoolean
)

var kindNames = [...]string{
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindInt96:     "int96",
	KindByteArray: "byte_array",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindBoolean:   "boolean",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// KindOf maps a Parquet physical type onto a Kind. The second result is
// false for types with no decode/encode path.
func KindOf(t parquet.Type) (Kind, bool) {
	switch t {
	case parquet.Types.Int32:
		return KindInt32, true
	case parquet.Types.Int64:
		return KindInt64, true
	case parquet.Types.Int96:
		return KindInt96, true
	case parquet.Types.ByteArray:
		return KindByteArray, true
	case parquet.Types.Float:
		return KindFloat32, true
	case parquet.Types.Double:
		return KindFloat64, true
	case parquet.Types.Boolean:
		return KindBoolean, true
	default:
		return 0, false
	}
}

// Column is one column chunk of one row group, fully decoded
type Column struct {
	kind Kind
	path string

	int32s     []int32
	int64s     []int64
	int96s     []parquet.Int96
	byteArrays []parquet.ByteArray
	float32s   []float32
	float64s   []float64
	bools      []bool

	defLevels []int16
	repLevels []int16
	present   int

	dirty bool
}

func newColumn(kind Kind, path string, defLevels, repLevels []int16, present int) *Column {
	return &Column{
		kind:      kind,
		path:      path,
		defLevels: defLevels,
		repLevels: repLevels,
		present:   present,
	}
}

// NewInt32 builds an INT32 column from packed values and levels
func NewInt32(path string, values []int32, present int, defLevels, repLevels []int16) *Column {
	c := newColumn(KindInt32, path, defLevels, repLevels, present)
	c.int32s = values
	return c
}

// NewInt64 builds an INT64 column from packed values and levels
func NewInt64(path string, values []int64, present int, defLevels, repLevels []int16) *Column {
	c := newColumn(KindInt64, path, defLevels, repLevels, present)
	c.int64s = values
	return c
}

// NewInt96 builds an INT96 column from packed values and levels
func NewInt96(path string, values []parquet.Int96, present int, defLevels, repLevels []int16) *Column {
	c := newColumn(KindInt96, path, defLevels, repLevels, present)
	c.int96s = values
	return c
}

// NewByteArray builds a BYTE_ARRAY column from packed values and levels
func NewByteArray(path string, values []parquet.ByteArray, present int, defLevels, repLevels []int16) *Column {
	c := newColumn(KindByteArray, path, defLevels, repLevels, present)
	c.byteArrays = values
	return c
}

// NewFloat32 builds a FLOAT column from packed values and levels
func NewFloat32(path string, values []float32, present int, defLevels, repLevels []int16) *Column {
	c := newColumn(KindFloat32, path, defLevels, repLevels, present)
	c.float32s = values
	return c
}

// NewFloat64 builds a DOUBLE column from packed values and levels
func NewFloat64(path string, values []float64, present int, defLevels, repLevels []int16) *Column {
	c := newColumn(KindFloat64, path, defLevels, repLevels, present)
	c.float64s = values
	return c
}

// NewBoolean builds a BOOLEAN column from packed values and levels
func NewBoolean(path string, values []bool, present int, defLevels, repLevels []int16) *Column {
	c := newColumn(KindBoolean, path, defLevels, repLevels, present)
	c.bools = values
	return c
}

// Kind returns the physical type variant
func (c *Column) Kind() Kind { return c.kind }

// Path returns the dotted schema path of the column
func (c *Column) Path() string { return c.path }

// Len returns the number of level entries, which is also the length of the
// value slice.
func (c *Column) Len() int { return len(c.defLevels) }

// Present returns the number of non-null values packed at the front of the
// value slice.
func (c *Column) Present() int { return c.present }

// Dirty reports whether any value has been rewritten since decode
func (c *Column) Dirty() bool { return c.dirty }

// DefLevels returns the definition levels
func (c *Column) DefLevels() []int16 { return c.defLevels }

// RepLevels returns the repetition levels
func (c *Column) RepLevels() []int16 { return c.repLevels }

// ValueLen returns the length of the populated value slice
func (c *Column) ValueLen() int {
	switch c.kind {
	case KindInt32:
		return len(c.int32s)
	case KindInt64:
		return len(c.int64s)
	case KindInt96:
		return len(c.int96s)
	case KindByteArray:
		return len(c.byteArrays)
	case KindFloat32:
		return len(c.float32s)
	case KindFloat64:
		return len(c.float64s)
	case KindBoolean:
		return len(c.bools)
	default:
		return 0
	}
}

// Int32s returns the INT32 values; nil for other kinds
func (c *Column) Int32s() []int32 { return c.int32s }

// Int64s returns the INT64 values; nil for other kinds
func (c *Column) Int64s() []int64 { return c.int64s }

// Int96s returns the INT96 values; nil for other kinds
func (c *Column) Int96s() []parquet.Int96 { return c.int96s }

// ByteArrays returns the BYTE_ARRAY values; nil for other kinds
func (c *Column) ByteArrays() []parquet.ByteArray { return c.byteArrays }

// Float32s returns the FLOAT values; nil for other kinds
func (c *Column) Float32s() []float32 { return c.float32s }

// Float64s returns the DOUBLE values; nil for other kinds
func (c *Column) Float64s() []float64 { return c.float64s }

// Bools returns the BOOLEAN values; nil for other kinds
func (c *Column) Bools() []bool { return c.bools }
