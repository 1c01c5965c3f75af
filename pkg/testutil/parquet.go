package testutil

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/require"
)

// FixtureOptions controls how fixture files are laid out on disk
type FixtureOptions struct {
	// RowGroupSize is the maximum number of rows per row group. Zero writes a
	// single row group.
	RowGroupSize int64
	Compression  compress.Compression
	Metadata     map[string]string
}

// WriteRecord writes rec to path as a Parquet file. Timestamps are stored as
// INT96 so fixtures cover all seven supported physical types.
func WriteRecord(t *testing.T, path string, rec arrow.Record, opts FixtureOptions) {
	t.Helper()

	chunk := opts.RowGroupSize
	if chunk <= 0 {
		chunk = rec.NumRows()
		if chunk == 0 {
			chunk = 1
		}
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression),
		parquet.WithDictionaryDefault(false),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithDeprecatedInt96Timestamps(true),
	)

	schema := rec.Schema()
	if len(opts.Metadata) > 0 {
		keys := make([]string, 0, len(opts.Metadata))
		values := make([]string, 0, len(opts.Metadata))
		for k, v := range opts.Metadata {
			keys = append(keys, k)
			values = append(values, v)
		}
		md := arrow.NewMetadata(keys, values)
		schema = arrow.NewSchema(schema.Fields(), &md)
	}

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, chunk, props, arrowProps))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// ReadTable loads the Parquet file at path through the Arrow reader. The
// table is released when the test finishes.
func ReadTable(t *testing.T, path string) arrow.Table {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	tbl, err := pqarrow.ReadTable(context.Background(), f,
		parquet.NewReaderProperties(memory.DefaultAllocator),
		pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

// StringValues returns the values of the named string column of the file at
// path, with nil for nulls.
func StringValues(t *testing.T, path, column string) []*string {
	t.Helper()

	tbl := ReadTable(t, path)
	idx := tbl.Schema().FieldIndices(column)
	require.Len(t, idx, 1, "column %q", column)

	var out []*string
	for _, chunk := range tbl.Column(idx[0]).Data().Chunks() {
		arr, ok := chunk.(*array.String)
		require.True(t, ok, "column %q is %s", column, chunk.DataType())
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				out = append(out, nil)
				continue
			}
			v := arr.Value(i)
			out = append(out, &v)
		}
	}
	return out
}

// Str returns a pointer to s
func Str(s string) *string { return &s }

// StringRecord builds a record with a single nullable string column. A nil
// entry becomes a null.
func StringRecord(column string, values []*string) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: column, Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	sb := b.Field(0).(*array.StringBuilder)
	for _, v := range values {
		if v == nil {
			sb.AppendNull()
			continue
		}
		sb.Append(*v)
	}
	return b.NewRecord()
}

// PeopleRecord builds a small contacts table: an INT64 id, a required name,
// a nullable email and a nullable INT32 age.
func PeopleRecord(names []string, emails []*string) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "email", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "age", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for i, name := range names {
		b.Field(0).(*array.Int64Builder).Append(int64(i + 1))
		b.Field(1).(*array.StringBuilder).Append(name)
		if i < len(emails) && emails[i] != nil {
			b.Field(2).(*array.StringBuilder).Append(*emails[i])
		} else {
			b.Field(2).(*array.StringBuilder).AppendNull()
		}
		if i%3 == 2 {
			b.Field(3).(*array.Int32Builder).AppendNull()
		} else {
			b.Field(3).(*array.Int32Builder).Append(int32(20 + i))
		}
	}
	return b.NewRecord()
}

// AllTypesRecord builds a four row record with one nullable column per
// supported physical type. Row 2 is null in every column.
func AllTypesRecord() arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "i32", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "i64", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_ns, Nullable: true},
		{Name: "str", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "f32", Type: arrow.PrimitiveTypes.Float32, Nullable: true},
		{Name: "f64", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "flag", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	}, nil)

	valid := []bool{true, true, false, true}

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	b.Field(0).(*array.Int32Builder).AppendValues([]int32{1, -2, 0, 4}, valid)
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{10, 20, 0, 1 << 40}, valid)
	b.Field(2).(*array.TimestampBuilder).AppendValues([]arrow.Timestamp{1_600_000_000_000_000_000, 1_700_000_000_000_000_000, 0, 86_400_000_000_000}, valid)
	b.Field(3).(*array.StringBuilder).AppendValues([]string{"alice@corp.com", "bob", "", "ünïcode alice@corp.com"}, valid)
	b.Field(4).(*array.Float32Builder).AppendValues([]float32{1.5, -0.25, 0, 3.75}, valid)
	b.Field(5).(*array.Float64Builder).AppendValues([]float64{2.5, 1e100, 0, -7}, valid)
	b.Field(6).(*array.BooleanBuilder).AppendValues([]bool{true, false, false, true}, valid)

	return b.NewRecord()
}

// ListRecord builds a record with one nullable list<string> column, which
// carries repetition levels. A nil row becomes a null list.
func ListRecord(column string, rows [][]string) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: column, Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	lb := b.Field(0).(*array.ListBuilder)
	vb := lb.ValueBuilder().(*array.StringBuilder)
	for _, row := range rows {
		if row == nil {
			lb.AppendNull()
			continue
		}
		lb.Append(true)
		for _, v := range row {
			vb.Append(v)
		}
	}
	return b.NewRecord()
}

// FixedSizeRecord builds a record with a string column followed by a
// FIXED_LEN_BYTE_ARRAY column, which has no decode path.
func FixedSizeRecord() arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "email", Type: arrow.BinaryTypes.String},
		{Name: "digest", Type: &arrow.FixedSizeBinaryType{ByteWidth: 4}},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	b.Field(0).(*array.StringBuilder).AppendValues([]string{"alice@corp.com", "carol@corp.com"}, nil)
	fb := b.Field(1).(*array.FixedSizeBinaryBuilder)
	fb.Append([]byte{1, 2, 3, 4})
	fb.Append([]byte{5, 6, 7, 8})

	return b.NewRecord()
}
