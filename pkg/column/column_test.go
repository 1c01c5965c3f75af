package column

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/scrub/pkg/errors"
	"github.com/ajitpratap0/scrub/pkg/testutil"
)

func openFixture(t *testing.T, name string, write func(path string)) *file.Reader {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	write(path)

	rdr, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { rdr.Close() })
	return rdr
}

func decodeAll(t *testing.T, rdr *file.Reader, rg int) []*Column {
	t.Helper()
	rgr := rdr.RowGroup(rg)
	meta := rgr.MetaData()

	cols := make([]*Column, meta.NumColumns())
	for i := range cols {
		cc, err := meta.ColumnChunk(i)
		require.NoError(t, err)
		cols[i], err = Decode(i, cc.NumValues(), rgr)
		require.NoError(t, err)
	}
	return cols
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		physical parquet.Type
		want     Kind
		ok       bool
	}{
		{parquet.Types.Int32, KindInt32, true},
		{parquet.Types.Int64, KindInt64, true},
		{parquet.Types.Int96, KindInt96, true},
		{parquet.Types.ByteArray, KindByteArray, true},
		{parquet.Types.Float, KindFloat32, true},
		{parquet.Types.Double, KindFloat64, true},
		{parquet.Types.Boolean, KindBoolean, true},
		{parquet.Types.FixedLenByteArray, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.physical.String(), func(t *testing.T) {
			got, ok := KindOf(tt.physical)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "byte_array", KindByteArray.String())
	assert.Equal(t, "boolean", KindBoolean.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestDecode_AllTypes(t *testing.T) {
	rdr := openFixture(t, "all.parquet", func(path string) {
		testutil.WriteRecord(t, path, testutil.AllTypesRecord(), testutil.FixtureOptions{})
	})
	cols := decodeAll(t, rdr, 0)
	require.Len(t, cols, 7)

	wantKinds := []Kind{KindInt32, KindInt64, KindInt96, KindByteArray, KindFloat32, KindFloat64, KindBoolean}
	for i, c := range cols {
		assert.Equal(t, wantKinds[i], c.Kind(), "column %s", c.Path())
		assert.Equal(t, 4, c.Len())
		assert.Equal(t, 4, c.ValueLen())
		assert.Len(t, c.RepLevels(), 4)
		assert.Equal(t, 3, c.Present())
		assert.Equal(t, []int16{1, 1, 0, 1}, c.DefLevels())
		assert.False(t, c.Dirty())
	}

	assert.Equal(t, []int32{1, -2, 4}, cols[0].Int32s()[:3])
	assert.Equal(t, []int64{10, 20, 1 << 40}, cols[1].Int64s()[:3])
	assert.Equal(t, []float32{1.5, -0.25, 3.75}, cols[4].Float32s()[:3])
	assert.Equal(t, []float64{2.5, 1e100, -7}, cols[5].Float64s()[:3])
	assert.Equal(t, []bool{true, false, true}, cols[6].Bools()[:3])

	strs := cols[3].ByteArrays()[:3]
	assert.Equal(t, "alice@corp.com", string(strs[0]))
	assert.Equal(t, "bob", string(strs[1]))
	assert.Equal(t, "ünïcode alice@corp.com", string(strs[2]))
	assert.Equal(t, "str", cols[3].Path())
}

func TestDecode_RepeatedColumn(t *testing.T) {
	rdr := openFixture(t, "list.parquet", func(path string) {
		testutil.WriteRecord(t, path, testutil.ListRecord("tags", [][]string{
			{"a", "b"},
			nil,
			{},
			{"c"},
		}), testutil.FixtureOptions{})
	})
	cols := decodeAll(t, rdr, 0)
	require.Len(t, cols, 1)

	c := cols[0]
	assert.Equal(t, KindByteArray, c.Kind())
	// a, b, null list, empty list, c
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, 3, c.Present())
	assert.Equal(t, []int16{0, 1, 0, 0, 0}, c.RepLevels())
	assert.Equal(t, c.Len(), len(c.DefLevels()))
}

func TestDecode_UnsupportedType(t *testing.T) {
	rdr := openFixture(t, "flba.parquet", func(path string) {
		testutil.WriteRecord(t, path, testutil.FixedSizeRecord(), testutil.FixtureOptions{})
	})
	rgr := rdr.RowGroup(0)

	_, err := Decode(0, 2, rgr)
	require.NoError(t, err)

	_, err = Decode(1, 2, rgr)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedType))
	assert.Contains(t, err.Error(), "digest")
}

func TestDecode_CountMismatch(t *testing.T) {
	rdr := openFixture(t, "people.parquet", func(path string) {
		testutil.WriteRecord(t, path, testutil.PeopleRecord(
			[]string{"alice", "bob", "carol"}, nil), testutil.FixtureOptions{})
	})

	t.Run("fewer than expected", func(t *testing.T) {
		_, err := Decode(1, 5, rdr.RowGroup(0))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeDecodeFailed))
	})

	t.Run("more than expected", func(t *testing.T) {
		_, err := Decode(1, 2, rdr.RowGroup(0))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeDecodeFailed))
	})

	t.Run("negative", func(t *testing.T) {
		_, err := Decode(1, -1, rdr.RowGroup(0))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeDecodeFailed))
	})

	t.Run("out of range index", func(t *testing.T) {
		_, err := Decode(9, 3, rdr.RowGroup(0))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeDecodeFailed))
	})
}

func TestEncode_RoundTrip(t *testing.T) {
	fixtures := map[string]func(path string){
		"all types": func(path string) {
			testutil.WriteRecord(t, path, testutil.AllTypesRecord(), testutil.FixtureOptions{})
		},
		"repeated": func(path string) {
			testutil.WriteRecord(t, path, testutil.ListRecord("tags", [][]string{
				{"x@corp.com", "y"}, nil, {}, {"z"},
			}), testutil.FixtureOptions{})
		},
	}

	for name, write := range fixtures {
		t.Run(name, func(t *testing.T) {
			src := openFixture(t, "src.parquet", write)
			cols := decodeAll(t, src, 0)

			var buf bytes.Buffer
			root := src.MetaData().Schema.Root()
			w := file.NewParquetWriter(&buf, root)
			rgw := w.AppendRowGroup()
			for _, c := range cols {
				require.NoError(t, c.Encode(rgw))
			}
			require.NoError(t, rgw.Close())
			require.NoError(t, w.Close())

			out := filepath.Join(t.TempDir(), "out.parquet")
			require.NoError(t, os.WriteFile(out, buf.Bytes(), 0o644))

			dst, err := file.OpenParquetFile(out, false)
			require.NoError(t, err)
			defer dst.Close()

			again := decodeAll(t, dst, 0)
			require.Len(t, again, len(cols))
			for i := range cols {
				assert.Equal(t, cols[i].Kind(), again[i].Kind())
				assert.Equal(t, cols[i].DefLevels(), again[i].DefLevels())
				assert.Equal(t, cols[i].RepLevels(), again[i].RepLevels())
				assert.Equal(t, cols[i].Present(), again[i].Present())
			}
			for i, c := range cols {
				if c.Kind() == KindByteArray {
					assert.Equal(t, c.ByteArrays()[:c.Present()], again[i].ByteArrays()[:again[i].Present()])
				}
			}
		})
	}
}

type failingSink struct{ err error }

func (s failingSink) NextColumn() (file.ColumnChunkWriter, error) { return nil, s.err }

func TestEncode_SinkFailure(t *testing.T) {
	c := NewInt32("n", []int32{1}, 1, []int16{0}, []int16{0})
	err := c.Encode(failingSink{err: os.ErrClosed})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeWriteFailed))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestEncode_KindMismatch(t *testing.T) {
	sc := schema.MustGroup(schema.NewGroupNode("schema", parquet.Repetitions.Required, schema.FieldList{
		schema.NewInt64Node("n", parquet.Repetitions.Required, -1),
	}, -1))

	var buf bytes.Buffer
	w := file.NewParquetWriter(&buf, sc)
	rgw := w.AppendRowGroup()

	c := NewInt32("n", []int32{1}, 1, []int16{0}, []int16{0})
	err := c.Encode(rgw)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeWriteFailed))
}
