package column

import (
	"fmt"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"

	"github.com/ajitpratap0/scrub/pkg/errors"
)

// Source hands out column chunk readers for one row group.
// *file.RowGroupReader satisfies it.
type Source interface {
	Column(i int) (file.ColumnChunkReader, error)
}

type batchReader[T any] interface {
	ReadBatch(batchSize int64, values []T, defLvls, repLvls []int16) (total int64, valuesRead int, err error)
}

// Decode reads exactly expected level entries for column index from src,
// dispatching on the physical type of the chunk reader.
func Decode(index int, expected int64, src Source) (*Column, error) {
	if expected < 0 {
		return nil, errors.Newf(errors.ErrorTypeDecodeFailed, "negative value count %d", expected).
			WithDetail("column", index)
	}

	cr, err := src.Column(index)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecodeFailed, "failed to open column reader").
			WithDetail("column", index)
	}

	path := cr.Descriptor().Path()
	kind, ok := KindOf(cr.Type())
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "column %q has unsupported physical type %s", path, cr.Type()).
			WithDetail("column", index).
			WithDetail("physical_type", cr.Type().String())
	}

	defLevels := make([]int16, expected)
	repLevels := make([]int16, expected)
	var (
		c       *Column
		present int
	)

	switch kind {
	case KindInt32:
		values := make([]int32, expected)
		present, err = readAll[int32](cr.(*file.Int32ColumnChunkReader), values, defLevels, repLevels)
		c = NewInt32(path, values, present, defLevels, repLevels)
	case KindInt64:
		values := make([]int64, expected)
		present, err = readAll[int64](cr.(*file.Int64ColumnChunkReader), values, defLevels, repLevels)
		c = NewInt64(path, values, present, defLevels, repLevels)
	case KindInt96:
		values := make([]parquet.Int96, expected)
		present, err = readAll[parquet.Int96](cr.(*file.Int96ColumnChunkReader), values, defLevels, repLevels)
		c = NewInt96(path, values, present, defLevels, repLevels)
	case KindByteArray:
		values := make([]parquet.ByteArray, expected)
		present, err = readAll[parquet.ByteArray](cr.(*file.ByteArrayColumnChunkReader), values, defLevels, repLevels)
		if err == nil {
			detach(values[:present])
		}
		c = NewByteArray(path, values, present, defLevels, repLevels)
	case KindFloat32:
		values := make([]float32, expected)
		present, err = readAll[float32](cr.(*file.Float32ColumnChunkReader), values, defLevels, repLevels)
		c = NewFloat32(path, values, present, defLevels, repLevels)
	case KindFloat64:
		values := make([]float64, expected)
		present, err = readAll[float64](cr.(*file.Float64ColumnChunkReader), values, defLevels, repLevels)
		c = NewFloat64(path, values, present, defLevels, repLevels)
	case KindBoolean:
		values := make([]bool, expected)
		present, err = readAll[bool](cr.(*file.BooleanColumnChunkReader), values, defLevels, repLevels)
		c = NewBoolean(path, values, present, defLevels, repLevels)
	}

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecodeFailed, "failed to decode column").
			WithDetail("column", index).
			WithDetail("path", path)
	}

	if cr.HasNext() {
		return nil, errors.Newf(errors.ErrorTypeDecodeFailed, "column %q holds more than the %d values recorded in metadata", path, expected).
			WithDetail("column", index)
	}
	if err := cr.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecodeFailed, "column reader failed").
			WithDetail("column", index).
			WithDetail("path", path)
	}

	return c, nil
}

// readAll drives r until it reports fewer levels than requested, filling
// the level slices completely and packing non-null values at the front of
// values. It returns the number of packed values.
func readAll[T any](r batchReader[T], values []T, defLevels, repLevels []int16) (int, error) {
	expected := int64(len(defLevels))
	var (
		total   int64
		present int
	)

	for total < expected {
		want := expected - total
		levels, read, err := r.ReadBatch(want, values[present:], defLevels[total:], repLevels[total:])
		if err != nil {
			return present, err
		}
		total += levels
		present += read
		if levels < want {
			break
		}
	}

	if total != expected {
		return present, fmt.Errorf("column ended after %d of %d values", total, expected)
	}
	return present, nil
}

// detach copies byte array values into one buffer owned by the column so
// they stay valid after the reader and its page buffers are released.
func detach(values []parquet.ByteArray) {
	size := 0
	for _, v := range values {
		size += len(v)
	}

	arena := make([]byte, 0, size)
	for i, v := range values {
		start := len(arena)
		arena = append(arena, v...)
		values[i] = arena[start:len(arena):len(arena)]
	}
}
