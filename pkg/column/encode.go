package column

import (
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"

	"github.com/ajitpratap0/scrub/pkg/errors"
)

// Sink hands out column chunk writers in schema order.
// file.SerialRowGroupWriter satisfies it.
type Sink interface {
	NextColumn() (file.ColumnChunkWriter, error)
}

type batchWriter[T any] interface {
	WriteBatch(values []T, defLevels, repLevels []int16) (valueOffset int64, err error)
}

// Encode writes the whole column as one batch into the next writer slot of
// sink. The writer's physical type must match the column's Kind.
func (c *Column) Encode(sink Sink) error {
	cw, err := sink.NextColumn()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeWriteFailed, "failed to open column writer").
			WithDetail("path", c.path)
	}

	if kind, ok := KindOf(cw.Type()); ok && kind != c.kind {
		return errors.Newf(errors.ErrorTypeWriteFailed, "column %q holds %s values but writer expects %s", c.path, c.kind, cw.Type()).
			WithDetail("path", c.path)
	}

	var written int64
	switch cw.Type() {
	case parquet.Types.Int32:
		written, err = writeAll[int32](cw.(*file.Int32ColumnChunkWriter), c.int32s[:c.present], c.defLevels, c.repLevels)
	case parquet.Types.Int64:
		written, err = writeAll[int64](cw.(*file.Int64ColumnChunkWriter), c.int64s[:c.present], c.defLevels, c.repLevels)
	case parquet.Types.Int96:
		written, err = writeAll[parquet.Int96](cw.(*file.Int96ColumnChunkWriter), c.int96s[:c.present], c.defLevels, c.repLevels)
	case parquet.Types.ByteArray:
		written, err = writeAll[parquet.ByteArray](cw.(*file.ByteArrayColumnChunkWriter), c.byteArrays[:c.present], c.defLevels, c.repLevels)
	case parquet.Types.Float:
		written, err = writeAll[float32](cw.(*file.Float32ColumnChunkWriter), c.float32s[:c.present], c.defLevels, c.repLevels)
	case parquet.Types.Double:
		written, err = writeAll[float64](cw.(*file.Float64ColumnChunkWriter), c.float64s[:c.present], c.defLevels, c.repLevels)
	case parquet.Types.Boolean:
		written, err = writeAll[bool](cw.(*file.BooleanColumnChunkWriter), c.bools[:c.present], c.defLevels, c.repLevels)
	default:
		return errors.Newf(errors.ErrorTypeUnsupportedType, "column %q has unsupported physical type %s", c.path, cw.Type()).
			WithDetail("physical_type", cw.Type().String())
	}

	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeWriteFailed, "column writer rejected batch").
			WithDetail("path", c.path)
	}
	if written != int64(c.present) {
		return errors.Newf(errors.ErrorTypeWriteFailed, "column %q wrote %d of %d values", c.path, written, c.present)
	}
	return nil
}

func writeAll[T any](w batchWriter[T], values []T, defLevels, repLevels []int16) (int64, error) {
	return w.WriteBatch(values, defLevels, repLevels)
}
