package parquetfile

import (
	"github.com/apache/arrow-go/v18/parquet/metadata"

	"github.com/ajitpratap0/scrub/pkg/column"
	"github.com/ajitpratap0/scrub/pkg/errors"
)

// RowGroupSource is what BuildRowGroup reads from.
// *file.RowGroupReader satisfies it.
type RowGroupSource interface {
	column.Source
	MetaData() *metadata.RowGroupMetaData
}

// RowGroupWriter receives the columns of one row group in order.
// file.SerialRowGroupWriter satisfies it.
type RowGroupWriter interface {
	column.Sink
	Close() error
}

// RowGroup is one decoded row group: its columns in schema order
type RowGroup struct {
	Index   int
	NumRows int64
	Columns []*column.Column
}

// BuildRowGroup decodes every column of src. Each column's expected value
// count comes from its chunk metadata, so nulls and repeated entries are
// accounted for. The first failing column aborts the build.
func BuildRowGroup(index int, src RowGroupSource) (*RowGroup, error) {
	meta := src.MetaData()
	rg := &RowGroup{
		Index:   index,
		NumRows: meta.NumRows(),
		Columns: make([]*column.Column, 0, meta.NumColumns()),
	}

	for i := 0; i < meta.NumColumns(); i++ {
		cc, err := meta.ColumnChunk(i)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeDecodeFailed, "failed to read column chunk metadata").
				WithDetail("row_group", index).
				WithDetail("column", i)
		}

		col, err := column.Decode(i, cc.NumValues(), src)
		if err != nil {
			return nil, err
		}
		rg.Columns = append(rg.Columns, col)
	}

	return rg, nil
}

// Dirty reports whether any column has been modified
func (rg *RowGroup) Dirty() bool {
	for _, c := range rg.Columns {
		if c.Dirty() {
			return true
		}
	}
	return false
}

// Encode writes every column to w in order and closes it
func (rg *RowGroup) Encode(w RowGroupWriter) error {
	for _, c := range rg.Columns {
		if err := c.Encode(w); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeWriteFailed, "failed to close row group").
			WithDetail("row_group", rg.Index)
	}
	return nil
}
