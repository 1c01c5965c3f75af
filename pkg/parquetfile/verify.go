package parquetfile

import (
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/metadata"

	"github.com/ajitpratap0/scrub/pkg/errors"
)

// Verify reopens the file at path and checks that its schema and row group
// layout match want. Any difference is a write_failed error.
func Verify(path string, want *metadata.FileMetaData) error {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeWriteFailed, "rewritten file is unreadable").
			WithDetail("path", path)
	}
	defer rdr.Close()

	got := rdr.MetaData()
	if !got.Schema.Equals(want.Schema) {
		return errors.New(errors.ErrorTypeWriteFailed, "rewritten file schema differs from source").
			WithDetail("path", path)
	}
	if got.NumRowGroups() != want.NumRowGroups() {
		return errors.Newf(errors.ErrorTypeWriteFailed, "rewritten file has %d row groups, source has %d",
			got.NumRowGroups(), want.NumRowGroups()).
			WithDetail("path", path)
	}

	for i := 0; i < want.NumRowGroups(); i++ {
		g, w := got.RowGroup(i), want.RowGroup(i)
		if g.NumRows() != w.NumRows() {
			return errors.Newf(errors.ErrorTypeWriteFailed, "row group %d has %d rows, source has %d",
				i, g.NumRows(), w.NumRows()).
				WithDetail("path", path)
		}
		if g.NumColumns() != w.NumColumns() {
			return errors.Newf(errors.ErrorTypeWriteFailed, "row group %d has %d columns, source has %d",
				i, g.NumColumns(), w.NumColumns()).
				WithDetail("path", path)
		}
	}

	return nil
}
