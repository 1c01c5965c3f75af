// Package parquetfile reads a whole Parquet file into typed columns and
// writes it back with the same schema and row group layout.
package parquetfile

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/metadata"

	"github.com/ajitpratap0/scrub/pkg/errors"
)

// ReadOptions configures how a file is opened
type ReadOptions struct {
	// MemoryMap maps the file instead of reading it through the OS cache.
	MemoryMap bool
	Allocator memory.Allocator
}

// File is a fully decoded Parquet file
type File struct {
	Path      string
	Meta      *metadata.FileMetaData
	RowGroups []*RowGroup
}

// Read decodes every row group of the file at path. The underlying reader
// is closed before Read returns, so the path may be rewritten afterwards.
func Read(ctx context.Context, path string, opts ReadOptions) (f *File, err error) {
	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	rdr, err := file.OpenParquetFile(path, opts.MemoryMap,
		file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecodeFailed, "failed to open parquet file").
			WithDetail("path", path)
	}
	defer func() {
		if cerr := rdr.Close(); cerr != nil && err == nil {
			f = nil
			err = errors.Wrap(cerr, errors.ErrorTypeDecodeFailed, "failed to close parquet file").
				WithDetail("path", path)
		}
	}()

	f = &File{
		Path:      path,
		Meta:      rdr.MetaData(),
		RowGroups: make([]*RowGroup, 0, rdr.NumRowGroups()),
	}

	for i := 0; i < rdr.NumRowGroups(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCanceled, "read interrupted").
				WithDetail("path", path)
		}

		rg, err := BuildRowGroup(i, rdr.RowGroup(i))
		if err != nil {
			return nil, err
		}
		f.RowGroups = append(f.RowGroups, rg)
	}

	return f, nil
}

// Dirty reports whether any row group has been modified
func (f *File) Dirty() bool {
	for _, rg := range f.RowGroups {
		if rg.Dirty() {
			return true
		}
	}
	return false
}

// NumRows returns the total row count across row groups
func (f *File) NumRows() int64 {
	var n int64
	for _, rg := range f.RowGroups {
		n += rg.NumRows
	}
	return n
}

// Encode writes the file to w using the source schema and key/value
// metadata. w is never closed; the caller owns flushing and syncing it.
func (f *File) Encode(w io.Writer, props *parquet.WriterProperties) error {
	pw := file.NewParquetWriter(w, f.Meta.Schema.Root(),
		file.WithWriterProps(props),
		file.WithWriteMetadata(f.Meta.KeyValueMetadata()))

	for _, rg := range f.RowGroups {
		if err := rg.Encode(pw.AppendRowGroup()); err != nil {
			return err
		}
	}

	// Close drops footer errors, so flush explicitly first.
	if err := pw.FlushWithFooter(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeWriteFailed, "failed to write footer").
			WithDetail("path", f.Path)
	}
	if err := pw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeWriteFailed, "failed to close parquet writer").
			WithDetail("path", f.Path)
	}
	return nil
}
