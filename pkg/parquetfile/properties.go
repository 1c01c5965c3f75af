package parquetfile

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/metadata"
)

// CompressionSource keeps each column's codec as found in the source file
const CompressionSource = "source"

var codecs = map[string]compress.Compression{
	"uncompressed": compress.Codecs.Uncompressed,
	"none":         compress.Codecs.Uncompressed,
	"snappy":       compress.Codecs.Snappy,
	"gzip":         compress.Codecs.Gzip,
	"brotli":       compress.Codecs.Brotli,
	"zstd":         compress.Codecs.Zstd,
	"lz4_raw":      compress.Codecs.Lz4Raw,
}

// ParseCompression maps a codec name to its compression. "source" (or an
// empty name) returns nil, meaning per-column codecs are copied from the
// file being rewritten.
func ParseCompression(name string) (*compress.Compression, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == CompressionSource {
		return nil, nil
	}
	codec, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown compression %q", name)
	}
	return &codec, nil
}

// WriterProperties derives writer properties that reproduce meta's format
// version and sorting columns. When override is nil each column keeps the
// codec recorded in the first row group; otherwise override applies to all
// columns. Column statistics are recomputed by the writer from the
// unchanged values; page indexes and bloom filters are not written and
// created_by names this writer.
func WriterProperties(meta *metadata.FileMetaData, override *compress.Compression) *parquet.WriterProperties {
	opts := []parquet.WriterProperty{
		parquet.WithAllocator(memory.DefaultAllocator),
		parquet.WithVersion(meta.Version()),
	}

	if override != nil {
		opts = append(opts, parquet.WithCompression(*override))
	}

	if meta.NumRowGroups() > 0 {
		rg := meta.RowGroup(0)
		if override == nil {
			for i := 0; i < rg.NumColumns(); i++ {
				cc, err := rg.ColumnChunk(i)
				if err != nil {
					continue
				}
				opts = append(opts, parquet.WithCompressionFor(meta.Schema.Column(i).Path(), cc.Compression()))
			}
		}
		if sorting := rg.SortingColumns(); len(sorting) > 0 {
			opts = append(opts, parquet.WithSortingColumns(sorting))
		}
	}

	return parquet.NewWriterProperties(opts...)
}
