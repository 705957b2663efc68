package generator

import (
	"errors"
	"fmt"
	"os"

	"csb/enginebench/control/constants"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// rows per parquet row group
const rowGroupSize = 128 * 1024

func codec(name string) (compress.Compression, error) {
	switch name {
	case "", constants.COMPRESSION_SNAPPY:
		return compress.Codecs.Snappy, nil
	case constants.COMPRESSION_ZSTD:
		return compress.Codecs.Zstd, nil
	case constants.COMPRESSION_NONE:
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unknown compression %q", name)
	}
}

// WritePart writes rec as a single parquet file. The file is written under a
// temporary name and renamed, so an interrupted run never leaves a partial part
// behind that would make the next run skip generation.
func WritePart(path string, rec arrow.Record, compression string) error {
	c, err := codec(compression)
	if err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(c),
		parquet.WithMaxRowGroupLength(rowGroupSize),
	)
	fw, err := pqarrow.NewFileWriter(rec.Schema(), f, props, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return err
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		f.Close()
		return err
	}
	if err := fw.Close(); err != nil {
		f.Close()
		return err
	}
	// the parquet writer may already have closed the sink
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return os.Rename(tmpPath, path)
}
