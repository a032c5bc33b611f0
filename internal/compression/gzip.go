package compression

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Ext is appended to keys of compressed objects.
const Ext = ".gz"

// Gzip compresses src into dst and returns the number of uncompressed bytes read.
func Gzip(dst io.Writer, src io.Reader) (int64, error) {
	gz, err := gzip.NewWriterLevel(dst, gzip.BestCompression)
	if err != nil {
		return 0, fmt.Errorf("gzip writer: %w", err)
	}

	n, err := io.Copy(gz, src)
	if err != nil {
		_ = gz.Close()
		return n, fmt.Errorf("gzip copy: %w", err)
	}

	// flushes the footer
	if err := gz.Close(); err != nil {
		return n, fmt.Errorf("gzip close: %w", err)
	}
	return n, nil
}

func Gunzip(dst io.Writer, src io.Reader) (int64, error) {
	gr, err := gzip.NewReader(src)
	if err != nil {
		return 0, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()

	n, err := io.Copy(dst, gr)
	if err != nil {
		return n, fmt.Errorf("gunzip copy: %w", err)
	}
	return n, nil
}
