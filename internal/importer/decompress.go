package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// MaxDecompressedSize caps the size of a decompressed catalog.
const MaxDecompressedSize = 64 << 20

// ErrTooLarge is returned when a compressed catalog expands past the cap.
var ErrTooLarge = errors.New("decompressed catalog too large")

// Decompress returns data unchanged unless it starts with the gzip magic
// bytes, in which case it returns the decompressed payload.
func Decompress(data []byte) ([]byte, error) {
	return decompress(data, MaxDecompressedSize)
}

func decompress(data []byte, limit int64) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, fmt.Errorf("gzip decode: %w", err)
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return out, nil
}

// ReadCatalogFile reads a catalog file from disk, decompressing it if needed.
func ReadCatalogFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out, err := Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return out, nil
}
