// Package codec opens log files, transparently compressing or decompressing
// them based on the file extension (.gz, .zst).
package codec

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the on-disk encoding of a file.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

// Detect picks the compression from the path extension.
func Detect(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	default:
		return None
	}
}

// ReadFile reads the whole file at path, decompressing when needed.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch Detect(path) {
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case Zstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	default:
		return io.ReadAll(f)
	}
}

// WriteFile creates or truncates path and writes data in one call,
// compressing when the extension asks for it.
func WriteFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	var w io.WriteCloser
	switch Detect(path) {
	case Gzip:
		w = gzip.NewWriter(f)
	case Zstd:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return err
		}
		w = enc
	}

	if w == nil {
		if _, err := f.Write(data); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
