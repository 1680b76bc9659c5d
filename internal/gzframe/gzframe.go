// Package gzframe wraps the standard library's gzip/flate implementation
// with the fixed framing this format requires: no name, comment, or
// extra fields, a zero modification time, and OS byte 0xFF. compress/gzip
// at its default compression level produces exactly this byte layout,
// which is why the framer does not hand-roll DEFLATE itself.
package gzframe

import (
	"bytes"
	"compress/gzip"
	"io"
	"time"

	"github.com/lgxpkg/lgx/errs"
)

const (
	magic0 = 0x1f
	magic1 = 0x8b
)

// emptyStream is the framing of zero-length input: the fixed header, a
// single final fixed-Huffman block holding only the end-of-block code
// (03 00), and a zero CRC32/size trailer.
var emptyStream = []byte{
	0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff,
	0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Compress returns the deterministic gzip framing of data: a fixed
// 10-byte header, the DEFLATE stream at gzip.DefaultCompression, and an
// 8-byte CRC32/size trailer. Empty input always yields the fixed 20-byte
// emptyStream, whatever compress/flate itself would emit for it (some Go
// releases end an empty stream with a longer empty stored block).
// Calling Compress twice on the same input always yields byte-identical
// output.
func Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return append([]byte(nil), emptyStream...), nil
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidCompression, err, "construct gzip writer")
	}
	w.Header = gzip.Header{
		ModTime: time.Time{},
		OS:      0xff,
	}
	if _, err := w.Write(data); err != nil {
		return nil, errs.Wrap(errs.InvalidCompression, err, "write gzip payload")
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.InvalidCompression, err, "close gzip writer")
	}
	return buf.Bytes(), nil
}

// Decompress validates the gzip magic bytes and streams the inflated
// payload into sink. It does not buffer the whole payload in memory.
func Decompress(data []byte, sink io.Writer) error {
	if len(data) < 2 || data[0] != magic0 || data[1] != magic1 {
		return errs.New(errs.InvalidCompression, "not a gzip stream: bad magic bytes")
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return errs.Wrap(errs.InvalidCompression, err, "open gzip stream")
	}
	defer r.Close()
	if _, err := io.Copy(sink, r); err != nil {
		return errs.Wrap(errs.InvalidCompression, err, "inflate gzip stream")
	}
	return nil
}

// DecompressAll is a convenience wrapper over Decompress for callers
// that want the whole payload in memory.
func DecompressAll(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := Decompress(data, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsGzip reports whether data begins with the gzip magic bytes.
func IsGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == magic0 && data[1] == magic1
}
