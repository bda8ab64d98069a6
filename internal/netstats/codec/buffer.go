package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxTypeNameLen is the longest type name a header can carry. Longer names are
// truncated on a rune boundary.
const MaxTypeNameLen = 128

// Writer is a growable little-endian byte buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, max(capacity, 0))}
}

// Reset empties the buffer and keeps its capacity.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// Bytes returns the written bytes. The slice is only valid until the next write or Reset.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of written bytes.
func (w *Writer) Len() int { return len(w.buf) }

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) WriteU8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) WriteU32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) WriteI32(v int32)  { w.WriteU32(uint32(v)) }
func (w *Writer) WriteU64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *Writer) WriteI64(v int64)  { w.WriteU64(uint64(v)) }
func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteBytes appends p verbatim.
func (w *Writer) WriteBytes(p []byte) { w.buf = append(w.buf, p...) }

// WriteString writes a one-byte length followed by at most MaxTypeNameLen bytes of s.
func (w *Writer) WriteString(s string) {
	s = truncateName(s)
	w.WriteU8(uint8(len(s)))
	w.buf = append(w.buf, s...)
}

func truncateName(s string) string {
	if len(s) <= MaxTypeNameLen {
		return s
	}
	n := MaxTypeNameLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Reader reads little-endian values from a byte slice through a cursor.
// Every read past the end returns ErrTruncated and leaves the cursor unchanged.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d at offset %d", ErrMalformed, n, r.off)
	}
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining())
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	p, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (r *Reader) ReadU32() (uint32, error) {
	p, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	p, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

// ReadBytes returns the next n bytes. The slice aliases the reader's buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take(n)
}

// ReadString reads a string written by Writer.WriteString.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	if int(n) > MaxTypeNameLen {
		r.off--
		return "", fmt.Errorf("%w: string length %d exceeds %d", ErrMalformed, n, MaxTypeNameLen)
	}
	p, err := r.take(int(n))
	if err != nil {
		r.off--
		return "", err
	}
	return string(p), nil
}
