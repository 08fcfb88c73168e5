// Package reader slices a byte stream into fixed-width records. It is
// a single-pass iterator: Next yields records in file order until EOF,
// and reopening the underlying file is the only way to start over.
package reader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ErrTruncatedRecord reports a final chunk shorter than the record
// width that carries non-pad bytes. A short all-blank tail is EOF
// noise and is dropped silently instead.
var ErrTruncatedRecord = errors.New("truncated record")

// TruncatedError wraps ErrTruncatedRecord with position detail.
type TruncatedError struct {
	Offset int64 // byte offset of the partial record
	Length int   // bytes actually present
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated record at offset %d (%d bytes)", e.Offset, e.Length)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncatedRecord }

// Record is one raw fixed-width record and its position in the stream.
type Record struct {
	Offset int64
	Raw    []byte
}

// Reader yields width-sized records from an underlying stream. The
// published files separate records with line terminators; any CR/LF
// bytes directly after a record are consumed and never counted as
// record content.
type Reader struct {
	br     *bufio.Reader
	width  int
	offset int64
	done   bool
}

// New wraps r for the given record width. Width must be positive.
func New(r io.Reader, width int) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), width: width}
}

// Next returns the next record, io.EOF at the end of the stream, or
// ErrTruncatedRecord (wrapped in a TruncatedError) for a non-blank
// short tail. After io.EOF or a truncation, all further calls return
// io.EOF.
func (r *Reader) Next() (Record, error) {
	if r.done {
		return Record{}, io.EOF
	}
	start := r.offset
	buf := make([]byte, r.width)
	n, err := io.ReadFull(r.br, buf)
	r.offset += int64(n)

	switch {
	case err == nil:
		r.skipLineBreaks()
		return Record{Offset: start, Raw: buf}, nil

	case errors.Is(err, io.EOF) && n == 0:
		r.done = true
		return Record{}, io.EOF

	case errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF):
		r.done = true
		if allPad(buf[:n]) {
			return Record{}, io.EOF
		}
		return Record{}, &TruncatedError{Offset: start, Length: n}

	default:
		r.done = true
		return Record{}, err
	}
}

// skipLineBreaks consumes any CR/LF run following a record.
func (r *Reader) skipLineBreaks() {
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return
		}
		if b != '\n' && b != '\r' {
			_ = r.br.UnreadByte()
			return
		}
		r.offset++
	}
}

// allPad reports whether every byte is filler: space, line terminator,
// NUL, or the DOS EOF marker some distributions append.
func allPad(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n', 0x00, 0x1a:
		default:
			return false
		}
	}
	return true
}
