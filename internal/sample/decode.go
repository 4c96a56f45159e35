package sample

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

// DecimalSeparator switches a whole line to KindFloat.
const DecimalSeparator = '.'

// DefaultMaxLineBytes bounds a single line, terminator included.
const DefaultMaxLineBytes = 4096

// minLineBytes matches the smallest buffer bufio will allocate.
const minLineBytes = 16

// DecodeLine parses one line. The kind is decided for the whole line before
// any token is parsed; a blank line yields an empty Record and no error.
func DecodeLine(line string) (Record, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Record{}, nil
	}

	kind := KindInt
	if strings.IndexByte(line, DecimalSeparator) >= 0 {
		kind = KindFloat
	}

	values := make([]Value, 0, len(tokens))
	for _, tok := range tokens {
		v, err := parseToken(tok, kind)
		if err != nil {
			return Record{}, &ParseError{Token: tok, Kind: kind, Err: err}
		}
		values = append(values, v)
	}
	return Record{Kind: kind, Values: values}, nil
}

func parseToken(tok string, kind Kind) (Value, error) {
	if kind == KindFloat {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Value{}, unwrapNumError(err)
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return Value{}, unwrapNumError(err)
	}
	return Int(i), nil
}

func unwrapNumError(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return numErr.Err
	}
	return err
}

// Decoder reads newline-terminated records from a transport.
// It is not safe for concurrent use; one reader goroutine owns it.
type Decoder struct {
	r    *bufio.Reader
	line uint64
}

func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderSize(r, DefaultMaxLineBytes)
}

// NewDecoderSize caps lines at maxLine bytes; non-positive means
// DefaultMaxLineBytes. Longer lines are consumed and reported as a
// *ParseError wrapping ErrLineTooLong.
func NewDecoderSize(r io.Reader, maxLine int) *Decoder {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	if maxLine < minLineBytes {
		maxLine = minLineBytes
	}
	return &Decoder{r: bufio.NewReaderSize(r, maxLine)}
}

// HasLine reports whether a complete line is already buffered.
// It never blocks on the underlying transport.
func (d *Decoder) HasLine() bool {
	n := d.r.Buffered()
	if n == 0 {
		return false
	}
	buf, err := d.r.Peek(n)
	if err != nil {
		return false
	}
	return bytes.IndexByte(buf, '\n') >= 0
}

// ReadLine blocks until a complete line is available and returns it with the
// terminator. A trailing partial line at end of stream is discarded. A line
// longer than the decoder's limit is skipped up to its terminator and
// reported as a *ParseError.
func (d *Decoder) ReadLine() (string, error) {
	line, err := d.r.ReadSlice('\n')
	switch {
	case err == nil:
		d.line++
		return string(line), nil
	case errors.Is(err, bufio.ErrBufferFull):
		prefix := string(line[:min(len(line), oversizedPrefix)])
		if err := d.skipLine(); err != nil {
			return "", err
		}
		d.line++
		return "", &ParseError{Line: d.line, Token: prefix, Kind: KindNone, Err: ErrLineTooLong}
	case errors.Is(err, io.EOF):
		return "", io.EOF
	default:
		return "", err
	}
}

// oversizedPrefix is how much of an oversized line a ParseError quotes.
const oversizedPrefix = 32

func (d *Decoder) skipLine() error {
	for {
		_, err := d.r.ReadSlice('\n')
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			return io.EOF
		default:
			return err
		}
	}
}

// Next reads and decodes the next line. A *ParseError is recoverable: the
// offending line has been consumed and the caller may call Next again.
func (d *Decoder) Next() (Record, error) {
	line, err := d.ReadLine()
	if err != nil {
		return Record{}, err
	}
	rec, err := DecodeLine(line)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Line = d.line
		}
		return Record{}, err
	}
	rec.Line = d.line
	return rec, nil
}

// Lines reports how many complete lines have been read.
func (d *Decoder) Lines() uint64 {
	return d.line
}
