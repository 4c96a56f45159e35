// Package transport opens the line-oriented byte source a pipeline reads.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"go.bug.st/serial"
)

var ErrOpen = errors.New("transport: open failed")

// OpenError is fatal at startup; there is no retry.
type OpenError struct {
	ID  string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("transport: cannot open %q read/write: %v", e.ID, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

type Kind string

const (
	KindSerial Kind = "serial"
	KindTCP    Kind = "tcp"
	KindStdio  Kind = "stdio"
)

const (
	tcpPrefix   = "tcp://"
	stdioID     = "-"
	DialTimeout = 5 * time.Second
)

// KindOf classifies a transport identifier. Anything that is neither "-" nor
// a tcp:// address is treated as a serial device path.
func KindOf(id string) Kind {
	id = strings.TrimSpace(id)
	switch {
	case id == stdioID:
		return KindStdio
	case strings.HasPrefix(strings.ToLower(id), tcpPrefix):
		return KindTCP
	default:
		return KindSerial
	}
}

// Open opens id read/write. baud only applies to serial devices.
func Open(id string, baud int) (io.ReadWriteCloser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &OpenError{ID: id, Err: errors.New("empty transport identifier")}
	}

	switch KindOf(id) {
	case KindStdio:
		return stdio{Reader: os.Stdin, Writer: os.Stdout}, nil
	case KindTCP:
		addr := id[len(tcpPrefix):]
		conn, err := net.DialTimeout("tcp", addr, DialTimeout)
		if err != nil {
			return nil, &OpenError{ID: id, Err: err}
		}
		return conn, nil
	default:
		if baud <= 0 {
			return nil, &OpenError{ID: id, Err: fmt.Errorf("invalid baud rate %d", baud)}
		}
		port, err := serial.Open(id, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, &OpenError{ID: id, Err: err}
		}
		return port, nil
	}
}

// stdio reads stdin and never closes the process streams.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return nil
}
