// Package transport delivers newline-delimited records from the instrument.
//
// A Transport is exclusively owned by one session. ReadLine blocks until a
// full line is available; there is no read timeout, so an unresponsive
// device stalls the caller until the transport is closed. Close is
// idempotent and unblocks a pending ReadLine.
package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/xtxerr/chemlogger/config"
	"github.com/xtxerr/chemlogger/internal/errors"
)

// Transport is a source of newline-terminated records.
type Transport interface {
	// ReadLine returns the next record including its line ending.
	ReadLine() ([]byte, error)

	// Close releases the underlying device. Calling Close more than once
	// is safe; later calls return the result of the first.
	Close() error
}

// Stream is a Transport over any io.Reader: replay files, stdin or an
// already-configured device handle.
type Stream struct {
	src     io.Reader
	r       *bufio.Reader
	maxLine int

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// NewStream wraps src. If src implements io.Closer it is closed by Close.
func NewStream(src io.Reader) *Stream {
	return NewStreamSize(src, config.DefaultMaxLineBytes)
}

// NewStreamSize is NewStream with an explicit line length limit.
func NewStreamSize(src io.Reader, maxLine int) *Stream {
	if maxLine <= 0 {
		maxLine = config.DefaultMaxLineBytes
	}
	return &Stream{
		src:     src,
		r:       bufio.NewReaderSize(src, maxLine),
		maxLine: maxLine,
		closed:  make(chan struct{}),
	}
}

// ReadLine implements Transport.
//
// A final record without a line ending is returned as-is; the following
// call reports io.EOF. Lines longer than the limit are drained and
// reported as ErrLineTooLong; the stream stays usable.
func (s *Stream) ReadLine() ([]byte, error) {
	select {
	case <-s.closed:
		return nil, errors.ErrTransportClosed
	default:
	}

	line, err := s.r.ReadSlice('\n')
	switch {
	case err == nil:
		return bytes.Clone(line), nil
	case errors.Is(err, bufio.ErrBufferFull):
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = s.r.ReadSlice('\n')
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Join(errors.ErrTransportFault, err)
		}
		return nil, fmt.Errorf("line exceeds %d bytes: %w", s.maxLine, errors.ErrLineTooLong)
	case errors.Is(err, io.EOF) && len(line) > 0:
		return bytes.Clone(line), nil
	default:
		select {
		case <-s.closed:
			return nil, errors.ErrTransportClosed
		default:
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Join(errors.ErrTransportFault, err)
	}
}

// Close implements Transport.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if c, ok := s.src.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
	return s.closeErr
}
