package chunked

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
)

var (
	ErrMalformed = errors.New("chunked: malformed chunked encoding")
	ErrTooLarge  = errors.New("chunked: chunk size too large")
)

// maxLine bounds a chunk-size line including extensions.
const maxLine = 4096

// Reader decodes a chunked body. Chunk extensions are ignored; the trailer
// section is consumed and discarded once the last chunk is seen.
type Reader struct {
	br   *bufio.Reader
	left int64 // bytes remaining in the current chunk
	last bool
	err  error
}

func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{br: br}
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	for r.left == 0 {
		if r.last {
			r.err = io.EOF
			return 0, r.err
		}
		if r.err = r.next(); r.err != nil {
			return 0, r.err
		}
	}
	if int64(len(p)) > r.left {
		p = p[:r.left]
	}
	n, err := r.br.Read(p)
	r.left -= int64(n)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err == nil && r.left == 0 {
		err = r.crlf()
	}
	r.err = err
	return n, err
}

// next reads the size line of the following chunk, or the trailer when the
// size is zero.
func (r *Reader) next() error {
	line, err := r.line()
	if err != nil {
		return err
	}
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimRight(line, " \t")
	if len(line) == 0 {
		return ErrMalformed
	}
	size, err := strconv.ParseUint(string(line), 16, 63)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return ErrTooLarge
		}
		return ErrMalformed
	}
	if size > 0 {
		r.left = int64(size)
		return nil
	}
	r.last = true
	for {
		line, err := r.line()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

// line returns one CRLF terminated line without its terminator.
func (r *Reader) line() ([]byte, error) {
	line, err := r.br.ReadSlice('\n')
	switch {
	case err == io.EOF:
		return nil, io.ErrUnexpectedEOF
	case err == bufio.ErrBufferFull || len(line) > maxLine:
		return nil, ErrTooLarge
	case err != nil:
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func (r *Reader) crlf() error {
	var buf [2]byte
	if _, err := io.ReadFull(r.br, buf[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if buf != [2]byte{'\r', '\n'} {
		return ErrMalformed
	}
	return nil
}
