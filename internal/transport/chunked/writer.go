package chunked

import (
	"io"
	"strconv"
)

// Writer frames every Write as one chunk. Close emits the terminating
// zero-size chunk; trailers are never written.
type Writer struct {
	w   io.Writer
	hdr []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, hdr: make([]byte, 0, 18)}
}

func (cw *Writer) Write(p []byte) (int, error) {
	// a zero-size chunk would end the body
	if len(p) == 0 {
		return 0, nil
	}
	cw.hdr = strconv.AppendInt(cw.hdr[:0], int64(len(p)), 16)
	cw.hdr = append(cw.hdr, '\r', '\n')
	if _, err := cw.w.Write(cw.hdr); err != nil {
		return 0, err
	}
	n, err := cw.w.Write(p)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, err
	}
	if _, err := io.WriteString(cw.w, "\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

func (cw *Writer) Close() error {
	_, err := io.WriteString(cw.w, "0\r\n\r\n")
	return err
}
