package transport

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-asks/internal/transport/chunked"
)

var ErrInvalidHeader = errors.New("transport: invalid header field")

// Encoder serializes one request: a head, optional body chunks, then the
// end of the message. A request announcing "Transfer-Encoding: chunked" has
// its body chunks framed accordingly.
type Encoder struct {
	w       *bufio.Writer
	chunked *chunked.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)} // default bufsize is 4096
}

// WriteHead writes the request line and header block, e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
//
// Host, matched case-insensitively, is written first and the remaining
// fields in sorted order.
func (e *Encoder) WriteHead(method, target string, header http.Header) error {
	if !httpguts.ValidHeaderFieldName(method) {
		return errors.New("transport: invalid method " + method)
	}
	e.w.WriteString(method)
	e.w.WriteByte(' ')
	e.w.WriteString(target)
	e.w.WriteString(" HTTP/1.1\r\n")

	keys := make([]string, 0, len(header))
	hostKey := ""
	for k := range header {
		if !httpguts.ValidHeaderFieldName(k) {
			return ErrInvalidHeader
		}
		if strings.EqualFold(k, "Host") {
			hostKey = k
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if hostKey != "" {
		keys = append([]string{hostKey}, keys...)
	}
	for _, k := range keys {
		for _, v := range header[k] {
			if !httpguts.ValidHeaderFieldValue(v) {
				return ErrInvalidHeader
			}
			e.w.WriteString(k)
			e.w.WriteString(": ")
			e.w.WriteString(v)
			e.w.WriteString("\r\n")
		}
	}
	if _, err := e.w.WriteString("\r\n"); err != nil {
		return err
	}
	if hasToken(header.Values("Transfer-Encoding"), "chunked") {
		e.chunked = chunked.NewWriter(e.w)
	}
	return e.w.Flush()
}

func (e *Encoder) WriteBody(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	var err error
	if e.chunked != nil {
		_, err = e.chunked.Write(p)
	} else {
		_, err = e.w.Write(p)
	}
	if err != nil {
		return err
	}
	return e.w.Flush()
}

// WriteEnd terminates the message.
func (e *Encoder) WriteEnd() error {
	if e.chunked != nil {
		if err := e.chunked.Close(); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

func hasToken(values []string, token string) bool {
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}
