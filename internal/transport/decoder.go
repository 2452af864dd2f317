package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/frankli0324/go-asks/internal/transport/chunked"
)

var ErrMalformedResponse = errors.New("transport: malformed HTTP response")

// MaxDataSize caps the payload of a single Data event.
const MaxDataSize = 10000

type Event interface{ event() }

// ResponseHead is the status line and header block of a final response.
type ResponseHead struct {
	Proto      string
	StatusCode int
	Reason     string
	Header     http.Header
}

type Data struct{ Bytes []byte }

type EndOfMessage struct{}

func (*ResponseHead) event() {}
func (*Data) event()         {}
func (*EndOfMessage) event() {}

type decoderState int

const (
	stateHead decoderState = iota
	stateBody
	stateDone
)

// Decoder turns the bytes of one response into events: a *ResponseHead,
// zero or more *Data, then *EndOfMessage. Reads happen only when the next
// event needs more bytes.
type Decoder struct {
	br     *bufio.Reader
	method string
	state  decoderState
	body   io.Reader
	cl     *io.LimitedReader
	buf    []byte
}

// NewDecoder reads the answer to a request sent with method. Connections
// that keep their own *bufio.Reader expose it through Buffered so bytes
// read ahead are not lost between responses.
func NewDecoder(r io.Reader, method string) *Decoder {
	var br *bufio.Reader
	switch v := r.(type) {
	case interface{ Buffered() *bufio.Reader }:
		br = v.Buffered()
	case *bufio.Reader:
		br = v
	default:
		br = bufio.NewReader(r)
	}
	return &Decoder{br: br, method: method}
}

// BodyExpected reports whether Data events may follow the head.
func (d *Decoder) BodyExpected() bool {
	return d.body != nil
}

func (d *Decoder) Next() (Event, error) {
	switch d.state {
	case stateHead:
		head, err := d.readHead()
		if err != nil {
			return nil, err
		}
		d.state = stateBody
		return head, nil
	case stateBody:
		if d.body == nil {
			d.state = stateDone
			return &EndOfMessage{}, nil
		}
		if d.buf == nil {
			d.buf = make([]byte, MaxDataSize)
		}
		for {
			n, err := d.body.Read(d.buf)
			if n > 0 {
				return &Data{Bytes: append([]byte(nil), d.buf[:n]...)}, nil
			}
			if err == io.EOF {
				if d.cl != nil && d.cl.N > 0 {
					return nil, io.ErrUnexpectedEOF
				}
				d.state = stateDone
				return &EndOfMessage{}, nil
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return nil, io.EOF
}

func (d *Decoder) readHead() (*ResponseHead, error) {
	tp := textproto.NewReader(d.br)
	for {
		head, err := readStatus(tp)
		if err != nil {
			return nil, err
		}
		// interim responses carry no body, the final one follows
		if head.StatusCode >= 100 && head.StatusCode < 200 && head.StatusCode != http.StatusSwitchingProtocols {
			continue
		}
		if err := d.readTransfer(head); err != nil {
			return nil, err
		}
		return head, nil
	}
}

func readStatus(tp *textproto.Reader) (*ResponseHead, error) {
	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, ErrMalformedResponse
	}
	head := &ResponseHead{Proto: proto}
	status = strings.TrimLeft(status, " ")

	statusCode, reason, _ := strings.Cut(status, " ")
	if len(statusCode) != 3 {
		return nil, fmt.Errorf("%w: status code %q", ErrMalformedResponse, statusCode)
	}
	head.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || head.StatusCode < 0 {
		return nil, fmt.Errorf("%w: status code %q", ErrMalformedResponse, statusCode)
	}
	head.Reason = reason

	// Parse the response headers.
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	head.Header = http.Header(mimeHeader)
	return head, nil
}

func (d *Decoder) readTransfer(head *ResponseHead) error {
	contentLens := head.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return fmt.Errorf("transport: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}

		// deduplicate Content-Length
		head.Header.Del("Content-Length")
		head.Header.Add("Content-Length", first)

		contentLens = head.Header["Content-Length"]
	}

	switch {
	case d.method == http.MethodHead,
		head.StatusCode == http.StatusNoContent,
		head.StatusCode == http.StatusNotModified:
		return nil
	}

	if hasToken(head.Header.Values("Transfer-Encoding"), "chunked") {
		d.body = chunked.NewReader(d.br)
		return nil
	}

	if len(contentLens) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err != nil {
			return fmt.Errorf("%w: bad Content-Length %q", ErrMalformedResponse, contentLens[0])
		}
		if n > 0 {
			d.cl = &io.LimitedReader{R: d.br, N: int64(n)}
			d.body = d.cl
		}
		return nil
	}

	// without framing the body runs until the server closes the connection
	if head.Proto == "HTTP/1.0" || hasToken(head.Header.Values("Connection"), "close") {
		d.body = d.br
	}
	return nil
}
