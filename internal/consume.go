package internal

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/frankli0324/go-asks/internal/charset"
	"github.com/frankli0324/go-asks/internal/model"
	"github.com/frankli0324/go-asks/internal/transport"
)

// consume reads one response off the connection and picks how its body is
// delivered: to the callback, as a stream, or buffered.
func (ex *exchange) consume() (*model.Response, error) {
	dec := transport.NewDecoder(ex.conn, ex.req.Method)
	ev, err := dec.Next()
	if err != nil {
		return nil, err
	}
	head, ok := ev.(*transport.ResponseHead)
	if !ok {
		return nil, transport.ErrMalformedResponse
	}
	encoding := ex.req.Encoding
	if encoding == "" {
		encoding = charset.Default
	}
	resp := &model.Response{
		Method:       ex.req.Method,
		StatusCode:   head.StatusCode,
		ReasonPhrase: head.Reason,
		HTTPVersion:  strings.TrimPrefix(head.Proto, "HTTP/"),
		Header:       head.Header,
		Encoding:     encoding,
	}

	raw := &eventReader{dec: dec}
	if !dec.BodyExpected() {
		return resp, raw.drain()
	}
	body := contentDecoder(resp.Header, raw)

	switch {
	case ex.req.Callback != nil:
		buf := make([]byte, transport.MaxDataSize)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				if cbErr := ex.req.Callback(append([]byte(nil), buf[:n]...)); cbErr != nil {
					return nil, cbErr
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
		}
	case ex.req.Stream && resp.StatusCode >= 200 && resp.StatusCode < 300:
		if !sameOrigin(ex.u, ex.initial) || connectionClose(resp.Header) {
			ex.conn.SetActive(false)
		}
		ex.streaming = true
		resp.Stream = &streamBody{body: body, raw: raw, conn: ex.conn, session: ex.c.Session}
		return resp, nil
	default:
		if resp.Body, err = io.ReadAll(body); err != nil {
			return nil, err
		}
	}
	return resp, raw.drain()
}

// eventReader presents the Data events of a decoder as a byte stream that
// ends at EndOfMessage.
type eventReader struct {
	dec  *transport.Decoder
	buf  []byte
	done bool
}

func (r *eventReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.done {
			return 0, io.EOF
		}
		ev, err := r.dec.Next()
		if err != nil {
			return 0, err
		}
		switch e := ev.(type) {
		case *transport.Data:
			r.buf = e.Bytes
		case *transport.EndOfMessage:
			r.done = true
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// drain consumes the rest of the message so the connection is positioned
// at the next response.
func (r *eventReader) drain() error {
	_, err := io.Copy(io.Discard, r)
	return err
}

// contentDecoder undoes a gzip or deflate Content-Encoding. The header and
// the now wrong Content-Length are dropped once a decoder is in place. The
// decompressor is created on first read so a stream does not block early.
func contentDecoder(h http.Header, r io.Reader) io.Reader {
	var open func(io.Reader) (io.Reader, error)
	switch strings.ToLower(strings.TrimSpace(h.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		open = func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }
	case "deflate":
		open = openDeflate
	default:
		return r
	}
	h.Del("Content-Encoding")
	h.Del("Content-Length")
	return &lazyReader{src: r, open: open}
}

// openDeflate accepts both zlib-wrapped and raw deflate data, since
// servers disagree on what "deflate" means.
func openDeflate(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	hdr, err := br.Peek(2)
	if err != nil {
		return nil, err
	}
	if hdr[0]&0x0f == 8 && (uint16(hdr[0])<<8|uint16(hdr[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

type lazyReader struct {
	src  io.Reader
	open func(io.Reader) (io.Reader, error)
	r    io.Reader
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if l.r == nil {
		r, err := l.open(l.src)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		l.r = r
	}
	return l.r.Read(p)
}
