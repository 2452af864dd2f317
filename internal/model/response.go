package model

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/frankli0324/go-asks/internal/charset"
)

var ErrStreamed = errors.New("asks: response body is streamed, read Response.Stream")

type Response struct {
	Method       string
	StatusCode   int
	ReasonPhrase string
	HTTPVersion  string
	// Header keeps every Set-Cookie line as a separate value.
	Header http.Header

	// Body holds the buffered body. It is empty when a Callback consumed
	// the body or when Stream is set.
	Body []byte
	// Stream is the single-pass body of a streamed response. Closing it
	// hands the connection back to its session.
	Stream io.ReadCloser

	Encoding string
	Cookies  []*http.Cookie

	// History lists the earlier responses of the same call, oldest first.
	History []*Response
}

// Status renders the status line remainder, e.g. "200 OK".
func (r *Response) Status() string {
	return strings.TrimSpace(strconv.Itoa(r.StatusCode) + " " + r.ReasonPhrase)
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// ParseCookies reads the Set-Cookie headers. Cookies without a Domain
// attribute are scoped to authority.
func (r *Response) ParseCookies(authority string) {
	host := authority
	if h, _, err := net.SplitHostPort(authority); err == nil {
		host = h
	}
	r.Cookies = r.Cookies[:0]
	for _, line := range r.Header.Values("Set-Cookie") {
		c, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		if c.Domain == "" {
			c.Domain = host
		}
		r.Cookies = append(r.Cookies, c)
	}
}

// GuessEncoding updates Encoding from the Content-Type header or, for html,
// from the body itself.
func (r *Response) GuessEncoding() {
	r.Encoding = charset.Guess(r.Body, r.Header.Get("Content-Type"), r.Encoding)
}

func (r *Response) Text() (string, error) {
	if r.Stream != nil {
		return "", ErrStreamed
	}
	return charset.Decode(r.Body, r.Encoding)
}

func (r *Response) JSON(v interface{}) error {
	if r.Stream != nil {
		return ErrStreamed
	}
	return json.Unmarshal(r.Body, v)
}

// Get looks up a gjson path in a JSON body.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}
