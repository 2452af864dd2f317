// package charset turns the encoding names accepted on a request into byte
// coercions, and guesses the encoding of a received body.
package charset

import (
	"fmt"
	"mime"
	"strings"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Default is used whenever a request does not name an encoding.
const Default = "utf-8"

// Encoder converts text to the bytes sent on the wire.
type Encoder func(s string) ([]byte, error)

func lookup(name string) (encoding.Encoding, error) {
	if name == "" {
		name = Default
	}
	if enc, _ := htmlcharset.Lookup(name); enc != nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil { // known to the index but not implemented by x/text
		return nil, fmt.Errorf("charset: unsupported encoding %q", name)
	}
	return enc, nil
}

// NewEncoder returns the Encoder for the named character set.
func NewEncoder(name string) (Encoder, error) {
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 || enc == encoding.Nop {
		return func(s string) ([]byte, error) { return []byte(s), nil }, nil
	}
	e := enc.NewEncoder()
	return func(s string) ([]byte, error) {
		return e.Bytes([]byte(s))
	}, nil
}

// Decode converts b from the named character set into a Go string.
func Decode(b []byte, name string) (string, error) {
	enc, err := lookup(name)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Guess reports the encoding of a body. The charset parameter of the
// Content-Type wins; html documents are sniffed; anything else keeps fallback.
func Guess(body []byte, contentType, fallback string) string {
	mediatype, params, err := mime.ParseMediaType(contentType)
	if err == nil {
		if cs := strings.TrimSpace(params["charset"]); cs != "" {
			if _, err := lookup(cs); err == nil {
				return strings.ToLower(cs)
			}
		}
	}
	if mediatype == "text/html" || mediatype == "application/xhtml+xml" {
		if _, name, _ := htmlcharset.DetermineEncoding(body, contentType); name != "" {
			return name
		}
	}
	return fallback
}
