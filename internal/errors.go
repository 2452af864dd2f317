package internal

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

var (
	ErrTooManyRedirects = errors.New("asks: too many redirects")
	ErrStreamConsumed   = errors.New("asks: response stream already closed")
	ErrUnsupportedBody  = errors.New("asks: unsupported body type")
	ErrBadLocation      = errors.New("asks: malformed redirect location")
)

// wrapError reports err the way net/http does. Once ctx is done the
// context's error replaces whatever the interrupted read returned.
func wrapError(ctx context.Context, method, rawURL string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = ctxErr
	}
	op := method
	if len(op) > 1 {
		op = op[:1] + strings.ToLower(op[1:])
	}
	return &url.Error{Op: op, URL: rawURL, Err: err}
}
