// Package asks is an HTTP/1.1 client that follows redirects, answers
// authentication challenges and hands out pooled keep-alive connections.
package asks

import (
	"context"
	"net/http"

	"github.com/frankli0324/go-asks/internal"
	"github.com/frankli0324/go-asks/internal/form"
	"github.com/frankli0324/go-asks/internal/model"
)

type Client = internal.Client
type Header = http.Header
type Request = model.Request
type Response = model.Response
type Callback = model.Callback

type Handler = internal.Handler
type Middleware = internal.Middleware

// Values is an ordered mapping for Params, Data and Files.
type Values = form.Values

const Version = internal.Version

// RedirectLimit returns a redirect budget for Request.MaxRedirects or
// Client.MaxRedirects.
func RedirectLimit(n int) *int { return model.RedirectLimit(n) }

var (
	ErrTooManyRedirects = internal.ErrTooManyRedirects
	ErrStreamConsumed   = internal.ErrStreamConsumed
	ErrUnsupportedBody  = internal.ErrUnsupportedBody
	ErrStreamed         = model.ErrStreamed
)

// DefaultClient keeps cookies and pools connections for the package level
// helpers.
var DefaultClient = &Client{Jar: NewTracker()}

func Get(ctx context.Context, url string) (*Response, error) {
	return DefaultClient.CtxDo(ctx, &Request{Method: http.MethodGet, URL: url})
}

func Head(ctx context.Context, url string) (*Response, error) {
	return DefaultClient.CtxDo(ctx, &Request{Method: http.MethodHead, URL: url})
}

// Post sends data as a form when it is a mapping and verbatim otherwise.
func Post(ctx context.Context, url string, data interface{}) (*Response, error) {
	return DefaultClient.CtxDo(ctx, &Request{Method: http.MethodPost, URL: url, Data: data})
}

func PostJSON(ctx context.Context, url string, v interface{}) (*Response, error) {
	return DefaultClient.CtxDo(ctx, &Request{Method: http.MethodPost, URL: url, JSON: v})
}

func Delete(ctx context.Context, url string) (*Response, error) {
	return DefaultClient.CtxDo(ctx, &Request{Method: http.MethodDelete, URL: url})
}
