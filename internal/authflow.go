package internal

import (
	"context"
	"net/http"

	"github.com/frankli0324/go-asks/internal/model"
)

// authHeaders asks the strategy for credentials. A post-response strategy
// is only consulted to answer a 401 that has not been answered yet.
// Strategies see the URL as sent, target being its request-target.
func (ex *exchange) authHeaders(ctx context.Context, target string) (http.Header, error) {
	a := ex.req.Auth
	if a == nil {
		return nil, nil
	}
	signed := *ex.req
	signed.URL = ex.u.Scheme + "://" + ex.u.Host + target
	switch a.Kind() {
	case model.PreResponse:
		return a.Authorize(ctx, nil, &signed)
	case model.PostResponse:
		n := len(ex.history)
		if n == 0 || ex.history[n-1].StatusCode != http.StatusUnauthorized || ex.authAttempted {
			return nil, nil
		}
		ex.authAttempted = true
		return a.Authorize(ctx, ex.history[n-1], &signed)
	}
	return nil, nil
}

// wantsAuthRetry reports whether resp is a challenge a post-response
// strategy has not answered yet. Only one retry happens per exchange.
func (ex *exchange) wantsAuthRetry(resp *model.Response) bool {
	return ex.req.Auth != nil &&
		ex.req.Auth.Kind() == model.PostResponse &&
		resp.StatusCode == http.StatusUnauthorized &&
		!ex.authAttempted
}
