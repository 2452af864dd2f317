// package auth provides the authentication strategies a request may carry.
// Pre-response strategies build headers from the request alone; post-response
// strategies answer the challenge of a 401 response.
package auth

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/frankli0324/go-asks/internal/model"
)

// PreFunc adapts a function to a pre-response strategy.
type PreFunc func(ctx context.Context, req *model.Request) (http.Header, error)

func (PreFunc) Kind() model.AuthKind { return model.PreResponse }

func (f PreFunc) Authorize(ctx context.Context, _ *model.Response, req *model.Request) (http.Header, error) {
	return f(ctx, req)
}

// PostFunc adapts a function to a post-response strategy.
type PostFunc func(ctx context.Context, challenge *model.Response, req *model.Request) (http.Header, error)

func (PostFunc) Kind() model.AuthKind { return model.PostResponse }

func (f PostFunc) Authorize(ctx context.Context, resp *model.Response, req *model.Request) (http.Header, error) {
	return f(ctx, resp, req)
}

// Basic is RFC 7617 basic authentication.
type Basic struct {
	Username, Password string
}

func (*Basic) Kind() model.AuthKind { return model.PreResponse }

func (b *Basic) Authorize(context.Context, *model.Response, *model.Request) (http.Header, error) {
	cred := base64.StdEncoding.EncodeToString([]byte(b.Username + ":" + b.Password))
	return http.Header{"Authorization": {"Basic " + cred}}, nil
}
